package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// checkCmd verifies configuration and connectivity without mutating anything
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "설정/저장소/카탈로그 점검",
	Long: `설정 로드, 카탈로그 로드, 이력 저장소 연결, Redis 연결을 점검합니다.
저장소 내용은 변경하지 않습니다.

Example:
  go run ./cmd/pricecast check
  go run ./cmd/pricecast check --backend sqlite`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

// healthChecker is implemented by stores holding a connection pool
type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

func runCheck(cmd *cobra.Command, args []string) error {
	fmt.Println("=== pricecast Check ===")

	a, err := newApp(cmd.Context())
	if err != nil {
		PrintError(err.Error())
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	PrintSuccess("Configuration loaded")
	PrintKeyValue("Env", a.cfg.Env, 12)
	PrintKeyValue("Engine cfg", valueOr(a.cfg.EngineConfigPath, "(built-in)"), 12)
	PrintKeyValue("Window", fmt.Sprint(a.engineCfg.Forecast.Window), 12)
	PrintKeyValue("Retention", fmt.Sprint(a.engineCfg.Retention.MaxEntries), 12)

	PrintSuccess(fmt.Sprintf("Catalog loaded: %d products, %d locations",
		len(a.catalog.Products()), len(a.catalog.Locations())))

	failed := false

	if hc, ok := a.store.(healthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			PrintError(fmt.Sprintf("History store (%s): %v", a.store.Backend(), err))
			failed = true
		}
	}
	if !failed {
		exists, err := a.store.Exists(ctx)
		if err != nil {
			PrintError(fmt.Sprintf("History store (%s): %v", a.store.Backend(), err))
			failed = true
		} else {
			entries := a.store.ReadAll(ctx)
			PrintSuccess(fmt.Sprintf("History store (%s): exists=%t, %d entries", a.store.Backend(), exists, len(entries)))
		}
	}

	if a.redis.Enabled() {
		if err := a.redis.Ping(ctx); err != nil {
			PrintError(fmt.Sprintf("Redis: %v", err))
			failed = true
		} else {
			PrintSuccess("Redis reachable")
		}
	} else {
		PrintInfo("Redis disabled")
	}

	if failed {
		return fmt.Errorf("check failed")
	}
	return nil
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
