package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/pricecast/internal/contracts"
)

// maintainCmd runs one maintenance pass and exits
var maintainCmd = &cobra.Command{
	Use:   "maintain",
	Short: "이력 유지보수 1회 실행",
	Long: `이력 유지보수를 한 번 실행합니다.

- 저장소가 없으면 최근 N일 백필 (BACKFILL_DAYS, 기본 10)
- 오늘 날짜 배치가 없으면 상품 × 지역 일일 배치 추가
- 보존 한도 초과 시 오래된 관측치 압축

Example:
  go run ./cmd/pricecast maintain
  go run ./cmd/pricecast maintain --date 2024-03-15`,
	RunE: runMaintain,
}

var maintainDate string

func init() {
	rootCmd.AddCommand(maintainCmd)

	maintainCmd.Flags().StringVar(&maintainDate, "date", "", "기준일 YYYY-MM-DD (default: today)")
}

func runMaintain(cmd *cobra.Command, args []string) error {
	today := time.Now()
	if maintainDate != "" {
		d, err := contracts.ParseDate(maintainDate)
		if err != nil {
			return fmt.Errorf("invalid --date %q: %w", maintainDate, err)
		}
		today = d
	}

	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.maintenance.Ensure(ctx, today)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	PrintDoubleSeparator()
	fmt.Println("  History Maintenance")
	PrintSeparator()
	PrintKeyValue("Run ID", report.RunID, 12)
	PrintKeyValue("Date", report.Date, 12)
	PrintKeyValue("Backend", a.store.Backend(), 12)
	PrintKeyValue("Backfilled", fmt.Sprint(report.Backfilled), 12)
	PrintKeyValue("Daily added", fmt.Sprint(report.DailyAdded), 12)
	PrintKeyValue("Compacted", fmt.Sprint(report.Compacted), 12)
	PrintKeyValue("Duration", report.Duration.String(), 12)
	PrintDoubleSeparator()

	if report.Backfilled == 0 && report.DailyAdded == 0 {
		PrintInfo("History already up to date")
	} else {
		PrintSuccess("Maintenance completed")
	}
	return nil
}
