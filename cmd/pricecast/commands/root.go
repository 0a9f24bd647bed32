package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	engineConfigPath string
	storeBackend     string
	verbose          bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pricecast",
	Short: "pricecast - 지역별 가격 이력/예측 엔진",
	Long: `pricecast Unified CLI

지역(시/구)별 상품 가격 이력을 유지하고 단기 가격을 예측합니다.
이력 저장소는 file, sqlite, postgres 중 하나를 사용합니다.

Usage:
  go run ./cmd/pricecast [command]

Examples:
  go run ./cmd/pricecast serve
  go run ./cmd/pricecast maintain
  go run ./cmd/pricecast forecast predict 101 --city 1 --district 2
  go run ./cmd/pricecast history list --days 7
  go run ./cmd/pricecast check`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&engineConfigPath, "engine-config", "", "engine tuning YAML (default: ENGINE_CONFIG or built-in constants)")
	rootCmd.PersistentFlags().StringVar(&storeBackend, "backend", "", "history backend override (file|sqlite|postgres)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
