package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/pricecast/internal/catalog"
)

// forecastCmd represents the forecast command
var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "가격 예측 조회",
	Long: `이력 기반 가격 예측을 조회합니다.

Subcommands:
  predict   - 단일 상품 × 지역 예측
  location  - 지역의 전체 상품 예측

Example:
  go run ./cmd/pricecast forecast predict --product 101 --city 1 --district 2
  go run ./cmd/pricecast forecast location --city 1 --district 2`,
}

var (
	forecastProductID  int
	forecastCityID     int
	forecastDistrictID int
)

var (
	forecastPredictCmd = &cobra.Command{
		Use:   "predict",
		Short: "단일 상품 예측",
		RunE:  runForecastPredict,
	}

	forecastLocationCmd = &cobra.Command{
		Use:   "location",
		Short: "지역 전체 상품 예측",
		RunE:  runForecastLocation,
	}
)

func init() {
	rootCmd.AddCommand(forecastCmd)
	forecastCmd.AddCommand(forecastPredictCmd)
	forecastCmd.AddCommand(forecastLocationCmd)

	forecastPredictCmd.Flags().IntVar(&forecastProductID, "product", 0, "상품 ID")
	_ = forecastPredictCmd.MarkFlagRequired("product")

	for _, c := range []*cobra.Command{forecastPredictCmd, forecastLocationCmd} {
		c.Flags().IntVar(&forecastCityID, "city", 0, "시 ID")
		c.Flags().IntVar(&forecastDistrictID, "district", 0, "구 ID")
		_ = c.MarkFlagRequired("city")
		_ = c.MarkFlagRequired("district")
	}
}

func runForecastPredict(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	product, err := a.catalog.LookupProduct(forecastProductID)
	if err != nil {
		return err
	}
	location, err := a.catalog.LookupLocation(forecastCityID, forecastDistrictID)
	if err != nil {
		return err
	}

	f := a.cached.Predict(ctx, product, &location)

	PrintDoubleSeparator()
	fmt.Printf("  %s @ %s\n", product.Name, location.DisplayName())
	PrintSeparator()
	PrintKeyValue("Current", fmt.Sprint(f.CurrentPrice), 10)
	PrintKeyValue("Predicted", fmt.Sprint(f.PredictedPrice), 10)
	PrintKeyValue("Confidence", fmt.Sprintf("%d%%", f.Confidence), 10)
	PrintSeparator()

	if len(f.History) == 0 {
		PrintInfo("Not enough history; showing the location price")
		return nil
	}

	widths := []int{8, 10}
	PrintTableHeader([]string{"DATE", "PRICE"}, widths)
	for _, h := range f.History {
		PrintTableRow([]string{h.Date, fmt.Sprint(h.Price)}, widths)
	}
	return nil
}

func runForecastLocation(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	location, err := a.catalog.LookupLocation(forecastCityID, forecastDistrictID)
	if errors.Is(err, catalog.ErrLocationNotFound) {
		PrintWarning(fmt.Sprintf("Location %d/%d not found", forecastCityID, forecastDistrictID))
		return err
	}
	if err != nil {
		return err
	}

	forecasts := a.cached.PredictAll(ctx, a.catalog.Products(), location)

	fmt.Printf("\n%s (%s)\n\n", location.DisplayName(), location.Key())
	widths := []int{6, 24, 14, 9, 10, 6}
	PrintTableHeader([]string{"ID", "PRODUCT", "CATEGORY", "CURRENT", "PREDICTED", "CONF"}, widths)
	for _, pf := range forecasts {
		PrintTableRow([]string{
			fmt.Sprint(pf.ProductID),
			pf.ProductName,
			pf.Category,
			fmt.Sprint(pf.CurrentPrice),
			fmt.Sprint(pf.Forecast.PredictedPrice),
			fmt.Sprintf("%d%%", pf.Forecast.Confidence),
		}, widths)
	}
	return nil
}
