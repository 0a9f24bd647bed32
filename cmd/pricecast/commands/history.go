package commands

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wonny/pricecast/internal/admin"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "가격 이력 관리",
	Long: `가격 이력을 조회하고 수정합니다.

Subcommands:
  list        - 필터링된 이력과 통계
  add         - 관측치 추가/수정
  regenerate  - 전체 이력 재생성

Example:
  go run ./cmd/pricecast history list --product 101 --days 7
  go run ./cmd/pricecast history add --product 101 --city 1 --district 2 --price 1250 --date 2024-03-15
  go run ./cmd/pricecast history regenerate --days 30`,
}

var (
	historyProduct  string
	historyCity     string
	historyDistrict string
	historyPrice    string
	historyDate     string
	historyDays     int
)

var (
	historyListCmd = &cobra.Command{
		Use:   "list",
		Short: "이력 조회",
		RunE:  runHistoryList,
	}

	historyAddCmd = &cobra.Command{
		Use:   "add",
		Short: "관측치 추가/수정",
		RunE:  runHistoryAdd,
	}

	historyRegenerateCmd = &cobra.Command{
		Use:   "regenerate",
		Short: "전체 이력 재생성",
		RunE:  runHistoryRegenerate,
	}
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyAddCmd)
	historyCmd.AddCommand(historyRegenerateCmd)

	for _, c := range []*cobra.Command{historyListCmd, historyAddCmd} {
		c.Flags().StringVar(&historyProduct, "product", "", "상품 ID")
		c.Flags().StringVar(&historyCity, "city", "", "시 ID")
		c.Flags().StringVar(&historyDistrict, "district", "", "구 ID")
	}
	historyListCmd.Flags().IntVar(&historyDays, "days", admin.DefaultDays, "최근 N일")

	historyAddCmd.Flags().StringVar(&historyPrice, "price", "", "가격 (정수)")
	historyAddCmd.Flags().StringVar(&historyDate, "date", "", "날짜 YYYY-MM-DD")

	historyRegenerateCmd.Flags().IntVar(&historyDays, "days", admin.DefaultDays, "백필 일수")
}

// optionalInt parses a filter flag; empty means no filter
func optionalInt(name, raw string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("--%s must be an integer", name)
	}
	return &n, nil
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	var q admin.HistoryQuery
	var err error
	if q.ProductID, err = optionalInt("product", historyProduct); err != nil {
		return err
	}
	if q.CityID, err = optionalInt("city", historyCity); err != nil {
		return err
	}
	if q.DistrictID, err = optionalInt("district", historyDistrict); err != nil {
		return err
	}
	q.Days = &historyDays

	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	page := a.admin.Query(ctx, q)
	if len(page.Rows) == 0 {
		PrintInfo(fmt.Sprintf("No history in the last %d days", page.Days))
		return nil
	}

	widths := []int{10, 20, 22, 8, 8, 8}
	PrintTableHeader([]string{"DATE", "PRODUCT", "LOCATION", "PRICE", "EXPECTED", "BASE"}, widths)
	for _, r := range page.Rows {
		PrintTableRow([]string{
			r.Date,
			r.ProductName,
			r.Location,
			fmt.Sprint(r.Price),
			fmt.Sprint(r.ExpectedPrice),
			fmt.Sprint(r.BasePrice),
		}, widths)
	}

	st := page.Stats
	fmt.Println()
	PrintKeyValue("Total entries", fmt.Sprint(st.TotalEntries), 16)
	PrintKeyValue("Displayed", fmt.Sprint(st.DisplayedEntries), 16)
	PrintKeyValue("Products", fmt.Sprint(st.UniqueProducts), 16)
	PrintKeyValue("Locations", fmt.Sprint(st.UniqueLocations), 16)
	PrintKeyValue("Date range", st.OldestDate+" ~ "+st.NewestDate, 16)
	PrintKeyValue("Avg deviation", fmt.Sprintf("%.2f%%", st.AvgDeviation), 16)
	PrintKeyValue("Max deviation", fmt.Sprintf("%.2f%%", st.MaxDeviation), 16)
	PrintKeyValue("Min deviation", fmt.Sprintf("%.2f%%", st.MinDeviation), 16)
	return nil
}

func runHistoryAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.admin.AddEntry(ctx, admin.EntryInput{
		ProductID:  historyProduct,
		CityID:     historyCity,
		DistrictID: historyDistrict,
		Price:      historyPrice,
		Date:       historyDate,
	})
	var verr *admin.ValidationError
	if errors.As(err, &verr) {
		PrintError(verr.Error())
		return err
	}
	if err != nil {
		return err
	}

	PrintSuccess(result.Message)
	return nil
}

func runHistoryRegenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	PrintWarning("All existing price history will be discarded")

	report, message, err := a.admin.Regenerate(ctx, historyDays)
	if err != nil {
		return err
	}

	PrintKeyValue("Run ID", report.RunID, 10)
	PrintKeyValue("Entries", fmt.Sprint(report.Backfilled), 10)
	PrintSuccess(message)
	return nil
}
