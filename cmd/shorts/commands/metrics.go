package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/shorttracker/internal/calendar"
)

// metricsCmd represents the metrics command
var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "공매도 지표 계산 및 리포트 저장",
	Long: `저장된 데이터로 종목/펀드 지표를 계산하고 JSON 리포트를 씁니다.

지표:
- 공매도 비율, 보유 주식수, 익스포저(GBP)
- 기간 수익률, 벤치마크 대비 수익률, PnL
- Days to cover, 익스포저 변화, 포지션 변화 하한(flow bound)

Example:
  go run ./cmd/shorts metrics
  go run ./cmd/shorts metrics --quiet`,
	RunE: runMetrics,
}

var metricsQuiet bool

func init() {
	rootCmd.AddCommand(metricsCmd)
	metricsCmd.Flags().BoolVarP(&metricsQuiet, "quiet", "q", false, "write the report without printing tables")
}

func runMetrics(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.metricsService().Run(cmd.Context())
	if err != nil {
		return err
	}
	if res.ReportDate.IsZero() {
		PrintInfo("No disclosures stored yet, run 'collect' first")
		return nil
	}

	if !metricsQuiet {
		PrintHeader("UK Short Metrics",
			[2]string{"Report date", calendar.Format(res.ReportDate)},
			[2]string{"Window", calendar.Format(res.WindowStart) + " ~ " + calendar.Format(res.ReportDate)},
		)
		fmt.Println("\nTop shorted securities")
		PrintMetricsTable(res.Securities, false)
		fmt.Println("\nTop fund positions")
		PrintMetricsTable(res.Funds, true)
		fmt.Println("\nFlow bnd is a conservative bound on the position change, not the true flow.")
		PrintWarnings(res.Warnings)
	}

	fmt.Println()
	PrintSuccess("Report written to " + a.cfg.OutputFile)
	return nil
}
