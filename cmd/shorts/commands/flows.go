package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/shorttracker/internal/api/handlers"
	"github.com/wonny/shorttracker/internal/calendar"
)

// flowsCmd represents the flows command
var flowsCmd = &cobra.Command{
	Use:   "flows [fund] [isin]",
	Short: "펀드 포지션 일별 시계열 및 flow bound 출력",
	Long: `저장된 공시 이력을 영업일 기준으로 재색인하고 일별 포지션 변화 하한을 출력합니다.

임계값(기본 0.5%) 미만으로 이어지는 값은 확인할 수 없으므로 빈 값(-)으로 표시됩니다.

Example:
  go run ./cmd/shorts flows "Marshall Wace LLP" GB0031348658`,
	Args: cobra.ExactArgs(2),
	RunE: runFlows,
}

func init() {
	rootCmd.AddCommand(flowsCmd)
}

func runFlows(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	snap, err := a.repo.LoadSnapshot(cmd.Context())
	if err != nil {
		return err
	}

	resp := handlers.BuildFlows(snap.Disclosures, args[0], args[1], a.cfg.Tracker.DisclosureThreshold)
	if len(resp.Series) == 0 {
		PrintInfo("No disclosures stored for this position")
		return nil
	}

	PrintHeader("Disclosure Flows",
		[2]string{"Fund", resp.Fund},
		[2]string{"ISIN", resp.ISIN},
		[2]string{"Threshold", fmt.Sprintf("%.2f%%", resp.Threshold)},
	)

	widths := []int{12, 10, 10}
	PrintTableHeader([]string{"Date", "Short %", "Flow bnd"}, widths)
	for i, p := range resp.Series {
		value := "-"
		if p.Value.Valid {
			value = fmt.Sprintf("%.2f", p.Value.Float64)
		}
		PrintTableRow([]string{
			calendar.Format(p.Date),
			value,
			fmt.Sprintf("%+.2f", resp.Flows[i].Bound),
		}, widths)
	}
	PrintSeparator()
	PrintKeyValue("Total bound", fmt.Sprintf("%+.2f", resp.Total), 12)
	return nil
}
