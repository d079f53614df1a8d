package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/shorttracker/internal/calendar"
)

// collectCmd represents the collect command
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "일일 공시/시장 데이터 수집",
	Long: `FCA 공매도 공시를 내려받고 상위 종목의 시장 데이터를 수집합니다.

이 명령어는:
- FCA 워크북 다운로드 및 검증
- Top-N 종목/펀드 선정
- OpenFIGI 티커 매핑
- Yahoo Finance 가격 및 발행주식수 수집
- 저장소 테이블 교체 (단일 트랜잭션)

Example:
  go run ./cmd/shorts collect
  go run ./cmd/shorts collect --timeout 20m`,
	RunE: runCollect,
}

var collectTimeout time.Duration

func init() {
	rootCmd.AddCommand(collectCmd)
	collectCmd.Flags().DurationVar(&collectTimeout, "timeout", 15*time.Minute, "overall timeout")
}

func runCollect(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), collectTimeout)
	defer cancel()

	PrintHeader("Short Disclosure Collection",
		[2]string{"Started", time.Now().Format(time.RFC3339)},
		[2]string{"Top N", fmt.Sprintf("%d", a.cfg.Tracker.TopN)},
	)

	res, err := a.collector().Collect(ctx)
	if err != nil {
		return fmt.Errorf("collect: %w", err)
	}

	PrintKeyValue("Report date", calendar.Format(res.ReportDate), 12)
	PrintKeyValue("Disclosures", fmt.Sprintf("%d", res.Records), 12)
	PrintKeyValue("ISINs", fmt.Sprintf("%d", res.ISINs), 12)
	PrintKeyValue("Tickers", fmt.Sprintf("%d", res.Tickers), 12)
	PrintKeyValue("Market rows", fmt.Sprintf("%d", res.Observations), 12)
	PrintKeyValue("Stored", fmt.Sprintf("%d disclosures", res.Stored), 12)
	if res.Overlap {
		PrintWarning("current disclosures were already stored for this date")
	}
	PrintQuality(res.Quality)
	PrintWarnings(res.Warnings)

	fmt.Println()
	PrintSuccess(fmt.Sprintf("Collection completed in %.2fs", res.Duration.Seconds()))
	return nil
}
