package fca

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/wonny/shorttracker/internal/contracts"
	"github.com/wonny/shorttracker/pkg/config"
	"github.com/wonny/shorttracker/pkg/httputil"
	"github.com/wonny/shorttracker/pkg/logger"
)

var header = []interface{}{"Position Holder", "Name of Share Issuer", "ISIN", "Net Short Position (%)", "Position Date"}

func buildWorkbook(t *testing.T, sheets ...string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, name := range sheets {
		if i == 0 {
			require.NoError(t, f.SetSheetName(f.GetSheetName(0), name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		require.NoError(t, f.SetSheetRow(name, "A1", &header))
		row := []interface{}{"Fund A", "Barclays plc", "GB0031348658", 0.62, "2024-01-03"}
		require.NoError(t, f.SetSheetRow(name, "A2", &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParseSheetNames(t *testing.T) {
	tests := []struct {
		name      string
		sheets    []string
		wantKinds []string
		wantErr   bool
	}{
		{"valid", []string{"Current Disclosures 05.01.2024", "Historic Disclosures 05.01.2024"}, []string{SheetCurrent, SheetHistoric}, false},
		{"historic first", []string{"Historic Disclosures 05.01.2024", "Current Disclosures 05.01.2024"}, []string{SheetHistoric, SheetCurrent}, false},
		{"one sheet", []string{"Current Disclosures 05.01.2024"}, nil, true},
		{"date mismatch", []string{"Current Disclosures 05.01.2024", "Historic Disclosures 04.01.2024"}, nil, true},
		{"two current", []string{"Current Disclosures 05.01.2024", "Current Disclosures 05.01.2024"}, nil, true},
		{"unknown kind", []string{"Current Disclosures 05.01.2024", "Summary Disclosures 05.01.2024"}, nil, true},
		{"short name", []string{"Current", "Historic"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kinds, date, err := ParseSheetNames(tt.sheets)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKinds, kinds)
			assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), date)
		})
	}
}

func TestParseWorkbook(t *testing.T) {
	data := buildWorkbook(t, "Current Disclosures 05.01.2024", "Historic Disclosures 05.01.2024")

	file, err := ParseWorkbook(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), file.ReportDate)
	assert.Equal(t, SheetCurrent, file.Current.Name)
	assert.Equal(t, "Position Holder", file.Current.Header[0])
	require.Len(t, file.Current.Rows, 1)
	assert.Equal(t, "GB0031348658", file.Current.Rows[0][2])
	require.Len(t, file.Historic.Rows, 1)
}

func TestParseWorkbookHistoricFirst(t *testing.T) {
	data := buildWorkbook(t, "Historic Disclosures 05.01.2024", "Current Disclosures 05.01.2024")

	file, err := ParseWorkbook(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), file.ReportDate)
	assert.Equal(t, SheetCurrent, file.Current.Name)
	assert.Equal(t, SheetHistoric, file.Historic.Name)
	require.Len(t, file.Current.Rows, 1)
}

func TestParseWorkbookRejectsLayout(t *testing.T) {
	data := buildWorkbook(t, "Sheet One Two")
	_, err := ParseWorkbook(bytes.NewReader(data))
	assert.Error(t, err)
}

func TestFindWorkbookLink(t *testing.T) {
	html := []byte(`<html><body>
		<a href="/publication/data/other.pdf">Other</a>
		<a href="/publication/data/short-positions-daily-update.xlsx">Daily update</a>
	</body></html>`)

	link, err := FindWorkbookLink("https://www.fca.org.uk/markets/short-selling", html)
	require.NoError(t, err)
	assert.Equal(t, "https://www.fca.org.uk/publication/data/short-positions-daily-update.xlsx", link)

	_, err = FindWorkbookLink("https://www.fca.org.uk/", []byte(`<a href="x.xlsx">x</a>`))
	assert.Error(t, err)
}

func newServer(t *testing.T, workbook []byte, modified time.Time) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<a href="/files/short-positions-daily-update.xlsx">xlsx</a>`)
	})
	mux.HandleFunc("/files/short-positions-daily-update.xlsx", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Last-Modified", modified.UTC().Format(http.TimeFormat))
		w.Write(workbook)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestFetch(t *testing.T) {
	modified := time.Date(2024, 1, 5, 16, 0, 0, 0, time.UTC)
	server := newServer(t, buildWorkbook(t, "Current Disclosures 05.01.2024", "Historic Disclosures 05.01.2024"), modified)

	client := NewClient(httputil.New(logger.Nop()).DisableRetry(), config.FCAConfig{
		PageURL:     server.URL + "/page",
		WorkbookURL: server.URL + "/missing.xlsx",
	}, logger.Nop())

	file, err := client.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, modified, file.LastModified)
	assert.Len(t, file.Current.Rows, 1)

	_, err = client.FetchModifiedSince(context.Background(), modified.Add(time.Hour))
	assert.True(t, errors.Is(err, contracts.ErrNotUpdated))

	_, err = client.FetchModifiedSince(context.Background(), modified.Add(-time.Hour))
	assert.NoError(t, err)
}

func TestFetchFallsBackToConfiguredURL(t *testing.T) {
	modified := time.Date(2024, 1, 5, 16, 0, 0, 0, time.UTC)
	server := newServer(t, buildWorkbook(t, "Current Disclosures 05.01.2024", "Historic Disclosures 05.01.2024"), modified)

	client := NewClient(httputil.New(logger.Nop()).DisableRetry(), config.FCAConfig{
		PageURL:     server.URL + "/nope",
		WorkbookURL: server.URL + "/files/short-positions-daily-update.xlsx",
	}, logger.Nop())

	file, err := client.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), file.ReportDate)
}
