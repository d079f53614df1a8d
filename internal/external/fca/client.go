package fca

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/shorttracker/internal/contracts"
	"github.com/wonny/shorttracker/pkg/config"
	"github.com/wonny/shorttracker/pkg/httputil"
	"github.com/wonny/shorttracker/pkg/logger"
)

// Client downloads the FCA daily short positions workbook
// ⭐ SSOT: FCA 공시 파일 다운로드는 이 클라이언트에서만
type Client struct {
	httpClient  *httputil.Client
	logger      *logger.Logger
	pageURL     string
	workbookURL string
}

// NewClient creates a new FCA client
func NewClient(httpClient *httputil.Client, cfg config.FCAConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient:  httpClient,
		logger:      log.Module("fca"),
		pageURL:     cfg.PageURL,
		workbookURL: cfg.WorkbookURL,
	}
}

// Fetch downloads and parses the latest workbook
func (c *Client) Fetch(ctx context.Context) (*contracts.DisclosureFile, error) {
	return c.FetchModifiedSince(ctx, time.Time{})
}

// FetchModifiedSince is Fetch with a freshness check: a workbook last
// modified before since fails with ErrNotUpdated. A zero since skips the check.
func (c *Client) FetchModifiedSince(ctx context.Context, since time.Time) (*contracts.DisclosureFile, error) {
	link := c.resolveWorkbookURL(ctx)

	resp, err := c.httpClient.Get(ctx, link, nil)
	if err != nil {
		return nil, fmt.Errorf("download workbook: %w", err)
	}

	lastModified := parseLastModified(resp.Header.Get("Last-Modified"))
	body, err := httputil.ReadBody(resp)
	if err != nil {
		return nil, fmt.Errorf("download workbook: %w", err)
	}

	if !since.IsZero() {
		if lastModified.IsZero() {
			return nil, fmt.Errorf("workbook at %s has no Last-Modified header: %w", link, contracts.ErrNotUpdated)
		}
		if lastModified.Before(since) {
			return nil, fmt.Errorf("workbook at %s updated at %s, expected >= %s: %w",
				link, lastModified.Format(time.RFC3339), since.Format(time.RFC3339), contracts.ErrNotUpdated)
		}
	}

	file, err := ParseWorkbook(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse workbook %s: %w", link, err)
	}
	file.LastModified = lastModified

	c.logger.WithFields(map[string]interface{}{
		"url":           link,
		"report_date":   file.ReportDate.Format("2006-01-02"),
		"current_rows":  len(file.Current.Rows),
		"historic_rows": len(file.Historic.Rows),
	}).Info("Fetched short positions workbook")

	return file, nil
}

// resolveWorkbookURL looks up the workbook link on the disclosure page and
// falls back to the configured URL
func (c *Client) resolveWorkbookURL(ctx context.Context) string {
	if c.pageURL == "" {
		return c.workbookURL
	}
	link, err := c.DiscoverWorkbookURL(ctx)
	if err != nil {
		c.logger.WithError(err).Warn("Workbook link discovery failed, using configured URL")
		return c.workbookURL
	}
	return link
}

// DiscoverWorkbookURL finds the daily .xlsx link on the disclosure page
func (c *Client) DiscoverWorkbookURL(ctx context.Context) (string, error) {
	resp, err := c.httpClient.Get(ctx, c.pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("fetch disclosure page: %w", err)
	}
	body, err := httputil.ReadBody(resp)
	if err != nil {
		return "", fmt.Errorf("fetch disclosure page: %w", err)
	}
	return FindWorkbookLink(c.pageURL, body)
}

// FindWorkbookLink returns the first short positions .xlsx link in the page,
// resolved against pageURL
func FindWorkbookLink(pageURL string, html []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse disclosure page: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid page URL: %w", err)
	}

	var found string
	doc.Find("a[href]").EachWithBreak(func(i int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		lower := strings.ToLower(href)
		if !strings.HasSuffix(lower, ".xlsx") || !strings.Contains(lower, "short-positions") {
			return true
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return true
		}
		found = base.ResolveReference(ref).String()
		return false
	})

	if found == "" {
		return "", errors.New("no short positions workbook link on page")
	}
	return found, nil
}

func parseLastModified(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := http.ParseTime(v)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
