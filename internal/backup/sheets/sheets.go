// Package sheets backs the snapshot up into a Google spreadsheet, one tab per
// collection, so the data stays readable in the Sheets UI.
package sheets

import (
	"context"
	"fmt"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"moneylog/internal/backup"
	"moneylog/internal/backup/googleauth"
	"moneylog/internal/core"
)

const Scope = gsheet.SpreadsheetsScope

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	now           func() time.Time
}

var _ backup.Remote = (*Client)(nil)

func New(svc *gsheet.Service, spreadsheetID string) *Client {
	return &Client{svc: svc, spreadsheetID: strings.TrimSpace(spreadsheetID), now: time.Now}
}

// NewFromCredentials authenticates with a stored OAuth token.
func NewFromCredentials(ctx context.Context, client, token googleauth.Source, spreadsheetID string, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, fmt.Errorf("missing GOOGLE_SPREADSHEET_ID")
	}
	hc, err := googleauth.HTTPClient(ctx, client, token, Scope)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx, append([]goption.ClientOption{goption.WithHTTPClient(hc)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return New(svc, spreadsheetID), nil
}

func (c *Client) Name() string { return "sheets" }

func (c *Client) SessionActive() bool { return c.svc != nil && c.spreadsheetID != "" }

func (c *Client) Save(ctx context.Context, snap core.Snapshot) error {
	if !c.SessionActive() {
		return backup.ErrNoSession
	}
	if err := c.ensureTabs(ctx); err != nil {
		return err
	}

	ranges := make([]string, len(allTabs))
	for i, tab := range allTabs {
		ranges[i] = quoteTab(tab)
	}
	if _, err := c.svc.Spreadsheets.Values.BatchClear(c.spreadsheetID,
		&gsheet.BatchClearValuesRequest{Ranges: ranges}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear backup tabs: %w", err)
	}

	tables := encodeTabs(snap, c.now())
	data := make([]*gsheet.ValueRange, 0, len(allTabs))
	for _, tab := range allTabs {
		data = append(data, &gsheet.ValueRange{
			Range:  quoteTab(tab) + "!A1",
			Values: tables[tab],
		})
	}
	if _, err := c.svc.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data:             data,
	}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("write backup tabs: %w", err)
	}
	return nil
}

func (c *Client) Load(ctx context.Context) (*backup.RemoteSnapshot, error) {
	if !c.SessionActive() {
		return nil, backup.ErrNoSession
	}
	present, err := c.tabTitles(ctx)
	if err != nil {
		return nil, err
	}
	if !present[tabMeta] {
		return nil, nil
	}

	ranges := make([]string, len(allTabs))
	for i, tab := range allTabs {
		ranges[i] = quoteTab(tab)
	}
	resp, err := c.svc.Spreadsheets.Values.BatchGet(c.spreadsheetID).
		Ranges(ranges...).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read backup tabs: %w", err)
	}

	tables := make(map[string][][]any, len(allTabs))
	for i, vr := range resp.ValueRanges {
		if i < len(allTabs) {
			tables[allTabs[i]] = vr.Values
		}
	}
	return decodeTabs(tables)
}

func (c *Client) tabTitles(ctx context.Context) (map[string]bool, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read spreadsheet: %w", err)
	}
	titles := make(map[string]bool, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			titles[sh.Properties.Title] = true
		}
	}
	return titles, nil
}

func (c *Client) ensureTabs(ctx context.Context) error {
	present, err := c.tabTitles(ctx)
	if err != nil {
		return err
	}
	var reqs []*gsheet.Request
	for _, tab := range missingTabs(present) {
		reqs = append(reqs, &gsheet.Request{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: tab}},
		})
	}
	if len(reqs) == 0 {
		return nil
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID,
		&gsheet.BatchUpdateSpreadsheetRequest{Requests: reqs}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("create backup tabs: %w", err)
	}
	return nil
}

func missingTabs(present map[string]bool) []string {
	var out []string
	for _, tab := range allTabs {
		if !present[tab] {
			out = append(out, tab)
		}
	}
	return out
}

func quoteTab(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
