// Package sheets reads two-column tables from Google Sheets.
package sheets

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"

	"github.com/teemow/inboxbrief/internal/google"
	"github.com/teemow/inboxbrief/internal/instrumentation"
)

// Client wraps the Sheets spreadsheets service.
type Client struct {
	service *sheets.Service
	account string
	metrics *instrumentation.Metrics
}

// Account returns the account name this client is associated with
func (c *Client) Account() string {
	return c.account
}

// NewClientForAccount creates a Sheets client authorized as account.
func NewClientForAccount(ctx context.Context, account string, metrics *instrumentation.Metrics) (*Client, error) {
	client, err := google.GetHTTPClientForAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("no valid Google OAuth token found for account %s. Please authorize access first: %w", account, err)
	}
	return NewClient(ctx, account, metrics, option.WithHTTPClient(client))
}

// NewClient creates a Sheets client from explicit client options.
func NewClient(ctx context.Context, account string, metrics *instrumentation.Metrics, opts ...option.ClientOption) (*Client, error) {
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Sheets service: %w", err)
	}
	return &Client{service: svc, account: account, metrics: metrics}, nil
}

// ReadTable returns the cells of range in the first sheet as strings, row
// by row. Rows may be shorter than the range when trailing cells are empty.
func (c *Client) ReadTable(ctx context.Context, spreadsheetID, cellRange string) ([][]string, error) {
	var rows [][]string
	err := instrumentation.TrackGoogleAPI(ctx, c.metrics, instrumentation.ServiceSheets, instrumentation.OperationGet,
		func(ctx context.Context) error {
			res, err := c.service.Spreadsheets.Values.Get(spreadsheetID, cellRange).
				Context(ctx).
				ValueRenderOption("FORMATTED_VALUE").
				Do()
			if err != nil {
				return err
			}
			rows = convertValues(res.Values)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from spreadsheet %s: %w", cellRange, spreadsheetID, err)
	}
	return rows, nil
}

func convertValues(values [][]interface{}) [][]string {
	rows := make([][]string, 0, len(values))
	for _, v := range values {
		row := make([]string, len(v))
		for i, cell := range v {
			if cell != nil {
				row[i] = fmt.Sprint(cell)
			}
		}
		rows = append(rows, row)
	}
	return rows
}
