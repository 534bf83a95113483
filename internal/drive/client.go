package drive

import (
	"context"
	"errors"
	"fmt"
	"strings"

	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/teemow/inboxbrief/internal/google"
	"github.com/teemow/inboxbrief/internal/instrumentation"
)

// SpreadsheetMimeType is the MIME type of Google Sheets files.
const SpreadsheetMimeType = "application/vnd.google-apps.spreadsheet"

// ErrNotFound is returned when no file matches.
var ErrNotFound = errors.New("file not found")

// FileInfo describes a Drive file.
type FileInfo struct {
	ID           string
	Name         string
	MimeType     string
	ModifiedTime string
}

// Client wraps the Google Drive API service
type Client struct {
	service *drive.Service
	account string
	metrics *instrumentation.Metrics
}

// Account returns the account name this client is associated with
func (c *Client) Account() string {
	return c.account
}

// NewClientForAccount creates a Drive client authorized as account.
func NewClientForAccount(ctx context.Context, account string, metrics *instrumentation.Metrics) (*Client, error) {
	client, err := google.GetHTTPClientForAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("no valid Google OAuth token found for account %s. Please authorize access first: %w", account, err)
	}
	return NewClient(ctx, account, metrics, option.WithHTTPClient(client))
}

// NewClient creates a Drive client from explicit client options.
func NewClient(ctx context.Context, account string, metrics *instrumentation.Metrics, opts ...option.ClientOption) (*Client, error) {
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}
	return &Client{service: svc, account: account, metrics: metrics}, nil
}

// FindSpreadsheet returns the ID of the most recently modified spreadsheet
// with exactly the given name, excluding trashed files.
func (c *Client) FindSpreadsheet(ctx context.Context, name string) (string, error) {
	files, err := c.findByName(ctx, name, SpreadsheetMimeType)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", fmt.Errorf("%w: spreadsheet %q", ErrNotFound, name)
	}
	return files[0].ID, nil
}

func (c *Client) findByName(ctx context.Context, name, mimeType string) ([]FileInfo, error) {
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", escapeQuery(name), mimeType)

	var files []FileInfo
	err := instrumentation.TrackGoogleAPI(ctx, c.metrics, instrumentation.ServiceDrive, instrumentation.OperationList,
		func(ctx context.Context) error {
			res, err := c.service.Files.List().
				Context(ctx).
				Q(q).
				OrderBy("modifiedTime desc").
				PageSize(10).
				Fields("files(id, name, mimeType, modifiedTime)").
				Do()
			if err != nil {
				return err
			}
			for _, f := range res.Files {
				files = append(files, convertToFileInfo(f))
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to search Drive for %q: %w", name, err)
	}
	return files, nil
}

func convertToFileInfo(f *drive.File) FileInfo {
	return FileInfo{
		ID:           f.Id,
		Name:         f.Name,
		MimeType:     f.MimeType,
		ModifiedTime: f.ModifiedTime,
	}
}

// escapeQuery escapes a value for use inside a quoted Drive query string.
func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
