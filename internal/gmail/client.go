package gmail

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/inboxbrief/internal/google"
	"github.com/teemow/inboxbrief/internal/instrumentation"
	"github.com/teemow/inboxbrief/internal/logging"
	"github.com/teemow/inboxbrief/internal/mail"
)

const me = "me"

var (
	_ mail.Mailbox    = (*Client)(nil)
	_ mail.LabelCache = (*Client)(nil)
)

// Client wraps the Gmail Users service
type Client struct {
	svc     *gmail.UsersService
	account string
	metrics *instrumentation.Metrics
	logger  *slog.Logger

	mu       sync.Mutex
	labelIDs map[string]string // name -> id
	names    map[string]string // id -> name
	email    string
}

// Account returns the account name this client is associated with
func (c *Client) Account() string {
	return c.account
}

// NewClientForAccount creates a Gmail client authorized as account.
func NewClientForAccount(ctx context.Context, account string, metrics *instrumentation.Metrics, logger *slog.Logger) (*Client, error) {
	client, err := google.GetHTTPClientForAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("no valid Google OAuth token found for account %s. Please authorize access first: %w", account, err)
	}
	return NewClient(ctx, account, metrics, logger, option.WithHTTPClient(client))
}

// NewClient creates a Gmail client from explicit client options.
func NewClient(ctx context.Context, account string, metrics *instrumentation.Metrics, logger *slog.Logger, opts ...option.ClientOption) (*Client, error) {
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		svc:     svc.Users,
		account: account,
		metrics: metrics,
		logger:  logging.WithService(logger, instrumentation.ServiceGmail),
	}, nil
}

func (c *Client) track(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	return instrumentation.TrackGoogleAPI(ctx, c.metrics, instrumentation.ServiceGmail, operation, fn)
}

// UserEmail returns the mailbox owner's address. The value is cached.
func (c *Client) UserEmail(ctx context.Context) (string, error) {
	c.mu.Lock()
	cached := c.email
	c.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	var email string
	err := c.track(ctx, instrumentation.OperationProfile, func(ctx context.Context) error {
		p, err := c.svc.GetProfile(me).Context(ctx).Do()
		if err != nil {
			return err
		}
		email = p.EmailAddress
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to get profile: %w", err)
	}

	c.mu.Lock()
	c.email = email
	c.mu.Unlock()
	return email, nil
}
