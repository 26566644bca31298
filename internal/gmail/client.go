package gmail

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/oneplace/workspace-mcp/internal/google"
	"github.com/oneplace/workspace-mcp/internal/instrumentation"
)

// System labels used by the mailbox tools.
const (
	LabelInbox      = "INBOX"
	LabelSent       = "SENT"
	LabelDraft      = "DRAFT"
	LabelPromotions = "CATEGORY_PROMOTIONS"
	LabelImportant  = "IMPORTANT"
)

const (
	// DefaultMaxResults is used when a list call does not set a limit.
	DefaultMaxResults = 10
	// MaxPageSize is the largest page the API accepts.
	MaxPageSize = 500

	me = "me"
)

var metadataHeaders = []string{"Subject", "From", "To", "Date"}

// Client wraps the Gmail Users service.
type Client struct {
	users   *gmail.UsersService
	metrics *instrumentation.Metrics
}

// NewClient creates a Gmail client authorized by ts. Extra options are
// applied last, so tests can point the client at a fake endpoint.
func NewClient(ctx context.Context, ts oauth2.TokenSource, metrics *instrumentation.Metrics, opts ...option.ClientOption) (*Client, error) {
	all := append([]option.ClientOption{option.WithHTTPClient(google.NewAPIHTTPClient(ts))}, opts...)
	svc, err := gmail.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return &Client{users: svc.Users, metrics: metrics}, nil
}

// ListOptions selects messages for ListMessages.
type ListOptions struct {
	// Labels restricts the result to messages carrying all of them.
	Labels []string
	// Query uses Gmail search syntax.
	Query string
	// MaxResults defaults to DefaultMaxResults.
	MaxResults int64
	// IncludeBody fetches full messages and extracts the plain text body.
	IncludeBody bool
}

// ListMessages lists messages matching opts and fetches each one.
func (c *Client) ListMessages(ctx context.Context, opts ListOptions) ([]*Message, error) {
	limit := opts.MaxResults
	if limit <= 0 {
		limit = DefaultMaxResults
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	var out []*Message
	err := instrumentation.TrackGoogleAPI(ctx, c.metrics, instrumentation.ServiceGmail, "list", func(ctx context.Context) error {
		call := c.users.Messages.List(me).Context(ctx).MaxResults(limit)
		if len(opts.Labels) > 0 {
			call = call.LabelIds(opts.Labels...)
		}
		if opts.Query != "" {
			call = call.Q(opts.Query)
		}
		res, err := call.Do()
		if err != nil {
			return fmt.Errorf("failed to list messages: %w", err)
		}

		out = make([]*Message, 0, len(res.Messages))
		for _, ref := range res.Messages {
			msg, err := c.getMessage(ctx, ref.Id, opts.IncludeBody)
			if err != nil {
				return err
			}
			out = append(out, msg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) getMessage(ctx context.Context, id string, full bool) (*Message, error) {
	call := c.users.Messages.Get(me, id).Context(ctx)
	if full {
		call = call.Format("full")
	} else {
		call = call.Format("metadata").MetadataHeaders(metadataHeaders...)
	}
	m, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}
	return newMessage(m, full), nil
}

// SendEmail sends msg from the authorized account.
func (c *Client) SendEmail(ctx context.Context, msg *EmailMessage) (*SentMessage, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	var sent *gmail.Message
	err := instrumentation.TrackGoogleAPI(ctx, c.metrics, instrumentation.ServiceGmail, "send", func(ctx context.Context) error {
		var err error
		sent, err = c.users.Messages.Send(me, &gmail.Message{Raw: msg.Raw()}).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &SentMessage{ID: sent.Id, ThreadID: sent.ThreadId}, nil
}

// Profile returns the address of the authorized mailbox. It is the cheapest
// call that proves a token works.
func (c *Client) Profile(ctx context.Context) (string, error) {
	var email string
	err := instrumentation.TrackGoogleAPI(ctx, c.metrics, instrumentation.ServiceGmail, "profile", func(ctx context.Context) error {
		p, err := c.users.GetProfile(me).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to get profile: %w", err)
		}
		if p.EmailAddress == "" {
			return errors.New("profile has no email address")
		}
		email = p.EmailAddress
		return nil
	})
	return email, err
}
