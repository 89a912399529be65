// Package supportclient is a typed client for the support chat HTTP API.
package supportclient

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

const (
	defaultTimeout  = 15 * time.Second
	defaultPageSize = 50
	maxPageSize     = 200
)

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// HTTPClient overrides the transport, e.g. for tests.
	HTTPClient *http.Client
}

type Client struct {
	baseURL string
	token   string
	http    *resty.Client
}

func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("supportclient: base url required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	var rc *resty.Client
	if cfg.HTTPClient != nil {
		rc = resty.NewWithClient(cfg.HTTPClient)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(baseURL).
		SetHeader("User-Agent", "supportchat-client/1.0").
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)
	if cfg.Token != "" {
		rc.SetAuthToken(cfg.Token)
	}
	return &Client{baseURL: baseURL, token: cfg.Token, http: rc}, nil
}

// CreateOrGetThread returns the thread for the context, creating it on first use.
func (c *Client) CreateOrGetThread(ctx context.Context, contextType ContextType, contextID string) (*Thread, bool, error) {
	var out threadEnvelope
	resp, err := c.do(ctx, http.MethodPost, "/api/chat/threads", &out, func(r *resty.Request) {
		r.SetBody(map[string]string{"context_type": string(contextType), "context_id": contextID})
	})
	if err != nil {
		return nil, false, err
	}
	return &out.Thread, resp.StatusCode() == http.StatusCreated, nil
}

func (c *Client) ListThreads(ctx context.Context, f ThreadFilter) ([]Thread, error) {
	var out threadsEnvelope
	_, err := c.do(ctx, http.MethodGet, "/api/chat/threads", &out, func(r *resty.Request) {
		if f.ContextType != "" {
			r.SetQueryParam("context_type", string(f.ContextType))
		}
		if f.ContextID != "" {
			r.SetQueryParam("context_id", f.ContextID)
		}
		if f.Limit > 0 {
			r.SetQueryParam("limit", strconv.Itoa(f.Limit))
		}
	})
	if err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) GetThread(ctx context.Context, threadID uuid.UUID) (*Thread, error) {
	var out threadEnvelope
	if _, err := c.do(ctx, http.MethodGet, "/api/chat/threads/{id}", &out, withID(threadID)); err != nil {
		return nil, err
	}
	return &out.Thread, nil
}

// ListMessages returns one page in ascending seq order.
func (c *Client) ListMessages(ctx context.Context, threadID uuid.UUID, opts ListMessagesOptions) ([]Message, error) {
	return c.listMessages(ctx, "/api/chat/threads/{id}/messages", threadID, opts)
}

// Messages walks the whole log from the newest message back to the first.
// Each range over the result starts again from the newest page.
func (c *Client) Messages(ctx context.Context, threadID uuid.UUID, pageSize int) iter.Seq2[Message, error] {
	pageSize = clampPageSize(pageSize)
	return func(yield func(Message, error) bool) {
		var before *int64
		for {
			page, err := c.ListMessages(ctx, threadID, ListMessagesOptions{Limit: pageSize, BeforeSeq: before})
			if err != nil {
				yield(Message{}, err)
				return
			}
			for i := len(page) - 1; i >= 0; i-- {
				if !yield(page[i], nil) {
					return
				}
			}
			if len(page) == 0 || page[0].Seq <= 1 {
				return
			}
			oldest := page[0].Seq
			before = &oldest
		}
	}
}

// ListFunc is the shape of ListMessages and AdminListMessages.
type ListFunc func(ctx context.Context, threadID uuid.UUID, opts ListMessagesOptions) ([]Message, error)

// CatchUp pages forward from afterSeq until it reaches the newest message and
// returns everything it read in ascending seq order. On error the pages read
// so far are returned with it.
func CatchUp(ctx context.Context, list ListFunc, threadID uuid.UUID, afterSeq int64, pageSize int) ([]Message, error) {
	pageSize = clampPageSize(pageSize)
	var out []Message
	for {
		cursor := afterSeq
		page, err := list(ctx, threadID, ListMessagesOptions{Limit: pageSize, AfterSeq: &cursor})
		if err != nil {
			return out, err
		}
		out = append(out, page...)
		if len(page) < pageSize || page[len(page)-1].Seq <= afterSeq {
			return out, nil
		}
		afterSeq = page[len(page)-1].Seq
	}
}

func clampPageSize(n int) int {
	if n <= 0 {
		return defaultPageSize
	}
	return min(n, maxPageSize)
}

// PostMessage appends a user message. A repeated clientID returns the original
// message with created=false.
func (c *Client) PostMessage(ctx context.Context, threadID uuid.UUID, text, clientID string) (*Message, bool, error) {
	return c.postMessage(ctx, "/api/chat/threads/{id}/messages", threadID, text, clientID)
}

func (c *Client) RequestAdminHandoff(ctx context.Context, threadID uuid.UUID, note string) (*Thread, error) {
	var out threadEnvelope
	_, err := c.do(ctx, http.MethodPost, "/api/chat/threads/{id}/request-admin", &out, withID(threadID), func(r *resty.Request) {
		r.SetBody(map[string]string{"note": note})
	})
	if err != nil {
		return nil, err
	}
	return &out.Thread, nil
}

func (c *Client) MarkRead(ctx context.Context, threadID uuid.UUID) error {
	_, err := c.do(ctx, http.MethodPost, "/api/chat/threads/{id}/read", nil, withID(threadID))
	return err
}

// ListQueue is the admin queue, most recently updated first.
func (c *Client) ListQueue(ctx context.Context, opts QueueOptions) ([]Thread, error) {
	var out threadsEnvelope
	_, err := c.do(ctx, http.MethodGet, "/api/admin/chat/threads", &out, func(r *resty.Request) {
		if opts.State != "" {
			r.SetQueryParam("state", opts.State)
		}
		if opts.AssignedToMe {
			r.SetQueryParam("assigned", "me")
		}
		if opts.Limit > 0 {
			r.SetQueryParam("limit", strconv.Itoa(opts.Limit))
		}
	})
	if err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) AdminGetThread(ctx context.Context, threadID uuid.UUID) (*Thread, error) {
	var out threadEnvelope
	if _, err := c.do(ctx, http.MethodGet, "/api/admin/chat/threads/{id}", &out, withID(threadID)); err != nil {
		return nil, err
	}
	return &out.Thread, nil
}

func (c *Client) AdminListMessages(ctx context.Context, threadID uuid.UUID, opts ListMessagesOptions) ([]Message, error) {
	return c.listMessages(ctx, "/api/admin/chat/threads/{id}/messages", threadID, opts)
}

func (c *Client) AdminPostMessage(ctx context.Context, threadID uuid.UUID, text, clientID string) (*Message, bool, error) {
	return c.postMessage(ctx, "/api/admin/chat/threads/{id}/messages", threadID, text, clientID)
}

// TakeOver assigns the thread to the caller, or to opts.AdminUserID.
func (c *Client) TakeOver(ctx context.Context, threadID uuid.UUID, opts TakeOverOptions) (*Thread, error) {
	var out threadEnvelope
	_, err := c.do(ctx, http.MethodPost, "/api/admin/chat/threads/{id}/takeover", &out, withID(threadID), func(r *resty.Request) {
		r.SetBody(opts)
	})
	if err != nil {
		return nil, err
	}
	return &out.Thread, nil
}

// ReleaseToAI hands the thread back to the assistant; an empty provider keeps the current one.
func (c *Client) ReleaseToAI(ctx context.Context, threadID uuid.UUID, provider string) (*Thread, error) {
	body := map[string]string{}
	if provider != "" {
		body["provider"] = provider
	}
	var out threadEnvelope
	_, err := c.do(ctx, http.MethodPost, "/api/admin/chat/threads/{id}/release-to-ai", &out, withID(threadID), func(r *resty.Request) {
		r.SetBody(body)
	})
	if err != nil {
		return nil, err
	}
	return &out.Thread, nil
}

func (c *Client) SetAIProvider(ctx context.Context, threadID uuid.UUID, provider string) (*Thread, error) {
	var out threadEnvelope
	_, err := c.do(ctx, http.MethodPatch, "/api/admin/chat/threads/{id}/ai-provider", &out, withID(threadID), func(r *resty.Request) {
		r.SetBody(map[string]string{"provider": provider})
	})
	if err != nil {
		return nil, err
	}
	return &out.Thread, nil
}

func (c *Client) listMessages(ctx context.Context, path string, threadID uuid.UUID, opts ListMessagesOptions) ([]Message, error) {
	var out messagesEnvelope
	_, err := c.do(ctx, http.MethodGet, path, &out, withID(threadID), func(r *resty.Request) {
		if opts.Limit > 0 {
			r.SetQueryParam("limit", strconv.Itoa(opts.Limit))
		}
		if opts.BeforeSeq != nil {
			r.SetQueryParam("before_seq", strconv.FormatInt(*opts.BeforeSeq, 10))
		}
		if opts.AfterSeq != nil {
			r.SetQueryParam("after_seq", strconv.FormatInt(*opts.AfterSeq, 10))
		}
	})
	if err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) postMessage(ctx context.Context, path string, threadID uuid.UUID, text, clientID string) (*Message, bool, error) {
	var out messageEnvelope
	resp, err := c.do(ctx, http.MethodPost, path, &out, withID(threadID), func(r *resty.Request) {
		r.SetBody(map[string]string{"text": text, "client_id": clientID})
	})
	if err != nil {
		return nil, false, err
	}
	return &out.Message, resp.StatusCode() == http.StatusCreated, nil
}

func withID(id uuid.UUID) func(*resty.Request) {
	return func(r *resty.Request) { r.SetPathParam("id", id.String()) }
}

func (c *Client) do(ctx context.Context, method, path string, result any, opts ...func(*resty.Request)) (*resty.Response, error) {
	var apiErr errorEnvelope
	req := c.http.R().SetContext(ctx).SetError(&apiErr)
	if result != nil {
		req.SetResult(result)
	}
	for _, o := range opts {
		o(req)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &TransientNetworkError{Err: err}
	}
	if resp.IsError() {
		return resp, statusError(resp.StatusCode(), &apiErr, strings.TrimSpace(resp.String()))
	}
	return resp, nil
}
