// Package api is the authenticated REST client for the TaskFlow backend.
//
// Every call goes through Client.do, which attaches the bearer token from the session store and
// recovers from an expired access token with exactly one refresh and one replay.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"taskflow-cli/internal/model"
	"taskflow-cli/internal/session"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrSessionExpired is returned when a 401 could not be recovered by a token refresh.
// The session has already been cleared when callers see it.
var ErrSessionExpired = errors.New("session expired; run `taskflow login`")

type Options struct {
	// APIURL is the backend origin (scheme://host[:port]); REST lives under /api/.
	APIURL string
	// WSURL overrides the WebSocket origin. Empty means derive it from APIURL.
	WSURL      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger

	// OnSessionExpired runs after an unrecoverable 401 has logged the session out.
	OnSessionExpired func()
}

type Client struct {
	origin   *url.URL
	wsOrigin string
	hc       *http.Client
	sess     *session.Store
	log      *zap.Logger

	onExpired func()

	Auth          AuthAPI
	Tasks         TasksAPI
	Users         UsersAPI
	Roles         RolesAPI
	Chat          ChatAPI
	Notifications NotificationsAPI
	Attachments   AttachmentsAPI
}

// New builds a client bound to sess and installs the refresh exchange on sess.
func New(sess *session.Store, opts Options) (*Client, error) {
	if sess == nil {
		return nil, errors.New("api: nil session")
	}
	raw := strings.TrimRight(strings.TrimSpace(opts.APIURL), "/")
	origin, err := url.Parse(raw)
	if err != nil || origin.Host == "" {
		return nil, fmt.Errorf("api: invalid base url %q", opts.APIURL)
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{
		origin:    origin,
		wsOrigin:  strings.TrimRight(strings.TrimSpace(opts.WSURL), "/"),
		hc:        hc,
		sess:      sess,
		log:       log,
		onExpired: opts.OnSessionExpired,
	}
	c.Auth = AuthAPI{c: c}
	c.Tasks = TasksAPI{c: c}
	c.Users = UsersAPI{c: c}
	c.Roles = RolesAPI{c: c}
	c.Chat = ChatAPI{c: c}
	c.Notifications = NotificationsAPI{c: c}
	c.Attachments = AttachmentsAPI{c: c}

	sess.SetRefresher(func(ctx context.Context, refresh string) (string, *model.User, error) {
		res, err := c.Auth.Refresh(ctx, refresh)
		if err != nil {
			return "", nil, err
		}
		return res.Access, res.User, nil
	})
	return c, nil
}

func (c *Client) Session() *session.Store { return c.sess }

// SetOnSessionExpired replaces the hook; the TUI installs it once its program exists.
func (c *Client) SetOnSessionExpired(fn func()) { c.onExpired = fn }

// Origin is the backend origin without the /api suffix.
func (c *Client) Origin() string { return c.origin.String() }

// WebSocketURL returns ws(s)://host<path>?<params>. The origin comes from WSURL when set,
// otherwise from the API origin with http→ws and https→wss.
func (c *Client) WebSocketURL(path string, params url.Values) string {
	base := c.wsOrigin
	if base == "" {
		u := *c.origin
		switch u.Scheme {
		case "https":
			u.Scheme = "wss"
		default:
			u.Scheme = "ws"
		}
		u.Path, u.RawQuery, u.Fragment = "", "", ""
		base = strings.TrimRight(u.String(), "/")
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	out := base + path
	if len(params) > 0 {
		out += "?" + params.Encode()
	}
	return out
}

type request struct {
	method      string
	path        string // relative to /api/
	query       url.Values
	body        []byte // buffered so a 401 replay can resend it
	contentType string
	noAuth      bool
}

type response struct {
	status int
	header http.Header
	body   []byte
}

// do sends r. A 401 on an authenticated request triggers one session refresh; on success the
// request is replayed once, on failure the session is logged out and ErrSessionExpired returned.
func (c *Client) do(ctx context.Context, r request) (*response, error) {
	reqID := uuid.NewString()
	resp, err := c.send(ctx, r, reqID)
	if err != nil {
		return nil, err
	}
	if resp.status == http.StatusUnauthorized && !r.noAuth {
		c.log.Debug("access token rejected; refreshing", zap.String("request_id", reqID), zap.String("path", r.path))
		if !c.sess.Refresh(ctx) {
			c.expire(ctx)
			return nil, ErrSessionExpired
		}
		resp, err = c.send(ctx, r, reqID)
		if err != nil {
			return nil, err
		}
	}
	if resp.status < 200 || resp.status > 299 {
		return nil, newAPIError(resp.status, resp.body)
	}
	return resp, nil
}

func (c *Client) send(ctx context.Context, r request, reqID string) (*response, error) {
	u := c.endpoint(r.path, r.query)
	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if !r.noAuth {
		if tok := c.sess.Token(); tok != nil && tok.AccessToken != "" {
			tok.SetAuthHeader(req)
		}
	}

	start := time.Now()
	res, err := c.hc.Do(req)
	if err != nil {
		c.log.Debug("request failed", zap.String("request_id", reqID), zap.String("method", r.method), zap.String("path", r.path), zap.Error(err))
		return nil, fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", r.method, r.path, err)
	}
	c.log.Debug("request",
		zap.String("request_id", reqID),
		zap.String("method", r.method),
		zap.String("path", r.path),
		zap.Int("status", res.StatusCode),
		zap.Duration("took", time.Since(start)),
	)
	return &response{status: res.StatusCode, header: res.Header, body: b}, nil
}

func (c *Client) expire(ctx context.Context) {
	c.sess.Logout(ctx)
	if c.onExpired != nil {
		c.onExpired()
	}
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := *c.origin
	u.Path = strings.TrimRight(u.Path, "/") + "/api/" + strings.TrimLeft(path, "/")
	u.RawQuery = ""
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	resp, err := c.do(ctx, request{method: http.MethodGet, path: path, query: q})
	if err != nil {
		return err
	}
	return decodeInto(resp.body, out)
}

// sendJSON sends in (nil for no body) and decodes the response into out (nil to discard).
func (c *Client) sendJSON(ctx context.Context, method, path string, in, out any) error {
	r := request{method: method, path: path}
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		r.body = b
		r.contentType = "application/json"
	}
	resp, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	return decodeInto(resp.body, out)
}

// getBytes fetches a binary payload and its content type.
func (c *Client) getBytes(ctx context.Context, path string) ([]byte, string, error) {
	resp, err := c.do(ctx, request{method: http.MethodGet, path: path})
	if err != nil {
		return nil, "", err
	}
	return resp.body, resp.header.Get("Content-Type"), nil
}

// getList accepts both a bare array and a paginated object.
func getList[T any](ctx context.Context, c *Client, path string, q url.Values) (model.Page[T], error) {
	resp, err := c.do(ctx, request{method: http.MethodGet, path: path, query: q})
	if err != nil {
		return model.Page[T]{}, err
	}
	p, err := model.DecodePage[T](resp.body)
	if err != nil {
		return model.Page[T]{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return p, nil
}

func decodeInto(b []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	return json.Unmarshal(b, out)
}
