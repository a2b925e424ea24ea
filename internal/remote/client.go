// Package remote talks to the service.php API of the ticketing system.
package remote

import (
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
)

// Paths of the remote endpoints, resolved against the configured base URL.
const (
	LoginPath       = "/service.php/home/login.xml"
	RepertoirePath  = "/service.php/repertoire/list.xml"
	SynchronizePath = "/service.php/usher/%s/synchronize.xml"

	// SessionParam carries the session token in the query string.
	SessionParam = "symfony"
)

const defaultTimeout = 30 * time.Second

// Response is a raw reply of the remote service.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client issues requests against one remote service.
type Client struct {
	base      *url.URL
	http      *http.Client
	userAgent string
}

// OptionTimeout sets the timeout of the default http client.
func OptionTimeout(timeout time.Duration) func(*Client) error {
	return func(client *Client) error {
		client.http.Timeout = timeout
		return nil
	}
}

// OptionUserAgent sets the User-Agent header of every request.
func OptionUserAgent(userAgent string) func(*Client) error {
	return func(client *Client) error {
		client.userAgent = userAgent
		return nil
	}
}

// NewClient creates a client for the service at `baseURL`.
func NewClient(baseURL string, options ...func(*Client) error) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing endpoint url")
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errors.Errorf("endpoint url %q is not absolute", baseURL)
	}
	client := &Client{
		base: base,
		http: &http.Client{
			Transport: &http.Transport{
				Proxy:              http.ProxyFromEnvironment,
				DisableKeepAlives:  false,
				DisableCompression: false,
				IdleConnTimeout:    90 * time.Second,
			},
			Timeout: defaultTimeout,
		},
	}
	for _, option := range options {
		if err := option(client); err != nil {
			return nil, err
		}
	}
	return client, nil
}

// Login requests a new session for the given credentials.
func (c *Client) Login(ctx context.Context, login, password string) (*Response, error) {
	query := url.Values{}
	query.Set("login", login)
	query.Set("password", password)
	return c.get(ctx, LoginPath, query, "")
}

// Repertoire requests the event list.
func (c *Client) Repertoire(ctx context.Context, token string) (*Response, error) {
	return c.get(ctx, RepertoirePath, sessionQuery(token), token)
}

// Synchronize requests the ticket records of one event.
func (c *Client) Synchronize(ctx context.Context, token, eventID string) (*Response, error) {
	path := fmt.Sprintf(SynchronizePath, url.PathEscape(eventID))
	return c.get(ctx, path, sessionQuery(token), token)
}

// URL returns the absolute url of `path` with `query`.
func (c *Client) URL(path string, query url.Values) string {
	u := c.base.ResolveReference(&url.URL{Path: path})
	u.RawQuery = query.Encode()
	return u.String()
}

func (c *Client) get(ctx context.Context, path string, query url.Values, token string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(path, query), nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}
	req.Header.Set("Accept", "application/xml")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if token != "" {
		req.Header.Set("Cookie", fmt.Sprintf("PHPSESSID=%s; symfony=%s", token, token))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "requesting %s", path)
	}
	defer resp.Body.Close()
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "reading response body of %s", path)
	}
	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

func sessionQuery(token string) url.Values {
	query := url.Values{}
	query.Set(SessionParam, token)
	return query
}
