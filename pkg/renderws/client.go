// Package renderws speaks the render web service's spec endpoints: listing
// stacks and getting or putting transform and tile specs by id. It provides
// both sides of the wire: [Client] for talking to a running service and
// [Server] for exposing a local [store.Store] under the same routes.
package renderws

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/matzehuels/tilewarp/pkg/cache"
	"github.com/matzehuels/tilewarp/pkg/errors"
	"github.com/matzehuels/tilewarp/pkg/httputil"
	"github.com/matzehuels/tilewarp/pkg/observability"
	"github.com/matzehuels/tilewarp/pkg/store"
	"github.com/matzehuels/tilewarp/pkg/tilespec"
	"github.com/matzehuels/tilewarp/pkg/transform"
)

const httpTimeout = 10 * time.Second

// DefaultTTL bounds cached GET responses when the caller does not set one.
const DefaultTTL = 24 * time.Hour

// Client talks to a render web service. GET responses are cached; all
// requests are retried with backoff on transient failures. Client
// implements [store.Store], so commands can target a remote service or a
// local database through the same interface.
type Client struct {
	http    *http.Client
	base    string
	host    string
	cache   cache.Cache
	keyer   cache.Keyer
	ttl     time.Duration
	headers map[string]string
}

// ClientOptions configure a service client.
type ClientOptions struct {
	// BaseURL is the service root, e.g. http://localhost:8080/render-ws/v1.
	BaseURL string

	// Cache stores GET responses. Nil disables response caching.
	Cache cache.Cache

	// Keyer builds cache keys. Nil uses the standard scheme; pass a
	// [cache.ScopedKeyer] when several services share one cache backend.
	Keyer cache.Keyer

	// TTL bounds the lifetime of cached responses. Zero means [DefaultTTL].
	TTL time.Duration

	// Headers are applied to every request.
	Headers map[string]string
}

// NewClient validates the base URL and returns a service client.
func NewClient(opts ClientOptions) (*Client, error) {
	if err := errors.ValidateURL(opts.BaseURL); err != nil {
		return nil, err
	}
	u, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfig, err, "parsing base url %q", opts.BaseURL)
	}

	c := opts.Cache
	if c == nil {
		c = cache.NewNullCache()
	}
	k := opts.Keyer
	if k == nil {
		k = cache.NewDefaultKeyer()
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Client{
		http:    &http.Client{Timeout: httpTimeout},
		base:    strings.TrimRight(opts.BaseURL, "/"),
		host:    u.Host,
		cache:   c,
		keyer:   k,
		ttl:     ttl,
		headers: opts.Headers,
	}, nil
}

// Stacks lists the stacks the service knows about.
func (c *Client) Stacks(ctx context.Context) ([]string, error) {
	data, err := c.cachedGet(ctx, "http", c.keyer.HTTPKey(c.host, "/stacks"), c.url("stacks"), "stack list")
	if err != nil {
		return nil, err
	}
	var stacks []string
	if err := json.Unmarshal(data, &stacks); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFormat, err, "decoding stack list")
	}
	return stacks, nil
}

// GetTransform fetches the transform spec with the given id.
func (c *Client) GetTransform(ctx context.Context, stack, id string) (transform.Transform, error) {
	if err := errors.ValidateStackName(stack); err != nil {
		return nil, err
	}
	if err := errors.ValidateTransformID(id); err != nil {
		return nil, err
	}
	data, err := c.cachedGet(ctx, "transform", c.keyer.TransformKey(stack, id),
		c.url("stack", stack, "transform", id), "transform "+id)
	if err != nil {
		return nil, err
	}
	return transform.Decode(data)
}

type putTransformResponse struct {
	TransformID string `json:"transformId"`
}

// PutTransform uploads a transform spec. The service assigns an id when
// the spec carries none; the returned id is authoritative.
func (c *Client) PutTransform(ctx context.Context, stack string, t transform.Transform) (string, error) {
	if err := errors.ValidateStackName(stack); err != nil {
		return "", err
	}
	body, err := transform.Encode(t)
	if err != nil {
		return "", err
	}

	var resp putTransformResponse
	err = httputil.RetryWithBackoff(ctx, func() error {
		data, err := c.doRequest(ctx, http.MethodPut, c.url("stack", stack, "transform"), body, "transform")
		if err != nil {
			return err
		}
		return json.Unmarshal(data, &resp)
	})
	if err != nil {
		return "", err
	}

	// Drop cache entries the upload made stale.
	_ = c.cache.Delete(ctx, c.keyer.TransformKey(stack, resp.TransformID))
	_ = c.cache.Delete(ctx, c.keyer.HTTPKey(c.host, "/stack/"+stack+"/transforms"))
	return resp.TransformID, nil
}

// ListTransforms lists the transform ids in a stack.
func (c *Client) ListTransforms(ctx context.Context, stack string) ([]string, error) {
	if err := errors.ValidateStackName(stack); err != nil {
		return nil, err
	}
	data, err := c.cachedGet(ctx, "http", c.keyer.HTTPKey(c.host, "/stack/"+stack+"/transforms"),
		c.url("stack", stack, "transforms"), "transform list")
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFormat, err, "decoding transform list")
	}
	return ids, nil
}

// GetTileSpec fetches the tile spec with the given tile id.
func (c *Client) GetTileSpec(ctx context.Context, stack, tileID string) (*tilespec.TileSpec, error) {
	if err := errors.ValidateStackName(stack); err != nil {
		return nil, err
	}
	if err := errors.ValidateTileID(tileID); err != nil {
		return nil, err
	}
	data, err := c.cachedGet(ctx, "tilespec", c.keyer.TileSpecKey(stack, tileID),
		c.url("stack", stack, "tile", tileID), "tile "+tileID)
	if err != nil {
		return nil, err
	}

	var ts tilespec.TileSpec
	if err := json.Unmarshal(data, &ts); err != nil {
		return nil, err
	}
	return &ts, nil
}

// PutTileSpec uploads a tile spec under its tile id.
func (c *Client) PutTileSpec(ctx context.Context, stack string, ts *tilespec.TileSpec) error {
	if err := errors.ValidateStackName(stack); err != nil {
		return err
	}
	if err := ts.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(ts)
	if err != nil {
		return err
	}

	err = httputil.RetryWithBackoff(ctx, func() error {
		_, err := c.doRequest(ctx, http.MethodPut, c.url("stack", stack, "tile"), body, "tile "+ts.TileID)
		return err
	})
	if err != nil {
		return err
	}
	_ = c.cache.Delete(ctx, c.keyer.TileSpecKey(stack, ts.TileID))
	return nil
}

// Close releases the response cache.
func (c *Client) Close() error {
	return c.cache.Close()
}

var _ store.Store = (*Client)(nil)

func (c *Client) url(segments ...string) string {
	parts := make([]string, len(segments))
	for i, s := range segments {
		parts[i] = url.PathEscape(s)
	}
	return c.base + "/" + strings.Join(parts, "/")
}

// cachedGet returns the cached response for key, or fetches rawurl with
// retries and caches the body. kind names the key family for the cache
// hooks.
func (c *Client) cachedGet(ctx context.Context, kind, key, rawurl, resource string) ([]byte, error) {
	if data, ok, err := c.cache.Get(ctx, key); err == nil && ok {
		observability.Cache().OnCacheHit(ctx, kind)
		return data, nil
	}
	observability.Cache().OnCacheMiss(ctx, kind)

	var data []byte
	err := httputil.RetryWithBackoff(ctx, func() error {
		var err error
		data, err = c.doRequest(ctx, http.MethodGet, rawurl, nil, resource)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, data, c.ttl); err == nil {
		observability.Cache().OnCacheSet(ctx, kind, len(data))
	}
	return data, nil
}

func (c *Client) doRequest(ctx context.Context, method, rawurl string, body []byte, resource string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawurl, reader)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "building request for %s", rawurl)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	hooks := observability.HTTP()
	hooks.OnRequest(ctx, method, req.URL.Host, req.URL.Path)
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, method, req.URL.Host, req.URL.Path, err)
		code := errors.ErrCodeNetwork
		var uerr *url.Error
		if stderrors.As(err, &uerr) && uerr.Timeout() {
			code = errors.ErrCodeTimeout
		}
		return nil, &httputil.RetryableError{Err: errors.Wrap(code, err, "%s %s", method, rawurl)}
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, method, req.URL.Host, req.URL.Path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp.StatusCode, resource); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &httputil.RetryableError{Err: errors.Wrap(errors.ErrCodeNetwork, err, "reading response from %s", rawurl)}
	}
	return data, nil
}

// checkStatus maps a response status to an error: 404 is a non-retryable
// not-found, 5xx is retryable, anything else unexpected is terminal.
func checkStatus(code int, resource string) error {
	switch {
	case code == http.StatusOK || code == http.StatusCreated:
		return nil
	case code == http.StatusNotFound:
		return errors.New(errors.ErrCodeNotFound, "%s not found", resource)
	case code >= 500:
		return &httputil.RetryableError{Err: errors.New(errors.ErrCodeNetwork, "%s: status %d", resource, code)}
	default:
		return errors.New(errors.ErrCodeNetwork, "%s: status %d", resource, code)
	}
}
