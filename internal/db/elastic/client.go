package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/kailas-cloud/cinedex/internal/db"
)

// Config holds connection parameters for an Elasticsearch cluster.
type Config struct {
	Addrs    []string
	Username string
	Password string
}

// Client is a thin wrapper over the official client: one call per method,
// with responses classified into db sentinel errors.
//
//   - transport failures, 5xx and 429 stay unwrapped (index unavailable)
//   - index_not_found_exception wraps db.ErrIndexNotFound
//   - a missing document wraps db.ErrKeyNotFound
//   - any other 4xx wraps db.ErrQueryRejected
type Client struct {
	es *elasticsearch.Client
}

// NewClient creates a client. No request is made until the first call.
func NewClient(cfg Config) (*Client, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:  cfg.Addrs,
		Username:   cfg.Username,
		Password:   cfg.Password,
		MaxRetries: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	return &Client{es: es}, nil
}

// Ping checks cluster connectivity via the info endpoint.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Info(c.es.Info.WithContext(ctx))
	if err != nil {
		return &db.Error{Op: db.OpESInfo, Err: err}
	}
	defer drain(res)

	if res.IsError() {
		return classify(db.OpESInfo, res)
	}
	return nil
}

// WaitForReady polls Ping until the cluster responds or timeout expires.
func (c *Client) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for elasticsearch: %w", ctx.Err())
		case <-ticker.C:
			if err := c.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// IndexExists reports whether the index (or alias) exists.
func (c *Client) IndexExists(ctx context.Context, name string) (bool, error) {
	res, err := c.es.Indices.Exists([]string{name}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, &db.Error{Op: db.OpESExists, Err: err}
	}
	defer drain(res)

	switch {
	case res.StatusCode == http.StatusNotFound:
		return false, nil
	case res.IsError():
		return false, classify(db.OpESExists, res)
	default:
		return true, nil
	}
}

// Hit is a single search hit with its raw source document.
type Hit struct {
	ID     string          `json:"_id"`
	Source json.RawMessage `json:"_source"`
}

// SearchResponse is the subset of the search response the service reads.
type SearchResponse struct {
	Total int
	Hits  []Hit
}

type searchBody struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []Hit `json:"hits"`
	} `json:"hits"`
}

// Search executes a query DSL body against index.
func (c *Client) Search(ctx context.Context, index string, body []byte) (*SearchResponse, error) {
	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(index),
		c.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, &db.Error{Op: db.OpESSearch, Err: err}
	}
	defer drain(res)

	if res.IsError() {
		return nil, classify(db.OpESSearch, res)
	}

	var result searchBody
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, &db.Error{Op: db.OpESSearch, Err: fmt.Errorf("decode response: %w", err)}
	}

	return &SearchResponse{Total: result.Hits.Total.Value, Hits: result.Hits.Hits}, nil
}

type getBody struct {
	Found  bool            `json:"found"`
	Source json.RawMessage `json:"_source"`
}

// Get fetches one document's source by id.
func (c *Client) Get(ctx context.Context, index, id string) (json.RawMessage, error) {
	res, err := c.es.Get(index, id, c.es.Get.WithContext(ctx))
	if err != nil {
		return nil, &db.Error{Op: db.OpESGet, Err: err}
	}
	defer drain(res)

	if res.IsError() {
		return nil, classify(db.OpESGet, res)
	}

	var doc getBody
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return nil, &db.Error{Op: db.OpESGet, Err: fmt.Errorf("decode response: %w", err)}
	}
	if !doc.Found {
		return nil, &db.Error{Op: db.OpESGet, Err: fmt.Errorf("%w: %s", db.ErrKeyNotFound, id)}
	}
	return doc.Source, nil
}

type errorBody struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Found *bool `json:"found"`
}

// classify maps an error response onto db sentinels.
func classify(op string, res *esapi.Response) error {
	var body errorBody
	raw, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	_ = json.Unmarshal(raw, &body)

	detail := fmt.Sprintf("status %d", res.StatusCode)
	if body.Error.Type != "" {
		detail = fmt.Sprintf("status %d: %s: %s", res.StatusCode, body.Error.Type, body.Error.Reason)
	}

	switch {
	case body.Error.Type == "index_not_found_exception":
		return &db.Error{Op: op, Err: fmt.Errorf("%w: %s", db.ErrIndexNotFound, detail)}
	case res.StatusCode == http.StatusNotFound && body.Found != nil && !*body.Found:
		return &db.Error{Op: op, Err: fmt.Errorf("%w: %s", db.ErrKeyNotFound, detail)}
	case res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= http.StatusInternalServerError:
		return &db.Error{Op: op, Err: fmt.Errorf("elasticsearch unavailable: %s", detail)}
	default:
		return &db.Error{Op: op, Err: fmt.Errorf("%w: %s", db.ErrQueryRejected, detail)}
	}
}

func drain(res *esapi.Response) {
	_, _ = io.Copy(io.Discard, res.Body)
	_ = res.Body.Close()
}
