// Package elastic writes documents to an Elasticsearch cluster through
// the official client's bulk API.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"pluginrefs/internal/docstore"
)

var _ docstore.Store = (*Client)(nil)

const (
	defaultTimeout  = 60 * time.Second
	maxRetries      = 3
	retryBaseDelay  = 500 * time.Millisecond
	retryMaxDelay   = 5 * time.Second
	maxResponseSize = 32 << 20
)

// Options configures a Client.
type Options struct {
	URL      string
	Username string
	Password string
	// Gzip compresses request bodies.
	Gzip    bool
	Timeout time.Duration
	// RetryBackoff overrides the delay before each retry.
	RetryBackoff func(attempt int) time.Duration
}

// Client indexes documents in batches with _bulk.
type Client struct {
	es        *elasticsearch.Client
	transport *http.Transport
	logger    *slog.Logger
}

// New creates a client for opts.URL. Transport errors and 429/5xx
// responses are retried with exponential backoff.
func New(opts Options, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(opts.URL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid elasticsearch URL %q", opts.URL)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	backoff := opts.RetryBackoff
	if backoff == nil {
		backoff = exponentialBackoff
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = timeout

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:           []string{u.String()},
		Username:            opts.Username,
		Password:            opts.Password,
		CompressRequestBody: opts.Gzip,
		RetryOnStatus:       []int{http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout},
		MaxRetries:          maxRetries,
		RetryBackoff:        backoff,
		Transport:           transport,
	})
	if err != nil {
		return nil, fmt.Errorf("creating elasticsearch client: %w", err)
	}
	return &Client{es: es, transport: transport, logger: logger}, nil
}

func exponentialBackoff(attempt int) time.Duration {
	delay := retryBaseDelay * time.Duration(1<<uint(attempt-1))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}

// CreateIndex creates name with mapping unless it already exists.
func (c *Client) CreateIndex(ctx context.Context, name string, mapping docstore.Mapping) error {
	res, err := c.es.Indices.Exists([]string{name}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("checking index %s: %w", name, err)
	}
	drain(res)
	if res.StatusCode == http.StatusOK {
		return nil
	}

	body, err := json.Marshal(map[string]interface{}{"mappings": Properties(mapping)})
	if err != nil {
		return err
	}
	res, err = c.es.Indices.Create(name,
		c.es.Indices.Create.WithBody(bytes.NewReader(body)),
		c.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("creating index %s: %w", name, err)
	}
	defer drain(res)
	if res.IsError() {
		e := readError(res)
		if e.Type == "resource_already_exists_exception" {
			return nil
		}
		return fmt.Errorf("creating index %s: %d %s", name, res.StatusCode, e)
	}
	c.logger.Info("Created index", "index", name)
	return nil
}

// WriteBatch indexes docs with one _bulk request. Any rejected item fails
// the batch.
func (c *Client) WriteBatch(ctx context.Context, index string, docs []docstore.Document) error {
	if len(docs) == 0 {
		return nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, d := range docs {
		if err := enc.Encode(map[string]interface{}{"index": map[string]string{"_id": d.ID}}); err != nil {
			return err
		}
		if err := enc.Encode(d.Body); err != nil {
			return fmt.Errorf("encoding document %s: %w", d.ID, err)
		}
	}

	res, err := c.es.Bulk(bytes.NewReader(buf.Bytes()),
		c.es.Bulk.WithIndex(index),
		c.es.Bulk.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("bulk request to %s: %w", index, err)
	}
	defer drain(res)
	if res.IsError() {
		return fmt.Errorf("bulk request to %s: %d %s", index, res.StatusCode, readError(res))
	}

	var result bulkResponse
	if err := json.NewDecoder(io.LimitReader(res.Body, maxResponseSize)).Decode(&result); err != nil {
		return fmt.Errorf("decoding bulk response: %w", err)
	}
	if !result.Errors {
		return nil
	}
	failed := 0
	var first *bulkItemResult
	for i := range result.Items {
		for _, item := range result.Items[i] {
			if item.Status >= 300 {
				failed++
				if first == nil {
					it := item
					first = &it
				}
			}
		}
	}
	if first == nil {
		return fmt.Errorf("bulk request to %s reported errors", index)
	}
	return fmt.Errorf("bulk request to %s: %d of %d documents rejected, first %s: %s", index, failed, len(docs), first.ID, first.Error)
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.transport.CloseIdleConnections()
	return nil
}

type bulkResponse struct {
	Errors bool                        `json:"errors"`
	Items  []map[string]bulkItemResult `json:"items"`
}

type bulkItemResult struct {
	ID     string     `json:"_id"`
	Status int        `json:"status"`
	Error  errorCause `json:"error"`
}

type errorCause struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

func (e errorCause) String() string {
	if e.Type == "" {
		return e.Reason
	}
	return e.Type + ": " + e.Reason
}

func readError(res *esapi.Response) errorCause {
	var body struct {
		Error json.RawMessage `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if json.Unmarshal(data, &body) != nil || len(body.Error) == 0 {
		return errorCause{Reason: strings.TrimSpace(string(data))}
	}
	var cause errorCause
	if json.Unmarshal(body.Error, &cause) != nil {
		var s string
		_ = json.Unmarshal(body.Error, &s)
		cause.Reason = s
	}
	return cause
}

func drain(res *esapi.Response) {
	if res == nil || res.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 1<<20))
	_ = res.Body.Close()
}

// Properties converts a dotted-path mapping into nested mapping
// properties.
func Properties(m docstore.Mapping) map[string]interface{} {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	root := map[string]interface{}{}
	for _, k := range keys {
		parts := strings.Split(k, ".")
		level := root
		for _, p := range parts[:len(parts)-1] {
			node, ok := level[p].(map[string]interface{})
			if !ok {
				node = map[string]interface{}{}
				level[p] = node
			}
			props, ok := node["properties"].(map[string]interface{})
			if !ok {
				props = map[string]interface{}{}
				node["properties"] = props
				delete(node, "type")
			}
			level = props
		}
		level[parts[len(parts)-1]] = map[string]interface{}{"type": string(m[k])}
	}
	return map[string]interface{}{"properties": root}
}
