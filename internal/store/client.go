package store

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/torosent/docsurge/internal/tracing"
)

const (
	apiVersion = "2018-12-31"
	userAgent  = "docsurge"

	headerDate         = "X-Ms-Date"
	headerVersion      = "X-Ms-Version"
	headerPartitionKey = "X-Ms-Documentdb-Partitionkey"
	headerIsUpsert     = "X-Ms-Documentdb-Is-Upsert"
	headerThroughput   = "X-Ms-Offer-Throughput"
	headerCharge       = "X-Ms-Request-Charge"
	headerSessionToken = "X-Ms-Session-Token"
	headerRetryAfterMS = "X-Ms-Retry-After-Ms"

	maxErrorBodyBytes = 4096
)

// Response carries the per-call accounting the benchmark consumes: the
// normalized request charge and the session token returned by the store.
type Response struct {
	StatusCode   int
	Charge       float64
	SessionToken string
}

// Options configures a Client.
type Options struct {
	Endpoint string        // base URL, e.g. https://account.documents.example:443
	Key      string        // base64 master key
	Timeout  time.Duration // per-request timeout (0 = no timeout)
	MaxConns int           // outbound connection capacity, sized to the worker count
	Insecure bool          // skip TLS verification (local emulator)
	Tracer   trace.Tracer  // optional; nil disables spans
}

// Client is a document store REST client. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	endpoint   string
	key        []byte
	tracer     trace.Tracer
}

// NewClient builds a Client from opts.
func NewClient(opts Options) (*Client, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(opts.Endpoint), "/")
	if endpoint == "" {
		return nil, errors.New("store endpoint is required")
	}
	key, err := decodeKey(opts.Key)
	if err != nil {
		return nil, err
	}

	maxConns := opts.MaxConns
	if maxConns < 2 {
		maxConns = 2
	}
	transport := &http.Transport{
		MaxIdleConns:        maxConns,
		MaxIdleConnsPerHost: maxConns,
		MaxConnsPerHost:     maxConns,
		IdleConnTimeout:     90 * time.Second,
	}
	if opts.Insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402 -- emulator only, behind an explicit flag
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		endpoint: endpoint,
		key:      key,
		tracer:   opts.Tracer,
	}, nil
}

// Container scopes document operations to one collection.
type Container struct {
	client *Client
	db     string
	coll   string
}

// Container returns a handle for document operations against db/coll.
func (c *Client) Container(db, coll string) *Container {
	return &Container{client: c, db: db, coll: coll}
}

// Name returns the container's collection name.
func (ct *Container) Name() string { return ct.coll }

// CreateDocument inserts fields as a new document. partitionKey is the value
// of the collection's partition key field inside fields.
func (ct *Container) CreateDocument(ctx context.Context, fields map[string]any, partitionKey string) (Response, error) {
	return ct.writeDocument(ctx, fields, partitionKey, false)
}

// UpsertDocument creates the document or replaces an existing one with the
// same id within the partition.
func (ct *Container) UpsertDocument(ctx context.Context, fields map[string]any, partitionKey string) (Response, error) {
	return ct.writeDocument(ctx, fields, partitionKey, true)
}

func (ct *Container) writeDocument(ctx context.Context, fields map[string]any, partitionKey string, upsert bool) (Response, error) {
	body, err := json.Marshal(fields)
	if err != nil {
		return Response{}, fmt.Errorf("encode document: %w", err)
	}

	resourceLink := "dbs/" + ct.db + "/colls/" + ct.coll
	op := "create"
	if upsert {
		op = "upsert"
	}

	c := ct.client
	var span trace.Span
	if c.tracer != nil {
		ctx, span = tracing.StartStoreSpan(ctx, c.tracer, op, ct.db, ct.coll)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/"+resourceLink+"/docs", bytes.NewReader(body))
	if err != nil {
		if span != nil {
			tracing.EndSpan(span, err)
		}
		return Response{}, err
	}
	c.prepareRequest(req, "docs", resourceLink)

	pk, _ := json.Marshal([]string{partitionKey})
	req.Header.Set(headerPartitionKey, string(pk))
	if upsert {
		req.Header.Set(headerIsUpsert, "true")
	}

	resp, err := c.send(req)
	if span != nil {
		tracing.EndSpan(span, err, attribute.Float64("store.request_charge", resp.Charge))
	}
	return resp, err
}

// prepareRequest sets the headers every signed call shares.
func (c *Client) prepareRequest(req *http.Request, resourceType, resourceLink string) {
	req.Header.Set(headerVersion, apiVersion)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")
	c.signRequest(req, resourceType, resourceLink)
}

// send executes req and folds the response into a Response or a typed error.
// Transport-level failures are returned unwrapped so callers can classify
// them as net.Error.
func (c *Client) send(req *http.Request) (Response, error) {
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBodyBytes))
		_, _ = io.Copy(io.Discard, httpResp.Body)
		return Response{StatusCode: httpResp.StatusCode}, newError(httpResp.StatusCode, httpResp.Header, snippet)
	}
	_, _ = io.Copy(io.Discard, httpResp.Body)

	resp := Response{
		StatusCode:   httpResp.StatusCode,
		SessionToken: httpResp.Header.Get(headerSessionToken),
	}
	if raw := httpResp.Header.Get(headerCharge); raw != "" {
		if charge, parseErr := strconv.ParseFloat(raw, 64); parseErr == nil {
			resp.Charge = charge
		}
	}
	return resp, nil
}
