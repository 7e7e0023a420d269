package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// PartitionKeyDef mirrors the collection's partition key declaration.
type PartitionKeyDef struct {
	Paths []string `json:"paths"`
	Kind  string   `json:"kind"`
}

// Collection is the store's collection resource as returned by read/create.
type Collection struct {
	ID           string          `json:"id"`
	PartitionKey PartitionKeyDef `json:"partitionKey"`
	DefaultTTL   int             `json:"defaultTtl,omitempty"`
}

// CollectionOptions describes a collection to provision.
type CollectionOptions struct {
	PartitionKeyPath string // e.g. "/partitionKey"
	Throughput       int    // provisioned units; 0 uses the account default
	DefaultTTL       int    // seconds; -1 enables per-document ttl without a default
}

// EnsureDatabase creates the database if it does not already exist.
func (c *Client) EnsureDatabase(ctx context.Context, db string) error {
	_, err := c.doResource(ctx, http.MethodGet, "dbs/"+db, "dbs", "dbs/"+db, nil, nil)
	if err == nil {
		return nil
	}
	if !IsStatus(err, http.StatusNotFound) {
		return fmt.Errorf("read database %q: %w", db, err)
	}

	_, err = c.doResource(ctx, http.MethodPost, "dbs", "dbs", "", map[string]string{"id": db}, nil)
	if err != nil && !IsStatus(err, http.StatusConflict) {
		return fmt.Errorf("create database %q: %w", db, err)
	}
	return nil
}

// GetCollection reads a collection resource.
func (c *Client) GetCollection(ctx context.Context, db, coll string) (Collection, error) {
	link := "dbs/" + db + "/colls/" + coll
	body, err := c.doResource(ctx, http.MethodGet, link, "colls", link, nil, nil)
	if err != nil {
		return Collection{}, err
	}
	var col Collection
	if err := json.Unmarshal(body, &col); err != nil {
		return Collection{}, fmt.Errorf("decode collection %q: %w", coll, err)
	}
	return col, nil
}

// EnsureCollection returns the collection, creating it with opts when absent.
func (c *Client) EnsureCollection(ctx context.Context, db, coll string, opts CollectionOptions) (Collection, error) {
	col, err := c.GetCollection(ctx, db, coll)
	if err == nil {
		return col, nil
	}
	if !IsStatus(err, http.StatusNotFound) {
		return Collection{}, fmt.Errorf("read collection %q: %w", coll, err)
	}

	payload := Collection{
		ID: coll,
		PartitionKey: PartitionKeyDef{
			Paths: []string{opts.PartitionKeyPath},
			Kind:  "Hash",
		},
		DefaultTTL: opts.DefaultTTL,
	}
	var headers map[string]string
	if opts.Throughput > 0 {
		headers = map[string]string{headerThroughput: fmt.Sprintf("%d", opts.Throughput)}
	}

	body, err := c.doResource(ctx, http.MethodPost, "dbs/"+db+"/colls", "colls", "dbs/"+db, payload, headers)
	if err != nil {
		return Collection{}, fmt.Errorf("create collection %q: %w", coll, err)
	}
	if err := json.Unmarshal(body, &col); err != nil {
		return Collection{}, fmt.Errorf("decode collection %q: %w", coll, err)
	}
	return col, nil
}

// DeleteDatabase removes the database and everything in it. A missing
// database is not an error.
func (c *Client) DeleteDatabase(ctx context.Context, db string) error {
	_, err := c.doResource(ctx, http.MethodDelete, "dbs/"+db, "dbs", "dbs/"+db, nil, nil)
	if err != nil && !IsStatus(err, http.StatusNotFound) {
		return fmt.Errorf("delete database %q: %w", db, err)
	}
	return nil
}

// doResource performs a signed lifecycle call and returns the response body
// for 2xx statuses.
func (c *Client) doResource(ctx context.Context, method, path, resourceType, resourceLink string, payload any, headers map[string]string) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+"/"+path, reader)
	if err != nil {
		return nil, err
	}
	c.prepareRequest(req, resourceType, resourceLink)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if httpResp.StatusCode >= 400 {
		return nil, newError(httpResp.StatusCode, httpResp.Header, body)
	}
	return body, nil
}
