// Package remote executes queries against a running ideabase server. Client satisfies ideabase.Database so
// code written against the adapter runs unchanged against a remote server.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/autom8ter/ideabase"
	"github.com/spf13/cast"
)

// ExecPath is the path of the execution endpoint
const ExecPath = "/api/db"

// Client sends queries to the execution endpoint of an ideabase server
type Client struct {
	baseURL string
	client  *http.Client
	headers http.Header
}

// ClientOpt is an option for configuring a Client
type ClientOpt func(c *Client)

// WithHTTPClient sets the http client requests are sent with
func WithHTTPClient(client *http.Client) ClientOpt {
	return func(c *Client) {
		c.client = client
	}
}

// WithHeader adds a header to every request
func WithHeader(key, value string) ClientOpt {
	return func(c *Client) {
		c.headers.Add(key, value)
	}
}

// New creates a Client for the server at baseURL
func New(baseURL string, opts ...ClientOpt) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		headers: http.Header{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// From returns a query builder for the collection
func (c *Client) From(collection string) *ideabase.QueryBuilder {
	return ideabase.NewQueryBuilder(c, collection)
}

// Execute sends the query in a single request. Failures are reported on the result rather than as an error.
func (c *Client) Execute(ctx context.Context, collection string, query ideabase.Query) (*ideabase.Result, error) {
	body, err := json.Marshal(ideabase.ExecRequest{
		Collection: collection,
		Action:     query.Action,
		State:      query,
	})
	if err != nil {
		return ideabase.ErrorResult(fmt.Sprintf("failed to encode query: %s", err)), nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ExecPath, bytes.NewReader(body))
	if err != nil {
		return ideabase.ErrorResult(err.Error()), nil
	}
	for k, v := range c.headers {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return ideabase.ErrorResult(fmt.Sprintf("request failed: %s", err)), nil
	}
	defer resp.Body.Close()
	bits, err := io.ReadAll(resp.Body)
	if err != nil {
		return ideabase.ErrorResult(fmt.Sprintf("failed to read response: %s", err)), nil
	}
	var payload struct {
		Data  json.RawMessage `json:"data"`
		Error *string         `json:"error"`
		Count *int64          `json:"count"`
	}
	if err := json.Unmarshal(bits, &payload); err != nil {
		return ideabase.ErrorResult(fmt.Sprintf("failed to decode response (status %d): %s", resp.StatusCode, err)), nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := http.StatusText(resp.StatusCode)
		if payload.Error != nil {
			msg = *payload.Error
		}
		return ideabase.ErrorResult(msg), nil
	}
	result := &ideabase.Result{Error: payload.Error, Count: payload.Count}
	if len(payload.Data) > 0 {
		result.Data, err = decodeData(payload.Data, query.Action)
		if err != nil {
			return ideabase.ErrorResult(fmt.Sprintf("failed to decode response data: %s", err)), nil
		}
	}
	return result, nil
}

// decodeData converts the wire data into the shapes the adapter returns
func decodeData(raw json.RawMessage, action ideabase.Action) (any, error) {
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	switch data := data.(type) {
	case nil:
		return nil, nil
	case []any:
		records := make([]ideabase.Record, 0, len(data))
		for _, v := range data {
			if rec, ok := ideabase.ToRecord(v); ok {
				records = append(records, rec)
			}
		}
		return records, nil
	case map[string]any:
		if action == ideabase.ActionDelete {
			if _, ok := data["deletedCount"]; ok {
				return ideabase.DeleteResult{
					Acknowledged: cast.ToBool(data["acknowledged"]),
					DeletedCount: cast.ToInt64(data["deletedCount"]),
				}, nil
			}
		}
		return ideabase.Record(data), nil
	}
	return data, nil
}
