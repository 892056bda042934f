// Package qdrant is a thin JSON-over-HTTP client for the Qdrant REST API,
// covering exactly what the chatbot needs: collection lifecycle, point
// upserts, and similarity search. It deliberately avoids an SDK dependency;
// the surface is four endpoints.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/darslabs/darsbot/internal/rag"
)

// Config carries connection settings for a Qdrant deployment.
type Config struct {
	// URL is the base URL, e.g. http://localhost:6333 or a cloud endpoint.
	URL string

	// APIKey is sent as the api-key header. Empty for unauthenticated
	// local instances.
	APIKey string

	// Collection is the collection holding textbook passages.
	Collection string
}

// Client talks to one Qdrant collection.
//
// Client is safe for concurrent use; it holds only configuration and an
// *http.Client.
type Client struct {
	baseURL    string
	apiKey     string
	collection string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Client. logger may be nil.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("qdrant URL is required")
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}, nil
}

// searchResponse mirrors the fields we read from POST points/search.
type searchResponse struct {
	Result []struct {
		Score   float32 `json:"score"`
		Payload struct {
			Text   string `json:"text"`
			Source string `json:"source"`
		} `json:"payload"`
	} `json:"result"`
}

// Search implements rag.Searcher: top-limit passages by cosine similarity,
// payload included, ordered by descending score (Qdrant's own ordering).
func (c *Client) Search(ctx context.Context, vector []float32, limit int) ([]rag.Passage, error) {
	body := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}

	resp, err := c.doRequest(ctx, http.MethodPost,
		fmt.Sprintf("/collections/%s/points/search", c.collection), body)
	if err != nil {
		return nil, fmt.Errorf("searching collection %q: %w", c.collection, err)
	}

	var parsed searchResponse
	if err := json.Unmarshal(resp, &parsed); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	passages := make([]rag.Passage, 0, len(parsed.Result))
	for _, hit := range parsed.Result {
		passages = append(passages, rag.Passage{
			Text:   hit.Payload.Text,
			Source: hit.Payload.Source,
			Score:  hit.Score,
		})
	}
	return passages, nil
}

// EnsureReady creates the collection if it does not exist. With reset, any
// existing collection is dropped first so ingestion starts from scratch.
func (c *Client) EnsureReady(ctx context.Context, reset bool) error {
	exists, err := c.collectionExists(ctx)
	if err != nil {
		return err
	}

	if exists && reset {
		if _, err := c.doRequest(ctx, http.MethodDelete, "/collections/"+c.collection, nil); err != nil {
			return fmt.Errorf("deleting collection %q: %w", c.collection, err)
		}
		c.logger.Info("deleted existing collection", "collection", c.collection)
		exists = false
	}

	if exists {
		return nil
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     rag.VectorDimension,
			"distance": "Cosine",
		},
	}
	if _, err := c.doRequest(ctx, http.MethodPut, "/collections/"+c.collection, body); err != nil {
		return fmt.Errorf("creating collection %q: %w", c.collection, err)
	}

	c.logger.Info("created collection",
		"collection", c.collection,
		"dimension", rag.VectorDimension,
		"distance", "Cosine",
	)
	return nil
}

// Upsert writes a batch of embedded documents as points. Point IDs are
// random UUIDs; idempotency across re-ingestion comes from EnsureReady's
// reset, not from stable IDs.
func (c *Client) Upsert(ctx context.Context, docs []rag.Document) error {
	if len(docs) == 0 {
		return nil
	}

	points := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		points = append(points, map[string]any{
			"id":     uuid.New().String(),
			"vector": doc.Vector,
			"payload": map[string]any{
				"text":        doc.Text,
				"source":      doc.Source,
				"chunk_index": doc.ChunkIndex,
			},
		})
	}

	path := fmt.Sprintf("/collections/%s/points?wait=true", c.collection)
	if _, err := c.doRequest(ctx, http.MethodPut, path, map[string]any{"points": points}); err != nil {
		return fmt.Errorf("upserting %d points: %w", len(points), err)
	}
	return nil
}

// Count returns the number of points in the collection.
func (c *Client) Count(ctx context.Context) (int64, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/collections/"+c.collection, nil)
	if err != nil {
		return 0, fmt.Errorf("getting collection %q info: %w", c.collection, err)
	}

	var parsed struct {
		Result struct {
			PointsCount int64 `json:"points_count"`
		} `json:"result"`
	}
	if err := json.Unmarshal(resp, &parsed); err != nil {
		return 0, fmt.Errorf("decoding collection info: %w", err)
	}
	return parsed.Result.PointsCount, nil
}

// Ping checks reachability. Used by startup wiring to decide between this
// client and the stub searcher.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.doRequest(ctx, http.MethodGet, "/collections", nil); err != nil {
		return fmt.Errorf("pinging qdrant: %w", err)
	}
	return nil
}

// collectionExists probes the collection with a GET; 404 means absent.
func (c *Client) collectionExists(ctx context.Context) (bool, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/collections/"+c.collection, nil)
	if err != nil {
		return false, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("checking collection %q: %w", c.collection, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("checking collection %q: unexpected status %d", c.collection, resp.StatusCode)
	}
}

// doRequest sends one JSON request and returns the response body. Non-2xx
// statuses become errors carrying the (truncated) body text.
func (c *Client) doRequest(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, reader)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := string(data)
		if len(detail) > 512 {
			detail = detail[:512]
		}
		return nil, fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, detail)
	}

	return data, nil
}

// newRequest builds a request with JSON and auth headers set.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}
	return req, nil
}
