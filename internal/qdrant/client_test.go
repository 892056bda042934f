package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darslabs/darsbot/internal/log"
	"github.com/darslabs/darsbot/internal/rag"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(Config{
		URL:        srv.URL,
		APIKey:     "test-key",
		Collection: "textbook_content",
	}, log.NewNop())
	require.NoError(t, err)
	return client, srv
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Collection: "c"}, nil)
	assert.Error(t, err, "missing URL must be rejected")

	_, err = New(Config{URL: "http://localhost:6333"}, nil)
	assert.Error(t, err, "missing collection must be rejected")
}

func TestClient_Search(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	var gotAPIKey string

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAPIKey = r.Header.Get("api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_, _ = w.Write([]byte(`{"result":[
			{"score":0.92,"payload":{"text":"ROS 2 uses DDS.","source":"ch1/intro.md"}},
			{"score":0.81,"payload":{"text":"Nodes publish topics.","source":"ch2/nodes.md"}}
		]}`))
	}))

	vec := make([]float32, rag.VectorDimension)
	passages, err := client.Search(context.Background(), vec, 3)
	require.NoError(t, err)

	assert.Equal(t, "/collections/textbook_content/points/search", gotPath)
	assert.Equal(t, "test-key", gotAPIKey)
	assert.Equal(t, float64(3), gotBody["limit"])
	assert.Equal(t, true, gotBody["with_payload"])

	require.Len(t, passages, 2)
	assert.Equal(t, "ROS 2 uses DDS.", passages[0].Text)
	assert.Equal(t, "ch1/intro.md", passages[0].Source)
	assert.InDelta(t, 0.92, passages[0].Score, 1e-6)
	assert.Greater(t, passages[0].Score, passages[1].Score)
}

func TestClient_Search_ServerError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))

	_, err := client.Search(context.Background(), make([]float32, rag.VectorDimension), 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestClient_Search_MalformedResponse(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))

	_, err := client.Search(context.Background(), make([]float32, rag.VectorDimension), 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding search response")
}

func TestClient_EnsureReady_CreatesMissingCollection(t *testing.T) {
	var createBody map[string]any
	var requests []string

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.Method+" "+r.URL.Path)
		switch {
		case r.Method == http.MethodGet:
			http.NotFound(w, r)
		case r.Method == http.MethodPut:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&createBody))
			_, _ = w.Write([]byte(`{"result":true}`))
		}
	}))

	require.NoError(t, client.EnsureReady(context.Background(), false))

	assert.Equal(t, []string{
		"GET /collections/textbook_content",
		"PUT /collections/textbook_content",
	}, requests)

	vectors, ok := createBody["vectors"].(map[string]any)
	require.True(t, ok, "create body missing vectors config: %v", createBody)
	assert.Equal(t, float64(rag.VectorDimension), vectors["size"])
	assert.Equal(t, "Cosine", vectors["distance"])
}

func TestClient_EnsureReady_ResetDropsExisting(t *testing.T) {
	var requests []string

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.Method+" "+r.URL.Path)
		_, _ = w.Write([]byte(`{"result":true}`))
	}))

	require.NoError(t, client.EnsureReady(context.Background(), true))

	assert.Equal(t, []string{
		"GET /collections/textbook_content",
		"DELETE /collections/textbook_content",
		"PUT /collections/textbook_content",
	}, requests)
}

func TestClient_EnsureReady_ExistingCollectionUntouched(t *testing.T) {
	var requests []string

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.Method+" "+r.URL.Path)
		_, _ = w.Write([]byte(`{"result":{"status":"green"}}`))
	}))

	require.NoError(t, client.EnsureReady(context.Background(), false))
	assert.Equal(t, []string{"GET /collections/textbook_content"}, requests)
}

func TestClient_Upsert(t *testing.T) {
	var gotBody struct {
		Points []struct {
			ID      string    `json:"id"`
			Vector  []float32 `json:"vector"`
			Payload struct {
				Text       string `json:"text"`
				Source     string `json:"source"`
				ChunkIndex int    `json:"chunk_index"`
			} `json:"payload"`
		} `json:"points"`
	}

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/collections/textbook_content/points", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("wait"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"result":{"status":"completed"}}`))
	}))

	docs := []rag.Document{
		{Text: "chunk one", Source: "ch1/intro.md", ChunkIndex: 0, Vector: make([]float32, rag.VectorDimension)},
		{Text: "chunk two", Source: "ch1/intro.md", ChunkIndex: 1, Vector: make([]float32, rag.VectorDimension)},
	}
	require.NoError(t, client.Upsert(context.Background(), docs))

	require.Len(t, gotBody.Points, 2)
	assert.Equal(t, "chunk one", gotBody.Points[0].Payload.Text)
	assert.Equal(t, "ch1/intro.md", gotBody.Points[0].Payload.Source)
	assert.Equal(t, 1, gotBody.Points[1].Payload.ChunkIndex)
	assert.NotEmpty(t, gotBody.Points[0].ID)
	assert.NotEqual(t, gotBody.Points[0].ID, gotBody.Points[1].ID)
}

func TestClient_Upsert_EmptyBatchIsNoop(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("no request expected for empty batch")
	}))
	require.NoError(t, client.Upsert(context.Background(), nil))
}

func TestClient_Count(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"result":{"points_count":1234}}`))
	}))

	count, err := client.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1234), count)
}

func TestClient_Ping_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	client, err := New(Config{URL: srv.URL, Collection: "c"}, log.NewNop())
	require.NoError(t, err)
	srv.Close()

	assert.Error(t, client.Ping(context.Background()))
}
