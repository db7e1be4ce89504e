package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Kurasuai-Inc/doc-search/internal/errclass"
	"github.com/Kurasuai-Inc/doc-search/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = retry.Config{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}

// fakeEmbeddingsAPI serves the OpenAI embeddings wire format. Each input's
// vector is [len(text), index, 1]. The first failures requests answer with
// status instead. reverse lists the data out of order.
type fakeEmbeddingsAPI struct {
	calls    atomic.Int32
	failures int32
	status   int
	reverse  bool
	lastAuth atomic.Value
}

func (f *fakeEmbeddingsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := f.calls.Add(1)
	f.lastAuth.Store(r.Header.Get("Authorization"))
	if n <= f.failures {
		http.Error(w, `{"error":{"message":"unavailable","type":"server_error"}}`, f.status)
		return
	}

	var req struct {
		Input []string `json:"input"`
		Model string   `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	type item struct {
		Object    string    `json:"object"`
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	}
	resp := struct {
		Object string         `json:"object"`
		Data   []item         `json:"data"`
		Model  string         `json:"model"`
		Usage  map[string]int `json:"usage"`
	}{Object: "list", Model: req.Model, Usage: map[string]int{"prompt_tokens": 1, "total_tokens": 1}}
	for i, text := range req.Input {
		resp.Data = append(resp.Data, item{
			Object:    "embedding",
			Embedding: []float32{float32(len(text)), float32(i), 1},
			Index:     i,
		})
	}
	if f.reverse {
		slices.Reverse(resp.Data)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func TestOpenAIProvider(t *testing.T) {
	api := &fakeEmbeddingsAPI{reverse: true}
	srv := httptest.NewServer(api)
	defer srv.Close()

	p, err := NewOpenAIProvider("sk-test", WithBaseURL(srv.URL+"/v1"), WithRetry(fastRetry))
	require.NoError(t, err)
	defer p.Close()

	resp, err := p.GenerateBatch(context.Background(), BatchEmbeddingRequest{Texts: []string{"a", "bbb"}})
	require.NoError(t, err)
	require.Len(t, resp.Embeddings, 2)
	assert.Equal(t, []float32{1, 0, 1}, resp.Embeddings[0].Vector)
	assert.Equal(t, []float32{3, 1, 1}, resp.Embeddings[1].Vector)
	assert.Equal(t, DefaultOpenAIModel, resp.Embeddings[0].Model)
	assert.Equal(t, ProviderOpenAI, resp.Provider)
	assert.Equal(t, "Bearer sk-test", api.lastAuth.Load())
	assert.Equal(t, OpenAIDimension, p.Dimension())
}

func TestOpenAIProvider_RetriesServerErrors(t *testing.T) {
	api := &fakeEmbeddingsAPI{failures: 2, status: http.StatusServiceUnavailable}
	srv := httptest.NewServer(api)
	defer srv.Close()

	p, err := NewOpenAIProvider("sk-test", WithBaseURL(srv.URL+"/v1"), WithRetry(fastRetry))
	require.NoError(t, err)

	emb, err := p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 0, 1}, emb.Vector)
	assert.Equal(t, int32(3), api.calls.Load())
}

func TestOpenAIProvider_DoesNotRetryAuthErrors(t *testing.T) {
	api := &fakeEmbeddingsAPI{failures: 100, status: http.StatusUnauthorized}
	srv := httptest.NewServer(api)
	defer srv.Close()

	p, err := NewOpenAIProvider("sk-bad", WithBaseURL(srv.URL+"/v1"), WithRetry(fastRetry))
	require.NoError(t, err)

	_, err = p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "hello"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderFailed)
	assert.Equal(t, errclass.BackendUnavailable, errclass.Classify(err).Kind)
	assert.Equal(t, int32(1), api.calls.Load())
}

func TestOpenAIProvider_MissingKey(t *testing.T) {
	_, err := NewOpenAIProvider("")
	assert.ErrorIs(t, err, ErrNoProviderEnabled)
	assert.ErrorIs(t, err, errclass.ErrBackendUnavailable)
}

func TestJinaProvider(t *testing.T) {
	api := &fakeEmbeddingsAPI{failures: 1, status: http.StatusTooManyRequests, reverse: true}
	srv := httptest.NewServer(api)
	defer srv.Close()

	p, err := NewJinaProvider("jina-key", WithBaseURL(srv.URL), WithRetry(fastRetry))
	require.NoError(t, err)

	resp, err := p.GenerateBatch(context.Background(), BatchEmbeddingRequest{Texts: []string{"xy", "z"}})
	require.NoError(t, err)
	require.Len(t, resp.Embeddings, 2)
	assert.Equal(t, []float32{2, 0, 1}, resp.Embeddings[0].Vector)
	assert.Equal(t, DefaultJinaModel, resp.Model)
	assert.Equal(t, JinaDimension, p.Dimension())
	assert.Equal(t, int32(2), api.calls.Load())
}

func TestJinaProvider_ClientErrorIsNotRetried(t *testing.T) {
	api := &fakeEmbeddingsAPI{failures: 100, status: http.StatusBadRequest}
	srv := httptest.NewServer(api)
	defer srv.Close()

	p, err := NewJinaProvider("jina-key", WithBaseURL(srv.URL), WithRetry(fastRetry))
	require.NoError(t, err)

	_, err = p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "q"})
	assert.ErrorIs(t, err, ErrProviderFailed)
	assert.Equal(t, int32(1), api.calls.Load())
}

func TestCompatibleProvider(t *testing.T) {
	api := &fakeEmbeddingsAPI{}
	srv := httptest.NewServer(api)
	defer srv.Close()

	p, err := NewCompatibleProvider("", WithBaseURL(srv.URL+"/v1"), WithModel("nomic-embed-text"), WithRetry(fastRetry))
	require.NoError(t, err)
	assert.Zero(t, p.Dimension())

	resp, err := p.GenerateBatch(context.Background(), BatchEmbeddingRequest{Texts: []string{"four", "five5"}})
	require.NoError(t, err)
	require.Len(t, resp.Embeddings, 2)
	assert.Equal(t, []float32{4, 0, 1}, resp.Embeddings[0].Vector)
	assert.Equal(t, "nomic-embed-text", resp.Embeddings[1].Model)
	assert.Equal(t, 3, p.Dimension())
}

func TestCompatibleProvider_RequiresModel(t *testing.T) {
	_, err := NewCompatibleProvider("", WithBaseURL("http://localhost:1"))
	assert.ErrorIs(t, err, ErrUnsupportedModel)
}

func TestBatches(t *testing.T) {
	texts := make([]string, 2*MaxBatchSize+1)
	got := batches(texts)
	require.Len(t, got, 3)
	assert.Len(t, got[0], MaxBatchSize)
	assert.Len(t, got[2], 1)
}
