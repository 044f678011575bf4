package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/scraper-service/internal/entity"
	"github.com/user/scraper-service/internal/repository"
)

func fakeService(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-key", "gemini-2.0-flash", time.UTC)
}

func modelResponse(text string) []byte {
	resp := map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]any{{"text": text}}}},
		},
	}
	b, _ := json.Marshal(resp)
	return b
}

func testPage() *entity.PageContent {
	return &entity.PageContent{
		Title: "Ocean Dialogue",
		Text:  "A dialogue on oceans and climate, Belém, 2nd October 2025.",
	}
}

func TestExtract_Success(t *testing.T) {
	t.Parallel()

	c := fakeService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Contains(t, req.Contents[0].Parts[0].Text, "EXACT keys")
		assert.Contains(t, req.Contents[0].Parts[0].Text, "- Title: Extract information for this field")
		assert.InDelta(t, 0.1, req.GenerationConfig.Temperature, 0.001)

		_, _ = w.Write(modelResponse("```json\n{\"Title\": \"Ocean Dialogue\", \"Location\": \"Belém\"}\n```"))
	})

	rec, err := c.Extract(context.Background(), "https://example.org/event/1", testPage(), []string{"Title", "Location", "Tags"})
	require.NoError(t, err)
	assert.Equal(t, entity.StatusSuccess, rec.Status)
	assert.Equal(t, "https://example.org/event/1", rec.SourceURL)
	assert.Equal(t, "Ocean Dialogue", rec.Field("Title"))
	assert.Equal(t, "Belém", rec.Field("Location"))
	assert.Equal(t, "N/A", rec.Field("Tags"))
	assert.False(t, rec.ScrapedAt.IsZero())
}

func TestExtract_EmptyResponse(t *testing.T) {
	t.Parallel()

	c := fakeService(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"candidates": []}`))
	})

	_, err := c.Extract(context.Background(), "https://example.org/event/2", testPage(), []string{"Title"})
	assert.ErrorIs(t, err, repository.ErrEmptyResponse)
}

func TestExtract_MalformedJSONResponse(t *testing.T) {
	t.Parallel()

	c := fakeService(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(modelResponse("Sorry, I cannot produce JSON for this page."))
	})

	_, err := c.Extract(context.Background(), "https://example.org/event/3", testPage(), []string{"Title"})
	assert.ErrorIs(t, err, repository.ErrMalformedJSON)
}

func TestExtract_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := fakeService(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write(modelResponse(`{"Title": "Second attempt"}`))
	})

	rec, err := c.Extract(context.Background(), "https://example.org/event/4", testPage(), []string{"Title"})
	require.NoError(t, err)
	assert.Equal(t, "Second attempt", rec.Field("Title"))
	assert.Equal(t, int32(2), calls.Load())
}

func TestExtract_ClientErrorIsNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := fakeService(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := c.Extract(context.Background(), "https://example.org/event/5", testPage(), []string{"Title"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
