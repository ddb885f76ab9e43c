package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docintake/internal/common"
	"github.com/joseph-ayodele/docintake/internal/inference"
)

func chatReply(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	return string(b)
}

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Model:   "gpt-4o-mini",
		Timeout: 2 * time.Second,
	}, nil)
}

func TestCompleteSendsSchemaAndAuth(t *testing.T) {
	var got struct {
		Model          string `json:"model"`
		ResponseFormat struct {
			Type string `json:"type"`
		} `json:"response_format"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(chatReply(`{"person_name":"Jane Doe"}`)))
	})

	resp, err := client.Complete(context.Background(), inference.Request{
		System:  "You extract certificates.",
		Content: "certificate body",
		Schema:  map[string]any{"type": "object"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"person_name":"Jane Doe"}`, string(resp.Content))
	assert.False(t, resp.CacheHit)

	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "You extract certificates.", got.Messages[0].Content)
	assert.Contains(t, got.Messages[1].Content, "certificate body")
	assert.Contains(t, got.Messages[2].Content, "JSON Schema")
}

func TestCompleteOmitsSchemaMessageWhenNil(t *testing.T) {
	var messageCount int
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []json.RawMessage `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		messageCount = len(body.Messages)
		w.Write([]byte(chatReply(`{}`)))
	})

	_, err := client.Complete(context.Background(), inference.Request{System: "s", Content: "c"})
	require.NoError(t, err)
	assert.Equal(t, 2, messageCount)
}

func TestCompleteServerErrorIsTransient(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream overloaded", http.StatusBadGateway)
	})

	_, err := client.Complete(context.Background(), inference.Request{System: "s", Content: "c"})
	require.Error(t, err)
	assert.True(t, common.IsTransient(err))
}

func TestCompleteTooManyRequestsIsTransient(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	})

	_, err := client.Complete(context.Background(), inference.Request{System: "s", Content: "c"})
	require.Error(t, err)
	assert.True(t, common.IsTransient(err))
}

func TestCompleteClientErrorIsPermanent(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad api key", http.StatusUnauthorized)
	})

	_, err := client.Complete(context.Background(), inference.Request{System: "s", Content: "c"})
	require.Error(t, err)
	assert.False(t, common.IsTransient(err))
	assert.Contains(t, err.Error(), "401")
}

func TestCompleteNoChoices(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	})

	_, err := client.Complete(context.Background(), inference.Request{System: "s", Content: "c"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}
