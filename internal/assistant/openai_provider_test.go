package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/supportchat-backend/internal/domain"
)

func completionServer(t *testing.T, statuses ...int) (*httptest.Server, *int32, *openai.ChatCompletionRequest) {
	t.Helper()
	var calls int32
	var last openai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(atomic.AddInt32(&calls, 1))
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		_ = json.NewDecoder(r.Body).Decode(&last)

		w.Header().Set("Content-Type", "application/json")
		if n <= len(statuses) && statuses[n-1] != http.StatusOK {
			w.WriteHeader(statuses[n-1])
			_, _ = w.Write([]byte(`{"error":{"message":"upstream unhappy","type":"server_error"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","model":"grok-2-latest",
			"choices":[{"index":0,"message":{"role":"assistant","content":"  Basins are galvanized.  "},"finish_reason":"stop"}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls, &last
}

func newTestProvider(t *testing.T, baseURL string) *OpenAICompatProvider {
	t.Helper()
	p, err := NewOpenAICompatProvider(ProviderConfig{
		Name:    types.AIProviderGrok,
		APIKey:  "test-key",
		BaseURL: baseURL + "/v1/",
		Model:   "grok-2-latest",
	}, nil)
	require.NoError(t, err)
	return p
}

func TestOpenAICompatProviderReply(t *testing.T) {
	srv, calls, last := completionServer(t)
	p := newTestProvider(t, srv.URL)

	history := []Turn{
		{Role: types.SenderUser, Text: "what are basins made of?"},
		{Role: types.SenderAdmin, Text: "checking"},
	}
	reply, err := p.Reply(context.Background(), Persona{SystemPrompt: "be kind"}, history)
	require.NoError(t, err)
	assert.Equal(t, "Basins are galvanized.", reply.Text)
	assert.Equal(t, "grok", reply.Provider)
	assert.Equal(t, "grok-2-latest", reply.Model)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))

	require.Len(t, last.Messages, 3)
	assert.Equal(t, openai.ChatMessageRoleSystem, last.Messages[0].Role)
	assert.Equal(t, "[support staff] checking", last.Messages[2].Content)
}

func TestOpenAICompatProviderRetriesServerErrors(t *testing.T) {
	srv, calls, _ := completionServer(t, http.StatusServiceUnavailable)
	p := newTestProvider(t, srv.URL)

	reply, err := p.Reply(context.Background(), DefaultPersona(), []Turn{{Role: types.SenderUser, Text: "hi"}})
	require.NoError(t, err)
	assert.NotEmpty(t, reply.Text)
	assert.EqualValues(t, 2, atomic.LoadInt32(calls))
}

func TestOpenAICompatProviderDoesNotRetryClientErrors(t *testing.T) {
	srv, calls, _ := completionServer(t, http.StatusBadRequest)
	p := newTestProvider(t, srv.URL)

	_, err := p.Reply(context.Background(), DefaultPersona(), []Turn{{Role: types.SenderUser, Text: "hi"}})
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestNewOpenAICompatProviderValidates(t *testing.T) {
	_, err := NewOpenAICompatProvider(ProviderConfig{Name: types.AIProviderOpenAI, Model: "m"}, nil)
	assert.Error(t, err)
	_, err = NewOpenAICompatProvider(ProviderConfig{Name: types.AIProviderOpenAI, APIKey: "k"}, nil)
	assert.Error(t, err)
}
