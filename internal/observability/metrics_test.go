package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCountersAndHandler(t *testing.T) {
	m := NewMetrics()
	m.IncMessagePosted("user")
	m.IncMessagePosted("user")
	m.IncHandoffTransition("takeover")
	m.ObserveHTTP("GET", "/api/chat/threads/:id", "200", 10*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.messagesPosted.WithLabelValues("user")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.handoffTransitions.WithLabelValues("takeover")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "supportchat_chat_messages_posted_total"))
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.IncMessagePosted("user")
	m.HTTPInflightInc()
	m.ObserveAssistantReply("openai", "ok", time.Second)
	assert.Nil(t, m.Registry())
}
