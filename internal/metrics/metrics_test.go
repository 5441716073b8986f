package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.MessageSent("text")
	m.MessageSent("text")
	m.MessageSent("image")
	m.MessageDeleted("everyone")
	m.ReadReceipts(3)
	m.ReadReceipts(0)
	m.TypingEvicted(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.messagesSent.WithLabelValues("text")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.messagesSent.WithLabelValues("image")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.messagesDeleted.WithLabelValues("everyone")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.readReceipts))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.typingEvicted))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.MessageSent("text")
		m.MessageEdited()
		m.MessageDeleted("me")
		m.ReadReceipts(1)
		m.TypingEvent("start")
		m.TypingEvicted(1)
		m.NotifyFailed()
		m.ConversationOpened()
	})
	assert.Nil(t, m.Registry())
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.MessageEdited()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "dm_messages_edited_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}
