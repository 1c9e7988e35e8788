package outbound

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamflow/internal/automation"
	"teamflow/internal/config"
	"teamflow/internal/logger"
	"teamflow/pkg/models"
)

func newTestCaller(cfg config.WebhookConfig) *WebhookCaller {
	return NewWebhookCaller(cfg, config.CircuitBreakerConfig{}, logger.NopLogger())
}

func TestWebhookCaller_SendsEventAsPayload(t *testing.T) {
	var gotBody []byte
	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotHeader = r.Header.Get("X-Token")
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	caller := newTestCaller(config.WebhookConfig{})
	action := automation.WebhookCallAction{
		URL:     srv.URL,
		Method:  "POST",
		Headers: map[string]string{"X-Token": "abc"},
	}
	event := models.TaskEvent{ID: "e1", WorkspaceID: "ws1", TaskID: "t1", Kind: models.EventTaskCreated}

	require.NoError(t, caller.Call(context.Background(), action, event))

	var decoded models.TaskEvent
	require.NoError(t, json.Unmarshal(gotBody, &decoded))
	assert.Equal(t, "t1", decoded.TaskID)
	assert.Equal(t, "abc", gotHeader)
}

func TestWebhookCaller_ExplicitBodyWins(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	caller := newTestCaller(config.WebhookConfig{})
	action := automation.WebhookCallAction{URL: srv.URL, Method: "PUT", Body: `{"custom":true}`}

	require.NoError(t, caller.Call(context.Background(), action, models.TaskEvent{TaskID: "t1"}))
	assert.JSONEq(t, `{"custom":true}`, string(gotBody))
}

func TestWebhookCaller_GetHasNoBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Empty(t, body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	caller := newTestCaller(config.WebhookConfig{})
	action := automation.WebhookCallAction{URL: srv.URL, Method: "get"}

	require.NoError(t, caller.Call(context.Background(), action, models.TaskEvent{TaskID: "t1"}))
}

func TestWebhookCaller_NonSuccessStatusFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	caller := newTestCaller(config.WebhookConfig{})
	action := automation.WebhookCallAction{URL: srv.URL, Method: "POST"}

	err := caller.Call(context.Background(), action, models.TaskEvent{TaskID: "t1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestWebhookCaller_NoRetryByDefault(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	caller := newTestCaller(config.WebhookConfig{})
	action := automation.WebhookCallAction{URL: srv.URL, Method: "POST"}

	require.Error(t, caller.Call(context.Background(), action, models.TaskEvent{TaskID: "t1"}))
	assert.Equal(t, int32(1), calls.Load())
}

func TestWebhookCaller_RetriesWhenConfigured(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	caller := newTestCaller(config.WebhookConfig{
		Retry: config.RetryConfig{
			MaxAttempts:     3,
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
			Multiplier:      2,
			MaxElapsedTime:  time.Second,
		},
	})
	action := automation.WebhookCallAction{URL: srv.URL, Method: "POST"}

	require.NoError(t, caller.Call(context.Background(), action, models.TaskEvent{TaskID: "t1"}))
	assert.Equal(t, int32(3), calls.Load())
}
