package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	adapter "github.com/mlambe/fncs/pkg/adapters/http"
	"github.com/mlambe/fncs/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDispatcher struct {
	out *domain.OutboundEvent
	err error

	got domain.InboundEvent
}

func (s *stubDispatcher) HandleEvent(_ context.Context, ev domain.InboundEvent) (*domain.OutboundEvent, error) {
	s.got = ev
	return s.out, s.err
}

func postEvent(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/events", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleEvent_ReturnsReply(t *testing.T) {
	stub := &stubDispatcher{out: &domain.OutboundEvent{
		Address:  "+260971234567",
		Text:     "Select a crop:\n1. Peas",
		Continue: true,
	}}
	handler := adapter.NewHandler(stub)

	rec := postEvent(t, handler, `{"address": "+260971234567", "body": "", "event": "new"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var out domain.OutboundEvent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "Select a crop:\n1. Peas", out.Text)
	assert.True(t, out.Continue)

	assert.Equal(t, domain.EventNew, stub.got.Kind)
	assert.Equal(t, "+260971234567", stub.got.Address)
}

func TestHandleEvent_NoReplyIs204(t *testing.T) {
	stub := &stubDispatcher{}
	handler := adapter.NewHandler(stub)

	rec := postEvent(t, handler, `{"address": "+260971234567", "event": "close"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestHandleEvent_DispatcherFailureIs500(t *testing.T) {
	stub := &stubDispatcher{err: errors.New("store unavailable")}
	handler := adapter.NewHandler(stub)

	rec := postEvent(t, handler, `{"address": "+260971234567", "body": "1", "event": "resume"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleEvent_RejectsBadPayloads(t *testing.T) {
	stub := &stubDispatcher{}
	handler := adapter.NewHandler(stub)

	assert.Equal(t, http.StatusBadRequest, postEvent(t, handler, `{not json`).Code)
	assert.Equal(t, http.StatusBadRequest, postEvent(t, handler, `{"body": "1"}`).Code, "missing address")
	assert.Equal(t, http.StatusBadRequest, postEvent(t, handler, `{"address": "+260971234567"}`).Code, "missing event kind")
}

func TestHealthAndInfo(t *testing.T) {
	handler := adapter.NewHandler(&stubDispatcher{}, adapter.WithVersion("1.2.3"))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/info", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"app": "fncs", "version": "1.2.3"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	handler := adapter.NewHandler(&stubDispatcher{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
