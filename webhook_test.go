package auctionhouse

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Test Helpers
// ============================================================================

const testSecret = "test-webhook-secret-key"

const testEventBody = `{"type":"auction_ending_soon","payload":{"auctionId":12,"auction":{"title":"Vintage clock"},"hoursRemaining":1}}`

type frameRecorder struct {
	mu     sync.Mutex
	frames []string
}

func (r *frameRecorder) HandleFrame(data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, string(data))
}

func newTestWebhook(t *testing.T) (*EventWebhook, *frameRecorder) {
	t.Helper()
	rec := &frameRecorder{}
	wh, err := NewEventWebhook(testSecret, rec)
	require.NoError(t, err)
	return wh, rec
}

// ============================================================================
// VerifySignature
// ============================================================================

func TestVerifySignature(t *testing.T) {
	body := []byte(testEventBody)

	t.Run("valid signature", func(t *testing.T) {
		assert.True(t, VerifySignature(body, SignBody(body, testSecret), testSecret))
	})

	t.Run("valid without prefix", func(t *testing.T) {
		sig := strings.TrimPrefix(SignBody(body, testSecret), "sha256=")
		assert.True(t, VerifySignature(body, sig, testSecret))
	})

	t.Run("wrong secret", func(t *testing.T) {
		assert.False(t, VerifySignature(body, SignBody(body, "other"), testSecret))
	})

	t.Run("tampered body", func(t *testing.T) {
		sig := SignBody(body, testSecret)
		assert.False(t, VerifySignature([]byte(testEventBody+" "), sig, testSecret))
	})

	t.Run("empty inputs", func(t *testing.T) {
		sig := SignBody(body, testSecret)
		assert.False(t, VerifySignature(nil, sig, testSecret))
		assert.False(t, VerifySignature(body, "", testSecret))
		assert.False(t, VerifySignature(body, sig, ""))
		assert.False(t, VerifySignature(body, "sha256=", testSecret))
	})

	t.Run("truncated signature", func(t *testing.T) {
		sig := SignBody(body, testSecret)
		assert.False(t, VerifySignature(body, sig[:len(sig)-2], testSecret))
	})
}

// ============================================================================
// EventWebhook
// ============================================================================

func TestNewEventWebhook(t *testing.T) {
	_, err := NewEventWebhook("", &frameRecorder{})
	assert.Error(t, err)

	_, err = NewEventWebhook(testSecret, nil)
	assert.Error(t, err)
}

func TestEventWebhookHandle(t *testing.T) {
	t.Run("forwards verified frame", func(t *testing.T) {
		wh, rec := newTestWebhook(t)
		body := []byte(testEventBody)

		status, data := wh.Handle(body, SignBody(body, testSecret))
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, map[string]bool{"ok": true}, data)
		assert.Equal(t, []string{testEventBody}, rec.frames)
	})

	t.Run("rejects bad signature", func(t *testing.T) {
		wh, rec := newTestWebhook(t)
		status, _ := wh.Handle([]byte(testEventBody), "sha256=deadbeef")
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Empty(t, rec.frames)
	})

	t.Run("rejects invalid JSON", func(t *testing.T) {
		wh, rec := newTestWebhook(t)
		body := []byte("{not json")
		status, data := wh.Handle(body, SignBody(body, testSecret))
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, map[string]string{"error": "Invalid JSON"}, data)
		assert.Empty(t, rec.frames)
	})
}

func TestEventWebhookHTTPHandler(t *testing.T) {
	wh, rec := newTestWebhook(t)
	srv := httptest.NewServer(wh.HTTPHandler())
	defer srv.Close()

	t.Run("POST with valid signature", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, srv.URL, strings.NewReader(testEventBody))
		require.NoError(t, err)
		req.Header.Set(SignatureHeader, SignBody([]byte(testEventBody), testSecret))

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		var out map[string]bool
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		assert.True(t, out["ok"])
		assert.Len(t, rec.frames, 1)
	})

	t.Run("GET not allowed", func(t *testing.T) {
		resp, err := http.Get(srv.URL)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})

	t.Run("missing signature", func(t *testing.T) {
		resp, err := http.Post(srv.URL, "application/json", strings.NewReader(testEventBody))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestEventWebhookRoutesThroughRealtimeClient(t *testing.T) {
	rt := NewRealtimeClient(nil)
	defer rt.Disconnect()

	var notice EndingSoonNotice
	rt.Subscribe(EventAuctionEndingSoon, func(p json.RawMessage) { notice = ParseEndingSoon(p) })

	wh, err := NewEventWebhook(testSecret, rt)
	require.NoError(t, err)

	body := []byte(testEventBody)
	status, _ := wh.Handle(body, SignBody(body, testSecret))
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, ID("12"), notice.AuctionID)
	assert.Equal(t, "Vintage clock", notice.Title)
	assert.Equal(t, 1.0, notice.HoursRemaining)
}
