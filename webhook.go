package auctionhouse

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// SignatureHeader carries the HMAC-SHA256 of a pushed event body.
const SignatureHeader = "X-Auction-Signature"

// maxWebhookBody bounds the size of a pushed event.
const maxWebhookBody = 1 << 20

// FrameHandler accepts one raw event frame. *RealtimeClient implements it.
type FrameHandler interface {
	HandleFrame(data []byte)
}

// VerifySignature checks an HMAC-SHA256 signature of body, given as "sha256=<hex>"
// or bare hex, in constant time.
func VerifySignature(body []byte, signature, secret string) bool {
	if len(body) == 0 || signature == "" || secret == "" {
		return false
	}

	sig := strings.TrimPrefix(signature, "sha256=")
	if sig == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if len(sig) != len(expected) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(sig), []byte(expected)) == 1
}

// SignBody returns the signature header value for body.
func SignBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// EventWebhook accepts server-pushed events over HTTP for deployments where the
// server cannot reach the client through the event stream. Verified bodies are
// routed like stream frames.
type EventWebhook struct {
	secret string
	target FrameHandler
}

// NewEventWebhook creates a webhook that forwards verified frames to target.
func NewEventWebhook(secret string, target FrameHandler) (*EventWebhook, error) {
	if secret == "" {
		return nil, fmt.Errorf("webhook secret is required")
	}
	if target == nil {
		return nil, fmt.Errorf("webhook target is required")
	}
	return &EventWebhook{secret: secret, target: target}, nil
}

// Verify verifies an HMAC-SHA256 signature.
func (w *EventWebhook) Verify(body []byte, signature string) bool {
	return VerifySignature(body, signature, w.secret)
}

// Handle verifies and forwards one body.
// Returns the status code and response body for the caller to write.
func (w *EventWebhook) Handle(body []byte, signature string) (int, any) {
	if !w.Verify(body, signature) {
		return http.StatusUnauthorized, map[string]string{"error": "Invalid signature"}
	}
	if !json.Valid(body) {
		return http.StatusBadRequest, map[string]string{"error": "Invalid JSON"}
	}
	w.target.HandleFrame(body)
	return http.StatusOK, map[string]bool{"ok": true}
}

// HTTPHandler returns an http.Handler that processes webhook requests.
//
// Example:
//
//	wh, _ := auctionhouse.NewEventWebhook("secret", rt)
//	http.Handle("/events", wh.HTTPHandler())
func (w *EventWebhook) HTTPHandler() http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSON(rw, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
			return
		}
		defer r.Body.Close()

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			writeJSON(rw, http.StatusBadRequest, map[string]string{"error": "Failed to read body"})
			return
		}

		status, data := w.Handle(body, r.Header.Get(SignatureHeader))
		writeJSON(rw, status, data)
	})
}

func writeJSON(rw http.ResponseWriter, status int, data any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(data)
}
