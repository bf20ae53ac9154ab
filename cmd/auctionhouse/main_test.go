package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MansiChugh28/auctionhouse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func useTempHome(t *testing.T) {
	t.Helper()
	t.Setenv("AUCTIONHOUSE_HOME", t.TempDir())
}

func TestConfigRoundTrip(t *testing.T) {
	useTempHome(t)

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)

	require.NoError(t, setConfigValue(cfg, "default.base_url", "https://auctions.example.com"))
	require.NoError(t, setConfigValue(cfg, "auth.token", "tok"))
	require.NoError(t, setConfigValue(cfg, "realtime.max_reconnect_attempts", "8"))
	require.NoError(t, setConfigValue(cfg, "realtime.reconnect_delay_ms", "1500"))
	require.NoError(t, saveConfig(cfg))

	loaded, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://auctions.example.com", loaded.Default.BaseURL)
	assert.Equal(t, "tok", loaded.Auth.Token)
	assert.Equal(t, 8, loaded.Realtime.MaxReconnectAttempts)
	assert.Equal(t, 1500, loaded.Realtime.ReconnectDelayMS)

	assert.Equal(t, "tok", configCredentials{log: zap.NewNop()}.Token())
}

func TestSetConfigValueErrors(t *testing.T) {
	cfg := &Config{}
	for _, key := range []string{"base_url", "default.nope", "auth.nope", "realtime.nope", "other.field"} {
		assert.Error(t, setConfigValue(cfg, key, "1"), key)
	}
	assert.Error(t, setConfigValue(cfg, "realtime.reconnect_delay_ms", "soon"))
	assert.Error(t, setConfigValue(cfg, "realtime.reconnect_delay_ms", "-1"))
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "****", maskKey("short"))
	assert.Equal(t, "eyJhbG...wxyz", maskKey("eyJhbGciOiJIUzI1NiJ9.abcdwxyz"))
}

func TestPasswordOrStdin(t *testing.T) {
	pw, err := passwordOrStdin("flag", strings.NewReader("ignored\n"))
	require.NoError(t, err)
	assert.Equal(t, "flag", pw)

	pw, err = passwordOrStdin("", strings.NewReader("s3cret\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "s3cret", pw)

	_, err = passwordOrStdin("", strings.NewReader(""))
	assert.Error(t, err)
}

func TestStreamURL(t *testing.T) {
	client := auctionhouse.NewClient("", auctionhouse.WithBaseURL("https://api.example.com"))
	assert.Equal(t, "wss://api.example.com", streamURL(&Config{}, client))

	cfg := &Config{Default: ConfigDefault{WSURL: "ws://events.example.com"}}
	assert.Equal(t, "ws://events.example.com", streamURL(cfg, client))
}

func TestEventPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := newEventPrinter(&buf, []string{"bid_placed"})

	p.print(auctionhouse.Action{Type: "realtime/connectionOpened"})
	p.print(auctionhouse.Action{Type: "realtime/bidPlaced", Payload: json.RawMessage(`{ "amount": 5 }`)})
	p.print(auctionhouse.Action{Type: "realtime/auctionCreated", Payload: json.RawMessage(`{}`)})
	p.print(auctionhouse.Action{Type: "realtime/connectionClosed", Payload: auctionhouse.CloseInfo{Code: 1006, Reason: "gone"}})

	out := buf.String()
	assert.Contains(t, out, "-- connected\n")
	assert.Contains(t, out, `bidPlaced {"amount":5}`)
	assert.NotContains(t, out, "auctionCreated")
	assert.Contains(t, out, "-- closed (1006) gone\n")
}

func TestBidCommand(t *testing.T) {
	useTempHome(t)

	var gotAuth, gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"bid":{"id":1,"amount":15}}`)
	}))
	defer srv.Close()

	require.NoError(t, saveConfig(&Config{
		Default: ConfigDefault{BaseURL: srv.URL},
		Auth:    ConfigAuth{Token: "tok-1"},
	}))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"bid", "42", "15"})
	defer rootCmd.SetArgs(nil)
	require.NoError(t, rootCmd.Execute())

	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.Equal(t, "/auctions/42/bid", gotPath)
	assert.Equal(t, map[string]any{"amount": 15.0}, gotBody)
	assert.Equal(t, "Bid of 15.00 placed on auction 42\n", out.String())
}

func TestBidRequiresLogin(t *testing.T) {
	useTempHome(t)

	rootCmd.SetOut(io.Discard)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs([]string{"bid", "42", "15"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")
}
