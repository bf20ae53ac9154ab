package auctionhouse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"bid_placed", EventBidPlaced, true},
		{"bidPlaced", EventBidPlaced, true},
		{"bid_history", EventBidHistory, true},
		{"auction_updated", EventAuctionUpdated, true},
		{"auction_created", EventAuctionCreated, true},
		{"auction_ended", EventAuctionEnded, true},
		{"auction_ending_soon", EventAuctionEndingSoon, true},
		{"auctionEndingSoon", EventAuctionEndingSoon, true},
		{"user_joined", EventReceived, false},
		{"", EventReceived, false},
		{"BID_PLACED", EventReceived, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Canonicalize(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestDecodeEnvelope(t *testing.T) {
	tests := []struct {
		name      string
		frame     string
		event     string
		canonical string
		payload   string
	}{
		{
			name:      "type and payload",
			frame:     `{"type":"bid_placed","payload":{"x":1}}`,
			event:     "bid_placed",
			canonical: EventBidPlaced,
			payload:   `{"x":1}`,
		},
		{
			name:      "event and data",
			frame:     `{"event":"auction_ended","data":{"auctionId":3}}`,
			event:     "auction_ended",
			canonical: EventAuctionEnded,
			payload:   `{"auctionId":3}`,
		},
		{
			name:      "type wins over event",
			frame:     `{"type":"auctionCreated","event":"bid_placed","payload":[]}`,
			event:     "auctionCreated",
			canonical: EventAuctionCreated,
			payload:   `[]`,
		},
		{
			name:      "payload wins over data",
			frame:     `{"type":"bidPlaced","payload":{"a":1},"data":{"b":2}}`,
			event:     "bidPlaced",
			canonical: EventBidPlaced,
			payload:   `{"a":1}`,
		},
		{
			name:      "null payload falls back to data",
			frame:     `{"type":"bidPlaced","payload":null,"data":{"b":2}}`,
			event:     "bidPlaced",
			canonical: EventBidPlaced,
			payload:   `{"b":2}`,
		},
		{
			name:      "no payload uses whole frame",
			frame:     `{"type":"auction_updated","auctionId":9}`,
			event:     "auction_updated",
			canonical: EventAuctionUpdated,
			payload:   `{"type":"auction_updated","auctionId":9}`,
		},
		{
			name:      "no name",
			frame:     `{"payload":{"a":1}}`,
			event:     EventReceived,
			canonical: EventReceived,
			payload:   `{"a":1}`,
		},
		{
			name:      "empty and non-string names are absent",
			frame:     `{"type":"","event":7,"payload":1}`,
			event:     EventReceived,
			canonical: EventReceived,
			payload:   `1`,
		},
		{
			name:      "unknown name",
			frame:     `{"type":"user_joined","payload":{"id":1}}`,
			event:     "user_joined",
			canonical: EventReceived,
			payload:   `{"id":1}`,
		},
		{
			name:      "non-object frame",
			frame:     `[1,2,3]`,
			event:     EventReceived,
			canonical: EventReceived,
			payload:   `[1,2,3]`,
		},
		{
			name:      "scalar frame",
			frame:     `"hello"`,
			event:     EventReceived,
			canonical: EventReceived,
			payload:   `"hello"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := DecodeEnvelope([]byte(tt.frame))
			require.NoError(t, err)
			assert.Equal(t, tt.event, env.Event)
			assert.Equal(t, tt.canonical, env.Name)
			assert.JSONEq(t, tt.payload, string(env.Payload))
			assert.Equal(t, ActionPrefix+tt.canonical, env.ActionType())
		})
	}
}

func TestDecodeEnvelopeMalformed(t *testing.T) {
	for _, frame := range []string{"", "not json", `{"type":`, `{"a":1}{"b":2}`} {
		_, err := DecodeEnvelope([]byte(frame))
		assert.Error(t, err, frame)
	}
}
