package auctionhouse

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func action(name, payload string) Action {
	return Action{Type: ActionPrefix + name, Payload: json.RawMessage(payload)}
}

func fixedClock() func() time.Time {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return ts }
}

func TestEventStoreConnection(t *testing.T) {
	s := NewEventStore()

	s.MarkConnecting()
	st := s.Snapshot()
	assert.True(t, st.IsConnecting)
	assert.False(t, st.IsConnected)

	s.Dispatch(Action{Type: ActionPrefix + EventConnectionOpened})
	st = s.Snapshot()
	assert.True(t, st.IsConnected)
	assert.False(t, st.IsConnecting)
	assert.Empty(t, st.Error)

	s.Dispatch(Action{Type: ActionPrefix + EventConnectionError, Payload: "WebSocket connection error: boom"})
	st = s.Snapshot()
	assert.False(t, st.IsConnected)
	assert.Equal(t, "WebSocket connection error: boom", st.Error)

	s.Dispatch(Action{Type: ActionPrefix + EventConnectionClosed, Payload: CloseInfo{Code: 1006}})
	assert.Equal(t, "Connection closed", s.Snapshot().Error)

	s.Dispatch(Action{Type: ActionPrefix + EventConnectionClosed, Payload: CloseInfo{Code: 1000, Reason: "Client disconnect"}})
	assert.Equal(t, "Client disconnect", s.Snapshot().Error)

	s.MarkConnecting()
	assert.Empty(t, s.Snapshot().Error)

	// lifecycle actions are not events
	assert.Empty(t, s.History())
	assert.Nil(t, s.Snapshot().LastEvent)
}

func TestEventStoreBids(t *testing.T) {
	s := NewEventStore()

	s.Dispatch(action(EventBidPlaced, `{"auctionId":5,"bid":{"amount":10}}`))
	s.Dispatch(action(EventBidPlaced, `{"auctionId":"5","bid":{"amount":12}}`))
	s.Dispatch(action(EventBidPlaced, `{"bid":{"amount":99}}`))

	bids := s.Bids("5")
	require.Len(t, bids, 2)
	assert.JSONEq(t, `{"amount":10}`, string(bids[0]))
	assert.JSONEq(t, `{"amount":12}`, string(bids[1]))

	s.Dispatch(action(EventBidHistory, `{"auctionId":5,"bids":[{"amount":1}]}`))
	bids = s.Bids("5")
	require.Len(t, bids, 1)
	assert.JSONEq(t, `{"amount":1}`, string(bids[0]))

	st := s.Snapshot()
	require.NotNil(t, st.LastEvent)
	assert.Equal(t, EventBidHistory, st.LastEvent.Type)
	assert.Len(t, st.History, 4)
}

func TestEventStoreAuctionUpdates(t *testing.T) {
	s := NewEventStore(WithClock(fixedClock()))

	s.Dispatch(action(EventAuctionEnded, `{"auctionId":1}`))
	_, ok := s.Auction("1")
	assert.False(t, ok, "ended before any update is not tracked")

	s.Dispatch(action(EventAuctionUpdated, `{"auctionId":1,"auction":{"title":"Chair","status":"active"}}`))
	u, ok := s.Auction("1")
	require.True(t, ok)
	assert.Equal(t, "active", u.Status)
	assert.JSONEq(t, `{"title":"Chair","status":"active"}`, string(u.Auction))
	assert.Equal(t, fixedClock()(), u.UpdatedAt)

	s.Dispatch(action(EventAuctionEnded, `{"auctionId":1}`))
	u, _ = s.Auction("1")
	assert.Equal(t, "ended", u.Status)
	assert.JSONEq(t, `{"title":"Chair","status":"active"}`, string(u.Auction))

	s.Dispatch(action(EventAuctionEndingSoon, `{"auctionId":2,"auction":{"status":"active"},"hoursRemaining":1.5}`))
	u, ok = s.Auction("2")
	require.True(t, ok)
	assert.True(t, u.EndingSoon)
	require.NotNil(t, u.HoursRemaining)
	assert.Equal(t, 1.5, *u.HoursRemaining)

	s.ClearAuction("2")
	_, ok = s.Auction("2")
	assert.False(t, ok)
	assert.Equal(t, 1, s.Snapshot().Auctions)
}

func TestEventStoreUnknownEvents(t *testing.T) {
	s := NewEventStore()

	s.Dispatch(action(EventReceived, `{"type":"user_joined","id":1}`))
	s.Dispatch(action(EventReceived, `[1,2]`))
	s.Dispatch(action(EventAuctionCreated, `{"id":3}`))
	s.Dispatch(Action{Type: "other/thing"})
	s.Dispatch(Action{Type: ActionPrefix + "mystery"})

	h := s.History()
	require.Len(t, h, 3)
	assert.Equal(t, EventAuctionCreated, h[0].Type)
	assert.Equal(t, "unknown", h[1].Type)
	assert.Equal(t, "user_joined", h[2].Type)
}

func TestEventStoreHistoryBound(t *testing.T) {
	s := NewEventStore(WithHistorySize(3))
	for i := 0; i < 5; i++ {
		s.Dispatch(action(EventAuctionCreated, fmt.Sprintf(`{"id":%d}`, i)))
	}

	h := s.History()
	require.Len(t, h, 3)
	assert.JSONEq(t, `{"id":4}`, string(h[0].Payload.(json.RawMessage)))
	assert.JSONEq(t, `{"id":2}`, string(h[2].Payload.(json.RawMessage)))

	s.ClearEventHistory()
	assert.Empty(t, s.History())
	assert.NotNil(t, s.Snapshot().LastEvent)
}

func TestEventStoreAuctionCapacity(t *testing.T) {
	s := NewEventStore(WithAuctionCapacity(2))
	for i := 1; i <= 3; i++ {
		s.Dispatch(action(EventAuctionUpdated, fmt.Sprintf(`{"auctionId":%d,"auction":{}}`, i)))
	}

	_, ok := s.Auction("1")
	assert.False(t, ok)
	_, ok = s.Auction("3")
	assert.True(t, ok)
	assert.Equal(t, 2, s.Snapshot().Auctions)
}

func TestEventStoreAcceptsStructPayloads(t *testing.T) {
	s := NewEventStore()
	s.Dispatch(Action{
		Type:    ActionPrefix + EventBidPlaced,
		Payload: map[string]any{"auctionId": 8, "bid": map[string]any{"amount": 3}},
	})
	require.Len(t, s.Bids("8"), 1)
}
