package auctionhouse

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

const (
	// DefaultHistorySize bounds EventStore.History.
	DefaultHistorySize = 50
	// DefaultAuctionCapacity bounds the number of auctions tracked by an EventStore.
	DefaultAuctionCapacity = 256
)

// ============================================================================
// State types
// ============================================================================

// HistoryEntry is one event remembered by the store, newest first.
type HistoryEntry struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// LastEvent is the most recent event seen by the store.
type LastEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// AuctionUpdate is the realtime view of one auction.
type AuctionUpdate struct {
	Auction        json.RawMessage `json:"auction,omitempty"`
	Status         string          `json:"status,omitempty"`
	EndingSoon     bool            `json:"endingSoon,omitempty"`
	HoursRemaining *float64        `json:"hoursRemaining,omitempty"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// StoreState is a point-in-time copy of the store.
type StoreState struct {
	IsConnected  bool           `json:"isConnected"`
	IsConnecting bool           `json:"isConnecting"`
	Error        string         `json:"error,omitempty"`
	LastEvent    *LastEvent     `json:"lastEvent,omitempty"`
	History      []HistoryEntry `json:"eventHistory"`
	Auctions     int            `json:"trackedAuctions"`
}

// ============================================================================
// EventStore
// ============================================================================

// EventStore is a goroutine-safe Sink that reduces realtime actions into connection
// status, an event history and per-auction updates.
type EventStore struct {
	mu           sync.RWMutex
	isConnected  bool
	isConnecting bool
	err          string
	lastEvent    *LastEvent
	history      []HistoryEntry
	historySize  int
	auctions     *lru.Cache // ID -> *AuctionUpdate
	bids         *lru.Cache // ID -> []json.RawMessage
	now          func() time.Time
}

// StoreOption configures an EventStore.
type StoreOption func(*EventStore)

// WithHistorySize sets how many events History keeps.
func WithHistorySize(n int) StoreOption {
	return func(s *EventStore) {
		if n > 0 {
			s.historySize = n
		}
	}
}

// WithAuctionCapacity bounds the number of auctions whose updates and bids are kept.
// The least recently touched auction is evicted first.
func WithAuctionCapacity(n int) StoreOption {
	return func(s *EventStore) {
		if n > 0 {
			s.auctions, _ = lru.New(n)
			s.bids, _ = lru.New(n)
		}
	}
}

// WithClock overrides time.Now for timestamps.
func WithClock(now func() time.Time) StoreOption {
	return func(s *EventStore) { s.now = now }
}

// NewEventStore creates an empty store.
func NewEventStore(opts ...StoreOption) *EventStore {
	s := &EventStore{
		historySize: DefaultHistorySize,
		now:         time.Now,
	}
	s.auctions, _ = lru.New(DefaultAuctionCapacity)
	s.bids, _ = lru.New(DefaultAuctionCapacity)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MarkConnecting records that a connect has been requested.
func (s *EventStore) MarkConnecting() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isConnecting = true
	s.err = ""
}

// Dispatch applies one action. Unknown action types are ignored.
func (s *EventStore) Dispatch(a Action) {
	name, ok := strings.CutPrefix(a.Type, ActionPrefix)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch name {
	case EventConnectionOpened:
		s.isConnected = true
		s.isConnecting = false
		s.err = ""
		return
	case EventConnectionClosed:
		s.isConnected = false
		s.isConnecting = false
		s.err = "Connection closed"
		if ci, ok := a.Payload.(CloseInfo); ok && ci.Reason != "" {
			s.err = ci.Reason
		}
		return
	case EventConnectionError:
		s.isConnected = false
		s.isConnecting = false
		s.err = "Connection error"
		if msg, ok := a.Payload.(string); ok && msg != "" {
			s.err = msg
		}
		return
	}

	raw := payloadBytes(a.Payload)
	switch name {
	case EventBidPlaced:
		var p struct {
			AuctionID ID              `json:"auctionId"`
			Bid       json.RawMessage `json:"bid"`
		}
		if json.Unmarshal(raw, &p) == nil && p.AuctionID != "" {
			bids, _ := s.bidsOf(p.AuctionID)
			s.bids.Add(p.AuctionID, append(bids, p.Bid))
		}
	case EventAuctionUpdated:
		var p struct {
			AuctionID ID              `json:"auctionId"`
			Auction   json.RawMessage `json:"auction"`
		}
		if json.Unmarshal(raw, &p) == nil && p.AuctionID != "" {
			s.auctions.Add(p.AuctionID, &AuctionUpdate{
				Auction:   p.Auction,
				Status:    auctionStatus(p.Auction),
				UpdatedAt: s.now(),
			})
		}
	case EventAuctionEnded:
		var p struct {
			AuctionID ID `json:"auctionId"`
		}
		if json.Unmarshal(raw, &p) == nil {
			if v, ok := s.auctions.Get(p.AuctionID); ok {
				next := *v.(*AuctionUpdate)
				next.Status = "ended"
				s.auctions.Add(p.AuctionID, &next)
			}
		}
	case EventBidHistory:
		var p struct {
			AuctionID ID              `json:"auctionId"`
			Bids      json.RawMessage `json:"bids"`
		}
		if json.Unmarshal(raw, &p) == nil && p.AuctionID != "" {
			var bids []json.RawMessage
			if json.Unmarshal(p.Bids, &bids) == nil && bids != nil {
				s.bids.Add(p.AuctionID, bids)
			}
		}
	case EventAuctionEndingSoon:
		var p struct {
			AuctionID      ID              `json:"auctionId"`
			Auction        json.RawMessage `json:"auction"`
			HoursRemaining *float64        `json:"hoursRemaining"`
		}
		if json.Unmarshal(raw, &p) == nil && p.AuctionID != "" {
			s.auctions.Add(p.AuctionID, &AuctionUpdate{
				Auction:        p.Auction,
				Status:         auctionStatus(p.Auction),
				EndingSoon:     true,
				HoursRemaining: p.HoursRemaining,
				UpdatedAt:      s.now(),
			})
		}
	case EventAuctionCreated:
	case EventReceived:
		var p struct {
			Type string `json:"type"`
		}
		historyType := "unknown"
		if json.Unmarshal(raw, &p) == nil && p.Type != "" {
			historyType = p.Type
		}
		s.lastEvent = &LastEvent{Type: historyType, Payload: a.Payload}
		s.remember(historyType, a.Payload)
		return
	default:
		return
	}

	s.lastEvent = &LastEvent{Type: name, Payload: a.Payload}
	s.remember(name, a.Payload)
}

func (s *EventStore) remember(typ string, payload any) {
	entry := HistoryEntry{Type: typ, Timestamp: s.now(), Payload: payload}
	s.history = append([]HistoryEntry{entry}, s.history...)
	if len(s.history) > s.historySize {
		s.history = s.history[:s.historySize]
	}
}

func (s *EventStore) bidsOf(id ID) ([]json.RawMessage, bool) {
	v, ok := s.bids.Get(id)
	if !ok {
		return nil, false
	}
	bids := v.([]json.RawMessage)
	return append([]json.RawMessage(nil), bids...), true
}

// Snapshot returns a copy of the current state.
func (s *EventStore) Snapshot() StoreState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := StoreState{
		IsConnected:  s.isConnected,
		IsConnecting: s.isConnecting,
		Error:        s.err,
		History:      append([]HistoryEntry(nil), s.history...),
		Auctions:     s.auctions.Len(),
	}
	if s.lastEvent != nil {
		le := *s.lastEvent
		st.LastEvent = &le
	}
	return st
}

// History returns the remembered events, newest first.
func (s *EventStore) History() []HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]HistoryEntry(nil), s.history...)
}

// Auction returns the realtime update for an auction.
func (s *EventStore) Auction(id ID) (AuctionUpdate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.auctions.Get(id)
	if !ok {
		return AuctionUpdate{}, false
	}
	return *v.(*AuctionUpdate), true
}

// Bids returns the bids received for an auction.
func (s *EventStore) Bids(id ID) []json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	bids, _ := s.bidsOf(id)
	return bids
}

// ClearEventHistory empties the history.
func (s *EventStore) ClearEventHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}

// ClearAuction forgets updates and bids for an auction.
func (s *EventStore) ClearAuction(id ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auctions.Remove(id)
	s.bids.Remove(id)
}

func payloadBytes(p any) []byte {
	switch v := p.(type) {
	case json.RawMessage:
		return v
	case []byte:
		return v
	case nil:
		return nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		return b
	}
}

func auctionStatus(auction json.RawMessage) string {
	var a struct {
		Status string `json:"status"`
	}
	if len(auction) == 0 || json.Unmarshal(auction, &a) != nil {
		return ""
	}
	return a.Status
}
