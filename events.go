package auctionhouse

import (
	"bytes"
	"encoding/json"
)

// Canonical event names. Shared state actions and canonical subscriptions use these.
const (
	EventBidPlaced         = "bidPlaced"
	EventBidHistory        = "bidHistory"
	EventAuctionUpdated    = "auctionUpdated"
	EventAuctionCreated    = "auctionCreated"
	EventAuctionEnded      = "auctionEnded"
	EventAuctionEndingSoon = "auctionEndingSoon"
	EventReceived          = "eventReceived"
)

// Connection lifecycle action names.
const (
	EventConnectionOpened = "connectionOpened"
	EventConnectionError  = "connectionError"
	EventConnectionClosed = "connectionClosed"
)

// ActionPrefix prefixes every action type dispatched to a Sink.
const ActionPrefix = "realtime/"

var eventAliases = map[string]string{
	"bid_placed":          EventBidPlaced,
	"bidPlaced":           EventBidPlaced,
	"bid_history":         EventBidHistory,
	"bidHistory":          EventBidHistory,
	"auction_updated":     EventAuctionUpdated,
	"auctionUpdated":      EventAuctionUpdated,
	"auction_created":     EventAuctionCreated,
	"auctionCreated":      EventAuctionCreated,
	"auction_ended":       EventAuctionEnded,
	"auctionEnded":        EventAuctionEnded,
	"auction_ending_soon": EventAuctionEndingSoon,
	"auctionEndingSoon":   EventAuctionEndingSoon,
}

// Canonicalize maps a wire event name to its canonical name.
// Names outside the alias table resolve to EventReceived and ok is false.
func Canonicalize(name string) (canonical string, ok bool) {
	canonical, ok = eventAliases[name]
	if !ok {
		return EventReceived, false
	}
	return canonical, true
}

// Envelope is a decoded inbound frame.
type Envelope struct {
	Event   string          // name as sent by the server
	Name    string          // canonical name
	Payload json.RawMessage // payload, data, or the whole frame
}

// ActionType returns the sink action type for the envelope.
func (e Envelope) ActionType() string {
	return ActionPrefix + e.Name
}

// DecodeEnvelope parses one text frame. Only malformed JSON is an error; any other
// shape decodes with fallbacks for the event name and payload.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Envelope{}, err
	}

	env := Envelope{Event: EventReceived, Payload: raw}

	var fields map[string]json.RawMessage
	if json.Unmarshal(raw, &fields) == nil && fields != nil {
		if name, ok := stringField(fields, "type"); ok {
			env.Event = name
		} else if name, ok := stringField(fields, "event"); ok {
			env.Event = name
		}
		if p, ok := presentField(fields, "payload"); ok {
			env.Payload = p
		} else if p, ok := presentField(fields, "data"); ok {
			env.Payload = p
		}
	}

	env.Name, _ = Canonicalize(env.Event)
	return env, nil
}

func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	v, ok := fields[key]
	if !ok {
		return "", false
	}
	var s string
	if json.Unmarshal(v, &s) != nil || s == "" {
		return "", false
	}
	return s, true
}

func presentField(fields map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	v, ok := fields[key]
	if !ok || len(v) == 0 || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		return nil, false
	}
	return v, true
}
