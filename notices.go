package auctionhouse

import (
	"encoding/json"
	"fmt"
	"strconv"
)

const defaultHoursRemaining = 2

// EndingSoonNotice is the user-facing form of an auctionEndingSoon payload.
type EndingSoonNotice struct {
	AuctionID      ID
	Title          string
	HoursRemaining float64
}

// ParseEndingSoon reads an auctionEndingSoon payload. Servers send either
// {auctionId, auction, hoursRemaining} or a bare auction, in camel or snake case;
// missing values fall back to "An auction" and 2 hours.
func ParseEndingSoon(payload json.RawMessage) EndingSoonNotice {
	var p struct {
		Auction             json.RawMessage `json:"auction"`
		AuctionID           ID              `json:"auctionId"`
		AuctionIDSnake      ID              `json:"auction_id"`
		HoursRemaining      float64         `json:"hoursRemaining"`
		HoursRemainingSnake float64         `json:"hours_remaining"`
	}
	_ = json.Unmarshal(payload, &p)

	auction := p.Auction
	if len(auction) == 0 || string(auction) == "null" {
		auction = payload
	}
	var a struct {
		ID    ID     `json:"id"`
		Title string `json:"title"`
	}
	_ = json.Unmarshal(auction, &a)

	n := EndingSoonNotice{
		AuctionID:      firstID(p.AuctionID, p.AuctionIDSnake, a.ID),
		Title:          a.Title,
		HoursRemaining: p.HoursRemaining,
	}
	if n.HoursRemaining == 0 {
		n.HoursRemaining = p.HoursRemainingSnake
	}
	if n.HoursRemaining == 0 {
		n.HoursRemaining = defaultHoursRemaining
	}
	if n.Title == "" {
		n.Title = "An auction"
	}
	return n
}

// Message renders the notice for display.
func (n EndingSoonNotice) Message() string {
	unit := "hours"
	if n.HoursRemaining == 1 {
		unit = "hour"
	}
	return fmt.Sprintf("%q is closing in %s %s. Place your bid now!",
		n.Title, strconv.FormatFloat(n.HoursRemaining, 'f', -1, 64), unit)
}

func firstID(ids ...ID) ID {
	for _, id := range ids {
		if id != "" {
			return id
		}
	}
	return ""
}
