package auctionhouse

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
)

// AuctionsClient handles auction CRUD and bidding.
type AuctionsClient struct{ client *Client }

func auctionPath(id ID) string {
	return "/auctions/" + url.PathEscape(string(id))
}

// List returns one page of auctions. Status "all" or "" lists every status.
func (ac *AuctionsClient) List(ctx context.Context, opts *ListOptions) (*AuctionPage, error) {
	data, err := ac.client.do(ctx, request{method: "GET", path: "/auctions", query: opts.query()})
	if err != nil {
		return nil, err
	}
	return decodeAuctionPage(data)
}

// Mine returns the auctions created by the current user.
func (ac *AuctionsClient) Mine(ctx context.Context) (*AuctionPage, error) {
	data, err := ac.client.do(ctx, request{method: "GET", path: "/users/me/auctions"})
	if err != nil {
		return nil, err
	}
	return decodeAuctionPage(data)
}

func (ac *AuctionsClient) Get(ctx context.Context, id ID) (*Auction, error) {
	data, err := ac.client.do(ctx, request{method: "GET", path: auctionPath(id)})
	if err != nil {
		return nil, err
	}
	return decodeWrapped[Auction](data, "auction")
}

func (ac *AuctionsClient) Create(ctx context.Context, opts *CreateAuctionOptions) (*Auction, error) {
	data, err := ac.client.do(ctx, request{
		method: "POST",
		path:   "/auctions",
		body:   map[string]*CreateAuctionOptions{"auction": opts},
	})
	if err != nil {
		return nil, err
	}
	return decodeWrapped[Auction](data, "auction")
}

func (ac *AuctionsClient) Update(ctx context.Context, id ID, opts *UpdateAuctionOptions) (*Auction, error) {
	data, err := ac.client.do(ctx, request{
		method: "PUT",
		path:   auctionPath(id),
		body:   map[string]*UpdateAuctionOptions{"auction": opts},
	})
	if err != nil {
		return nil, err
	}
	return decodeWrapped[Auction](data, "auction")
}

func (ac *AuctionsClient) Delete(ctx context.Context, id ID) error {
	_, err := ac.client.do(ctx, request{method: "DELETE", path: auctionPath(id)})
	return err
}

// PlaceBid bids amount on an auction and returns the accepted bid.
func (ac *AuctionsClient) PlaceBid(ctx context.Context, id ID, amount float64) (*Bid, error) {
	data, err := ac.client.do(ctx, request{
		method: "POST",
		path:   auctionPath(id) + "/bid",
		body:   map[string]float64{"amount": amount},
	})
	if err != nil {
		return nil, err
	}
	return decodeWrapped[Bid](data, "bid")
}

func (ac *AuctionsClient) BidHistory(ctx context.Context, id ID) ([]Bid, error) {
	data, err := ac.client.do(ctx, request{method: "GET", path: auctionPath(id) + "/bid_history"})
	if err != nil {
		return nil, err
	}
	bids, err := decodeWrapped[[]Bid](data, "bids")
	if err != nil {
		return nil, err
	}
	return *bids, nil
}

// Statistics returns marketplace counters. endingSoonHours overrides the server's
// default window when non-nil.
func (ac *AuctionsClient) Statistics(ctx context.Context, endingSoonHours *int) (*Statistics, error) {
	var query map[string]string
	if endingSoonHours != nil {
		query = map[string]string{"ending_soon_hours": strconv.Itoa(*endingSoonHours)}
	}
	data, err := ac.client.do(ctx, request{method: "GET", path: "/statistics", query: query})
	if err != nil {
		return nil, err
	}
	stats, err := decodeJSON[Statistics](data)
	if err != nil {
		return nil, err
	}
	stats.Raw = json.RawMessage(data)
	return stats, nil
}

func decodeAuctionPage(data []byte) (*AuctionPage, error) {
	var list []Auction
	if json.Unmarshal(data, &list) == nil {
		return &AuctionPage{Auctions: list}, nil
	}
	return decodeJSON[AuctionPage](data)
}
