package auctionhouse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ============================================================================
// Shared Types
// ============================================================================

// ID is a resource identifier. The API sends ids as numbers or strings; both decode.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// APIError is a non-2xx response from the REST API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// parseAPIError extracts a human readable message from an error body. The API reports
// errors as {"error": "..."}, {"errors": [...]}, {"errors": {"field": [...]}} or
// {"message": "..."}.
func parseAPIError(status int, body []byte) *APIError {
	e := &APIError{Status: status, Message: http.StatusText(status)}

	var data struct {
		Error   json.RawMessage `json:"error"`
		Errors  json.RawMessage `json:"errors"`
		Message string          `json:"message"`
	}
	if json.Unmarshal(body, &data) != nil {
		if s := strings.TrimSpace(string(body)); s != "" {
			e.Message = s
		}
		return e
	}

	var s string
	if json.Unmarshal(data.Error, &s) == nil && s != "" {
		e.Message = s
		return e
	}

	var list []string
	if json.Unmarshal(data.Errors, &list) == nil && len(list) > 0 {
		e.Message = strings.Join(list, ", ")
		return e
	}

	var fields map[string]json.RawMessage
	if json.Unmarshal(data.Errors, &fields) == nil && len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var msgs []string
		for _, k := range keys {
			var many []string
			if json.Unmarshal(fields[k], &many) == nil {
				for _, m := range many {
					msgs = append(msgs, k+": "+m)
				}
				continue
			}
			var one string
			if json.Unmarshal(fields[k], &one) == nil {
				msgs = append(msgs, k+": "+one)
			}
		}
		if len(msgs) > 0 {
			e.Message = strings.Join(msgs, ", ")
			return e
		}
	}

	if data.Message != "" {
		e.Message = data.Message
	}
	return e
}

// ============================================================================
// Auth Types
// ============================================================================

type User struct {
	ID       ID       `json:"id"`
	Name     string   `json:"name,omitempty"`
	Username string   `json:"username,omitempty"`
	Email    string   `json:"email"`
	Balance  *float64 `json:"balance,omitempty"`
}

type AuthResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type RegisterOptions struct {
	Name                 string `json:"name,omitempty"`
	Username             string `json:"username,omitempty"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation,omitempty"`
}

type UpdateUserOptions struct {
	Name     string `json:"name,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

type Balance struct {
	Balance float64 `json:"balance"`
}

// ============================================================================
// Auction Types
// ============================================================================

type Auction struct {
	ID            ID        `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	Category      string    `json:"category,omitempty"`
	Condition     string    `json:"condition,omitempty"`
	Location      string    `json:"location,omitempty"`
	Status        string    `json:"status"`
	StartingPrice float64   `json:"starting_price"`
	CurrentPrice  float64   `json:"current_price,omitempty"`
	BidCount      int       `json:"bid_count,omitempty"`
	EndsAt        time.Time `json:"ends_at"`
	CreatorID     ID        `json:"creator_id,omitempty"`
	Images        []string  `json:"images,omitempty"`
}

type Bid struct {
	ID        ID        `json:"id"`
	AuctionID ID        `json:"auction_id,omitempty"`
	Amount    float64   `json:"amount"`
	Bidder    string    `json:"bidder,omitempty"`
	UserID    ID        `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalJSON accepts both "amount" and "bid_amount".
func (b *Bid) UnmarshalJSON(data []byte) error {
	type plain Bid
	var aux struct {
		plain
		BidAmount *float64 `json:"bid_amount"`
		BidID     *ID      `json:"bid_id"`
		Username  string   `json:"username"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*b = Bid(aux.plain)
	if aux.BidAmount != nil {
		b.Amount = *aux.BidAmount
	}
	if b.ID == "" && aux.BidID != nil {
		b.ID = *aux.BidID
	}
	if b.Bidder == "" {
		b.Bidder = aux.Username
	}
	return nil
}

type ListOptions struct {
	Status  string
	Page    int
	PerPage int
}

func (o *ListOptions) query() map[string]string {
	page, perPage := 1, 20
	var status string
	if o != nil {
		if o.Page > 0 {
			page = o.Page
		}
		if o.PerPage > 0 {
			perPage = o.PerPage
		}
		status = o.Status
	}
	q := map[string]string{
		"page":     strconv.Itoa(page),
		"per_page": strconv.Itoa(perPage),
	}
	if status != "" && status != "all" {
		q["status"] = status
	}
	return q
}

type CreateAuctionOptions struct {
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	Condition     string    `json:"condition,omitempty"`
	Location      string    `json:"location,omitempty"`
	Status        string    `json:"status,omitempty"`
	StartingPrice float64   `json:"starting_price"`
	EndsAt        time.Time `json:"ends_at"`
}

type UpdateAuctionOptions struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Category    *string    `json:"category,omitempty"`
	Condition   *string    `json:"condition,omitempty"`
	Location    *string    `json:"location,omitempty"`
	Status      *string    `json:"status,omitempty"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
}

type AuctionPage struct {
	Auctions []Auction     `json:"auctions"`
	Meta     *PageMetadata `json:"meta,omitempty"`
}

type PageMetadata struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
	TotalCount int `json:"total_count"`
}

// Statistics is returned by GET /statistics. Fields vary by server version, so the
// raw document is kept alongside the common counters.
type Statistics struct {
	TotalAuctions      int             `json:"total_auctions"`
	ActiveAuctions     int             `json:"active_auctions"`
	EndingSoonAuctions int             `json:"ending_soon_auctions"`
	TotalBids          int             `json:"total_bids"`
	Raw                json.RawMessage `json:"-"`
}
