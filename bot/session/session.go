package session

import (
	"fmt"
	"strconv"
	"strings"

	contractx "github.com/tanpawarit/storebot/bot/contract"
)

// Context is the conversation context that round-trips through the
// dialogue engine each turn. Keys are introduced dynamically by the
// engine's dialogue graph; only the few flag keys below are understood
// here, everything else passes through opaquely.
type Context map[string]any

// Flag keys recognized by the orchestration loop.
const (
	KeySearchQuery  = "discovery_string"
	KeySearchResult = "discovery_result"
	KeyShoppingCart = "shopping_cart"
	KeyCartItem     = "cart_item"
	KeyGetInput     = "get_input"
)

// Cart command words the dialogue graph sets on the shopping_cart flag.
const (
	CartCmdList   = "list"
	CartCmdAdd    = "add"
	CartCmdDelete = "delete"
)

// Merge returns a new context holding every key of base, with keys from
// fragment overwriting on collision. A nil or empty fragment is a no-op.
// Shallow only: nested values are taken as-is.
func Merge(base Context, fragment map[string]any) Context {
	merged := make(Context, len(base)+len(fragment))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range fragment {
		merged[k] = v
	}
	return merged
}

func (c Context) str(key string) string {
	v, ok := c[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// SearchQuery returns the pending search query flag, if any.
func (c Context) SearchQuery() string {
	return c.str(KeySearchQuery)
}

// CartCommand returns the cart command word ("list", "add", "delete") or
// "" when the cart flag is idle or holds a listing.
func (c Context) CartCommand() string {
	switch cmd := c.str(KeyShoppingCart); cmd {
	case CartCmdList, CartCmdAdd, CartCmdDelete:
		return cmd
	default:
		return ""
	}
}

// CartRank parses the 1-based cart item rank flag. An empty flag returns
// ok=false with no error; a non-numeric flag returns ErrBadCartRank.
func (c Context) CartRank() (int, bool, error) {
	raw := strings.TrimSpace(c.str(KeyCartItem))
	if raw == "" {
		return 0, false, nil
	}
	rank, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %q", contractx.ErrBadCartRank, raw)
	}
	return rank, true, nil
}

// HasCartRank reports whether the cart item flag is non-empty, without
// caring if it parses.
func (c Context) HasCartRank() bool {
	return c.str(KeyCartItem) != ""
}

// InputDone reports the dialogue graph's explicit "no further input
// needed" flag.
func (c Context) InputDone() bool {
	return c.str(KeyGetInput) == "no"
}

// ClearCartFlags resets the transient cart flags so the dialogue graph's
// command-word expectation returns to idle. Run after every cart
// operation, successful or not.
func (c Context) ClearCartFlags() {
	c[KeyShoppingCart] = ""
	c[KeyCartItem] = ""
}

// SearchResult is one formatted product hit. Rank is 1-based and reset per
// query; superseded wholesale on each new query.
type SearchResult struct {
	Rank  int    `json:"rank"`
	Name  string `json:"name"`
	URL   string `json:"url"`
	Image string `json:"image"`
}

// Session is one chat identity's conversational state: the running
// context, the bound customer (nil until resolved), and the structured
// results of the most recent search, kept for add-by-rank. Owned
// exclusively by one orchestration loop; never touched concurrently.
type Session struct {
	Context     Context
	Customer    *contractx.Customer
	LastResults []SearchResult
}

func New() *Session {
	return &Session{Context: make(Context)}
}

// BindCustomer attaches the resolved customer and folds its fields into
// the context so the dialogue engine sees them on the next turn.
func (s *Session) BindCustomer(customer *contractx.Customer) {
	s.Customer = customer
	s.Context = Merge(s.Context, customer.Fields())
}

// ReplaceContext swaps in the dialogue engine's returned context
// wholesale. This is deliberately not a Merge: the engine owns the
// context between turns.
func (s *Session) ReplaceContext(fresh map[string]any) {
	if fresh == nil {
		return
	}
	s.Context = Context(fresh)
}
