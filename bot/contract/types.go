package contract

// Event is one transport event. Only message events carry Text, Channel
// and UserID; anything else (typing notices, profile changes, pings) comes
// through with those fields empty or HasProfile set and is skipped.
type Event struct {
	Text       string
	Channel    string
	UserID     string
	HasProfile bool
}

// Profile is the identity record the transport knows about a user.
type Profile struct {
	Email     string
	FirstName string
	LastName  string
}

// Customer is the datastore-backed identity + cart record. Email is the
// unique key; ShoppingCart keeps insertion order and allows duplicates.
type Customer struct {
	Email        string   `json:"email"`
	FirstName    string   `json:"first_name"`
	LastName     string   `json:"last_name"`
	ShoppingCart []string `json:"shopping_cart"`
}

// Fields returns the customer as a context fragment for the dialogue
// engine.
func (c *Customer) Fields() map[string]any {
	return map[string]any{
		"email":         c.Email,
		"first_name":    c.FirstName,
		"last_name":     c.LastName,
		"shopping_cart": c.ShoppingCart,
	}
}

// TurnResult is one dialogue engine exchange. Context, when non-nil,
// replaces the running conversation context wholesale.
type TurnResult struct {
	Texts   []string
	Context map[string]any
}

// Workspace is a named dialogue configuration inside the engine.
type Workspace struct {
	ID   string `json:"workspace_id"`
	Name string `json:"name"`
}

// QueryResult is a raw search response. MatchingResults tracks the count
// after score filtering.
type QueryResult struct {
	MatchingResults int         `json:"matching_results"`
	Results         []RawResult `json:"results"`
}

// RawResult is one search hit. HTML and Text are scraped by the result
// formatter; Score is the engine's confidence ranking.
type RawResult struct {
	HTML  string  `json:"html"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}
