package contract

import "context"

// Transport is the chat UI the bot lives on. Read returns whatever events
// arrived since the last call without blocking; events the bot does not
// understand are ignored by the caller.
type Transport interface {
	Connect(ctx context.Context) error
	Read(ctx context.Context) ([]Event, error)
	Send(ctx context.Context, channel, text string) error
	LookupProfile(ctx context.Context, userID string) (Profile, error)
}

// Dialogue is the turn-based dialogue engine. MessageTurn exchanges one
// (message, context) pair; the engine may rewrite the context arbitrarily.
type Dialogue interface {
	MessageTurn(ctx context.Context, workspaceID, text string, conversation map[string]any) (TurnResult, error)
	ListWorkspaces(ctx context.Context) ([]Workspace, error)
	CreateWorkspace(ctx context.Context, name, description string, definition map[string]any) (Workspace, error)
}

// Search is the document search service behind product queries.
type Search interface {
	Query(ctx context.Context, text string, count int) (QueryResult, error)
}

// CustomerStore persists customer records and their shopping carts.
// Init is an idempotent schema/connection check run once at startup.
type CustomerStore interface {
	Init(ctx context.Context) error
	FindCustomer(ctx context.Context, email string) (*Customer, error)
	CreateCustomer(ctx context.Context, customer *Customer) error
	ListCart(ctx context.Context, email string) ([]string, error)
	AddCartItem(ctx context.Context, email, item string) error
	DeleteCartItem(ctx context.Context, email, item string) error
}
