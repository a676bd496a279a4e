package bot

import (
	"context"
	"testing"

	contractx "github.com/tanpawarit/storebot/bot/contract"
	sessionx "github.com/tanpawarit/storebot/bot/session"
)

func cartTestBot(t *testing.T, cart []string) (*Bot, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	store.customers["a@b.com"] = &contractx.Customer{
		Email:        "a@b.com",
		ShoppingCart: append([]string(nil), cart...),
	}
	b := newTestBot(t, &fakeTransport{}, &fakeDialogue{}, nil, store)
	b.session.BindCustomer(&contractx.Customer{Email: "a@b.com", ShoppingCart: cart})
	return b, store
}

func TestHandleAddToCartByRank(t *testing.T) {
	t.Parallel()

	b, store := cartTestBot(t, nil)
	b.session.LastResults = []sessionx.SearchResult{
		{Rank: 1, Name: "Shirt", URL: "http://store/p1"},
		{Rank: 2, Name: "Mug", URL: "http://store/p2"},
	}
	b.session.Context[sessionx.KeyShoppingCart] = "add"
	b.session.Context[sessionx.KeyCartItem] = "2"

	if wait := b.handleAddToCart(context.Background()); wait != noInputNeeded {
		t.Fatal("add must request another dialogue turn")
	}

	cart := store.customers["a@b.com"].ShoppingCart
	if len(cart) != 1 || cart[0] != "Mug: http://store/p2\n" {
		t.Fatalf("unexpected cart: %v", cart)
	}
	if b.session.Context[sessionx.KeyShoppingCart] != "" || b.session.Context[sessionx.KeyCartItem] != "" {
		t.Fatal("cart flags must be cleared after add")
	}
}

func TestHandleAddToCartOutOfRange(t *testing.T) {
	t.Parallel()

	b, store := cartTestBot(t, nil)
	b.session.LastResults = []sessionx.SearchResult{
		{Rank: 1, Name: "Shirt", URL: "http://store/p1"},
	}
	b.session.Context[sessionx.KeyCartItem] = "7"

	b.handleAddToCart(context.Background())

	if len(store.customers["a@b.com"].ShoppingCart) != 0 {
		t.Fatalf("out-of-range rank must not change the cart: %v",
			store.customers["a@b.com"].ShoppingCart)
	}
	if b.session.Context[sessionx.KeyShoppingCart] != "" || b.session.Context[sessionx.KeyCartItem] != "" {
		t.Fatal("cart flags must be cleared even on a no-op")
	}
}

func TestHandleAddToCartNonNumericRank(t *testing.T) {
	t.Parallel()

	b, store := cartTestBot(t, nil)
	b.session.LastResults = []sessionx.SearchResult{
		{Rank: 1, Name: "Shirt", URL: "http://store/p1"},
	}
	b.session.Context[sessionx.KeyCartItem] = "two"

	if wait := b.handleAddToCart(context.Background()); wait != noInputNeeded {
		t.Fatal("aborted add still requests another dialogue turn")
	}
	if len(store.customers["a@b.com"].ShoppingCart) != 0 {
		t.Fatal("aborted add must not change the cart")
	}
	if b.session.Context[sessionx.KeyCartItem] != "" {
		t.Fatal("cart flags must be cleared regardless of the parse error")
	}
}

func TestHandleDeleteFromCartByRank(t *testing.T) {
	t.Parallel()

	b, store := cartTestBot(t, []string{
		"Shirt: http://store/p1\n",
		"Mug: http://store/p2\n",
		"Cap: http://store/p3\n",
	})
	b.session.Context[sessionx.KeyCartItem] = "2"

	b.handleDeleteFromCart(context.Background())

	cart := store.customers["a@b.com"].ShoppingCart
	if len(cart) != 2 || cart[0] != "Shirt: http://store/p1\n" || cart[1] != "Cap: http://store/p3\n" {
		t.Fatalf("unexpected cart after delete: %v", cart)
	}
}

func TestHandleDeleteFromCartOutOfRange(t *testing.T) {
	t.Parallel()

	b, store := cartTestBot(t, []string{"Shirt: http://store/p1\n"})
	b.session.Context[sessionx.KeyCartItem] = "0"

	b.handleDeleteFromCart(context.Background())

	if len(store.customers["a@b.com"].ShoppingCart) != 1 {
		t.Fatal("out-of-range delete must leave the cart unchanged")
	}
}

func TestHandleListCartFormatsListing(t *testing.T) {
	t.Parallel()

	b, _ := cartTestBot(t, []string{
		"Shirt: http://store/p1\n",
		"Mug: http://store/p2\n",
	})

	if wait := b.handleListCart(context.Background()); wait != noInputNeeded {
		t.Fatal("list must request another dialogue turn")
	}

	listing, _ := b.session.Context[sessionx.KeyShoppingCart].(string)
	want := "1) Shirt: http://store/p1\n\n2) Mug: http://store/p2\n\n"
	if listing != want {
		t.Fatalf("listing = %q, want %q", listing, want)
	}
}

func TestHandleListCartEmpty(t *testing.T) {
	t.Parallel()

	b, _ := cartTestBot(t, nil)
	b.session.Context[sessionx.KeyShoppingCart] = "list"

	b.handleListCart(context.Background())

	if listing, _ := b.session.Context[sessionx.KeyShoppingCart].(string); listing != "" {
		t.Fatalf("empty cart must produce an empty listing, got %q", listing)
	}
}
