package bot

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	sessionx "github.com/tanpawarit/storebot/bot/session"
)

// handleListCart reads the cart from the datastore and replaces the cart
// flag with the formatted listing for the dialogue engine to render.
func (b *Bot) handleListCart(ctx context.Context) bool {
	email := b.session.Customer.Email

	cart, err := b.store.ListCart(ctx, email)
	if err != nil {
		log.Error().Err(err).Str("email", email).Msg("list shopping cart failed")
	}

	var formatted string
	for i, item := range cart {
		formatted += fmt.Sprintf("%d) %s\n", i+1, item)
	}
	b.session.Context[sessionx.KeyShoppingCart] = formatted

	return noInputNeeded
}

// handleAddToCart appends the rank-th entry of the most recent search
// results to the cart. An out-of-range rank matches nothing and is a
// silent no-op; a non-numeric rank is a local error. Either way the cart
// flags are cleared so the dialogue graph's command word returns to idle.
func (b *Bot) handleAddToCart(ctx context.Context) bool {
	defer b.session.Context.ClearCartFlags()

	rank, ok, err := b.session.Context.CartRank()
	if err != nil {
		log.Error().Err(err).Msg("cart item must be a number")
		return noInputNeeded
	}
	if !ok {
		return noInputNeeded
	}

	email := b.session.Customer.Email
	for _, entry := range b.session.LastResults {
		if entry.Rank != rank {
			continue
		}
		item := entry.Name + ": " + entry.URL + "\n"
		if err := b.store.AddCartItem(ctx, email, item); err != nil {
			log.Error().Err(err).Str("email", email).Msg("add cart item failed")
		}
	}

	return noInputNeeded
}

// handleDeleteFromCart removes the rank-th entry of the current cart
// listing. Same rank rules as handleAddToCart.
func (b *Bot) handleDeleteFromCart(ctx context.Context) bool {
	defer b.session.Context.ClearCartFlags()

	rank, ok, err := b.session.Context.CartRank()
	if err != nil {
		log.Error().Err(err).Msg("cart item must be a number")
		return noInputNeeded
	}
	if !ok {
		return noInputNeeded
	}

	email := b.session.Customer.Email
	cart, err := b.store.ListCart(ctx, email)
	if err != nil {
		log.Error().Err(err).Str("email", email).Msg("list shopping cart failed")
		return noInputNeeded
	}

	for i, item := range cart {
		if i+1 != rank {
			continue
		}
		if err := b.store.DeleteCartItem(ctx, email, item); err != nil {
			log.Error().Err(err).Str("email", email).Msg("delete cart item failed")
		}
	}

	return noInputNeeded
}
