package bot

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/storebot/bot/contract"
)

// resolveCustomer binds the datastore customer record for a chat identity.
// Called on the first identity-bearing event of a session; any failure is
// logged and left for the next qualifying event to retry.
func (b *Bot) resolveCustomer(ctx context.Context, userID string) {
	profile, err := b.transport.LookupProfile(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("identity profile lookup failed")
		return
	}
	if profile.Email == "" {
		log.Debug().Str("user_id", userID).Msg("identity profile has no email, not binding")
		return
	}

	customer, err := b.store.FindCustomer(ctx, profile.Email)
	switch {
	case err == nil:
		log.Debug().Str("email", customer.Email).Msg("customer found in store")
	case errors.Is(err, contractx.ErrCustomerNotFound):
		customer = &contractx.Customer{
			Email:        profile.Email,
			FirstName:    profile.FirstName,
			LastName:     profile.LastName,
			ShoppingCart: []string{},
		}
		if err := b.store.CreateCustomer(ctx, customer); err != nil {
			log.Error().Err(err).Str("email", customer.Email).Msg("create customer failed")
			return
		}
		log.Debug().Str("email", customer.Email).Msg("created customer from chat profile")
	default:
		log.Error().Err(err).Str("email", profile.Email).Msg("customer lookup failed")
		return
	}

	// Now the dialogue engine will see the customer fields.
	b.session.BindCustomer(customer)
}
