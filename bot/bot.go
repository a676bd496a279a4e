// Package bot holds the context-driven dialogue orchestration loop: it
// reads chat events, exchanges (message, context) turns with the dialogue
// engine, and branches on context flags to run search and cart handlers
// before deciding whether to wait for the next human message.
package bot

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/storebot/bot/contract"
	sessionx "github.com/tanpawarit/storebot/bot/session"
)

// Handler return values. A handler that returns noInputNeeded makes the
// loop resubmit the held message to the dialogue engine so its graph can
// advance on the updated context alone.
const (
	noInputNeeded = false
	awaitInput    = true
)

const defaultPollDelay = 500 * time.Millisecond

type Config struct {
	WorkspaceID string
	BotID       string
	ScoreFilter float64
	PollDelay   time.Duration
}

// Bot is one session's orchestration loop. It owns the session state
// exclusively: exactly one turn and one collaborator call are in flight
// at any time.
type Bot struct {
	transport contractx.Transport
	dialogue  contractx.Dialogue
	search    contractx.Search // nil in dev/demo mode
	store     contractx.CustomerStore

	workspaceID string
	botID       string
	atBot       string
	scoreFilter float64
	delay       time.Duration

	session *sessionx.Session

	randIntn func(int) int
	sleep    func(time.Duration)
}

func New(
	transport contractx.Transport,
	dialogue contractx.Dialogue,
	search contractx.Search,
	store contractx.CustomerStore,
	cfg Config,
) (*Bot, error) {
	if transport == nil {
		return nil, errors.New("transport is required")
	}
	if dialogue == nil {
		return nil, errors.New("dialogue engine is required")
	}
	if store == nil {
		return nil, errors.New("customer store is required")
	}
	if strings.TrimSpace(cfg.WorkspaceID) == "" {
		return nil, errors.New("workspace id is required")
	}
	if strings.TrimSpace(cfg.BotID) == "" {
		return nil, errors.New("bot id is required")
	}

	delay := cfg.PollDelay
	if delay <= 0 {
		delay = defaultPollDelay
	}

	return &Bot{
		transport:   transport,
		dialogue:    dialogue,
		search:      search,
		store:       store,
		workspaceID: cfg.WorkspaceID,
		botID:       cfg.BotID,
		atBot:       "<@" + cfg.BotID + ">",
		scoreFilter: cfg.ScoreFilter,
		delay:       delay,
		session:     sessionx.New(),
		randIntn:    rand.Intn,
		sleep:       time.Sleep,
	}, nil
}

// Run is the cooperative polling loop: read events, process at most one
// message, sleep, repeat. Only startup failures and a dead transport end
// it; per-turn errors are logged and absorbed.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.store.Init(ctx); err != nil {
		return err
	}

	if err := b.transport.Connect(ctx); err != nil {
		log.Warn().Err(err).Msg("connection failed, invalid chat token or bot id?")
		return err
	}
	log.Info().Msg("store bot is connected and running")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		events, err := b.transport.Read(ctx)
		if err != nil {
			return err
		}

		message, channel, user := b.parseEvents(events)
		if user != "" && b.session.Customer == nil {
			b.resolveCustomer(ctx, user)
		}

		if message != "" && channel != "" {
			log.Debug().
				Str("message", message).
				Str("channel", channel).
				Msg("processing message")
			wait := b.handleMessage(ctx, message, channel)
			for !wait {
				wait = b.handleMessage(ctx, message, channel)
			}
		}

		b.sleep(b.delay)
	}
}

// parseEvents picks the first event addressed to the bot: either a
// message mentioning it, or any direct message not authored by the bot
// itself. Mention markup is stripped and the text lowercased. Events
// carrying a profile payload are not user input and are skipped.
func (b *Bot) parseEvents(events []contractx.Event) (message, channel, user string) {
	for _, ev := range events {
		if ev.Text == "" || ev.UserID == "" || ev.HasProfile {
			continue
		}
		if strings.Contains(ev.Text, b.atBot) {
			text := strings.Join(strings.Split(ev.Text, b.atBot), "")
			return strings.ToLower(strings.TrimSpace(text)), ev.Channel, ev.UserID
		}
		if strings.HasPrefix(ev.Channel, "D") && ev.UserID != b.botID {
			return strings.ToLower(strings.TrimSpace(ev.Text)), ev.Channel, ev.UserID
		}
	}
	return "", "", ""
}

// handleMessage runs one dialogue turn and the flag dispatch chain.
// Returns awaitInput when the turn is complete and the loop should block
// for the next human message, noInputNeeded when a handler wants the
// dialogue engine to take another turn on the updated context.
func (b *Bot) handleMessage(ctx context.Context, message, channel string) bool {
	turn, err := b.dialogue.MessageTurn(ctx, b.workspaceID, message, b.session.Context)
	if err != nil {
		log.Error().Err(err).Msg("dialogue turn failed")
		return awaitInput
	}
	log.Debug().Interface("context", turn.Context).Msg("dialogue turn")

	// The engine's returned context replaces ours wholesale. Shallow
	// merging is only for locally produced fragments.
	b.session.ReplaceContext(turn.Context)

	var reply strings.Builder
	for _, text := range turn.Texts {
		reply.WriteString(text)
		reply.WriteString("\n")
	}
	if err := b.transport.Send(ctx, channel, reply.String()); err != nil {
		log.Error().Err(err).Str("channel", channel).Msg("send reply failed")
	}

	return b.dispatch(ctx)
}

// dispatch inspects the context flags in priority order: search first,
// then cart list/add/delete, then the explicit no-more-input flag. The
// search rule only fires with a search collaborator wired; without one
// the flag falls through to the remaining checks.
func (b *Bot) dispatch(ctx context.Context) bool {
	cctx := b.session.Context

	if cctx.SearchQuery() != "" && b.search != nil {
		return b.handleSearchQuery(ctx)
	}

	if cmd := cctx.CartCommand(); cmd != "" {
		if b.session.Customer == nil {
			log.Warn().Str("command", cmd).Msg("cart command without a bound customer")
			cctx.ClearCartFlags()
			return awaitInput
		}
		switch cmd {
		case sessionx.CartCmdList:
			return b.handleListCart(ctx)
		case sessionx.CartCmdAdd:
			if cctx.HasCartRank() {
				return b.handleAddToCart(ctx)
			}
		case sessionx.CartCmdDelete:
			if cctx.HasCartRank() {
				return b.handleDeleteFromCart(ctx)
			}
		}
	}

	if cctx.InputDone() {
		return noInputNeeded
	}

	return awaitInput
}
