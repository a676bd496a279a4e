package main

import (
	"context"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	botx "github.com/tanpawarit/storebot/bot"
	contractx "github.com/tanpawarit/storebot/bot/contract"
	configx "github.com/tanpawarit/storebot/pkg/config"
	discoveryx "github.com/tanpawarit/storebot/pkg/discovery"
	_ "github.com/tanpawarit/storebot/pkg/logger/autoload"
	slackx "github.com/tanpawarit/storebot/pkg/slack"
	watsonx "github.com/tanpawarit/storebot/pkg/watson"
	storex "github.com/tanpawarit/storebot/store"
)

type AppConfig struct {
	DiscoveryScoreFilter string `envconfig:"DISCOVERY_SCORE_FILTER"`
}

func main() {
	ctx := context.Background()

	appCfg := configx.MustNew[AppConfig]("")

	slackCfg := configx.MustNew[slackx.Config]("SLACK")
	slackClient := slackx.MustNew(*slackCfg)

	botID := slackCfg.BotID
	if botID == "" && slackCfg.BotUser != "" {
		id, err := slackClient.LookupUserID(ctx, slackCfg.BotUser)
		if err != nil {
			log.Fatal().Err(err).Str("bot_user", slackCfg.BotUser).Msg("bot id lookup failed")
		}
		log.Info().Str("bot_id", id).Msg("resolved bot id by user name")
		botID = id
	}
	if botID == "" {
		// Last resort: the rtm.connect handshake reports the bot's own id.
		// Connect is idempotent, the run loop reuses this stream.
		if err := slackClient.Connect(ctx); err != nil {
			log.Fatal().Err(err).Msg("slack connect failed")
		}
		botID = slackClient.BotID()
		if botID == "" {
			log.Fatal().Msg("could not resolve bot id, set SLACK_BOT_ID or SLACK_BOT_USER")
		}
		log.Info().Str("bot_id", botID).Msg("resolved bot id from rtm connect")
	}

	watsonClient := watsonx.MustNew(*configx.MustNew[watsonx.Config]("CONVERSATION"))

	workspaceCfg := configx.MustNew[botx.WorkspaceConfig]("WORKSPACE")
	workspaceID, err := botx.SetupWorkspace(ctx, watsonClient, *workspaceCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("workspace setup failed")
	}

	// Discovery is optional: without it the bot serves canned search
	// results (dev/demo mode).
	var search contractx.Search
	discoveryCfg := configx.MustNew[discoveryx.Config]("DISCOVERY")
	if discoveryCfg.Configured() {
		search = discoveryx.MustNew(*discoveryCfg)
	} else {
		log.Info().Msg("discovery not configured, using canned search results")
	}

	customerStore := storex.MustNewPostgresStore(*configx.MustNew[storex.Config]("DB"))

	b, err := botx.New(slackClient, watsonClient, search, customerStore, botx.Config{
		WorkspaceID: workspaceID,
		BotID:       botID,
		ScoreFilter: parseScoreFilter(appCfg.DiscoveryScoreFilter),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("bot setup failed")
	}

	if err := b.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("bot stopped")
	}
}

// parseScoreFilter tolerates a malformed filter value: the bot still
// starts, just without score filtering.
func parseScoreFilter(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	filter, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Error().Str("value", raw).
			Msg("DISCOVERY_SCORE_FILTER must be a number between 0.0 and 1.0, using 0.0")
		return 0
	}
	return filter
}
