package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/storebot/bot/contract"
)

const workspaceDescription = "Conversation workspace created by storebot."

type WorkspaceConfig struct {
	ID   string `envconfig:"ID" split_words:"true"`
	Name string `envconfig:"NAME" split_words:"true" default:"watson-online-store"`
	File string `envconfig:"FILE" split_words:"true" default:"data/workspace.json"`
}

// SetupWorkspace resolves the dialogue workspace to use, once at startup.
// A configured ID must exist. Otherwise the workspace is looked up by
// name, and created from the definition file when the lookup finds
// nothing, so a future start finds what was created.
func SetupWorkspace(ctx context.Context, dialogue contractx.Dialogue, cfg WorkspaceConfig) (string, error) {
	workspaces, err := dialogue.ListWorkspaces(ctx)
	if err != nil {
		return "", fmt.Errorf("list workspaces: %w", err)
	}

	if cfg.ID != "" {
		for _, ws := range workspaces {
			if ws.ID == cfg.ID {
				log.Debug().Str("workspace_id", cfg.ID).Msg("using configured workspace id")
				return cfg.ID, nil
			}
		}
		return "", fmt.Errorf("%w: configured id %s does not exist", contractx.ErrWorkspaceMissing, cfg.ID)
	}

	for _, ws := range workspaces {
		if ws.Name == cfg.Name {
			log.Debug().
				Str("workspace_id", ws.ID).
				Str("name", cfg.Name).
				Msg("found workspace by name")
			return ws.ID, nil
		}
	}

	definition, err := loadWorkspaceDefinition(cfg.File)
	if err != nil {
		return "", err
	}

	log.Debug().Str("file", cfg.File).Msg("creating workspace from definition file")
	created, err := dialogue.CreateWorkspace(ctx, cfg.Name, workspaceDescription, definition)
	if err != nil {
		return "", fmt.Errorf("create workspace: %w", err)
	}
	log.Debug().
		Str("workspace_id", created.ID).
		Str("name", cfg.Name).
		Msg("created workspace")
	return created.ID, nil
}

func loadWorkspaceDefinition(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workspace definition: %w", err)
	}
	var definition map[string]any
	if err := json.Unmarshal(raw, &definition); err != nil {
		return nil, fmt.Errorf("parse workspace definition: %w", err)
	}
	return definition, nil
}
