package bot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	contractx "github.com/tanpawarit/storebot/bot/contract"
)

type fakeWorkspaceDialogue struct {
	fakeDialogue

	workspaces []contractx.Workspace
	listErr    error
	created    []string
	definition map[string]any
}

func (f *fakeWorkspaceDialogue) ListWorkspaces(ctx context.Context) ([]contractx.Workspace, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.workspaces, nil
}

func (f *fakeWorkspaceDialogue) CreateWorkspace(ctx context.Context, name, description string, definition map[string]any) (contractx.Workspace, error) {
	f.created = append(f.created, name)
	f.definition = definition
	return contractx.Workspace{ID: "ws-created", Name: name}, nil
}

func TestSetupWorkspaceByID(t *testing.T) {
	t.Parallel()

	dialogue := &fakeWorkspaceDialogue{
		workspaces: []contractx.Workspace{{ID: "ws-1", Name: "other"}},
	}

	id, err := SetupWorkspace(context.Background(), dialogue, WorkspaceConfig{ID: "ws-1"})
	if err != nil {
		t.Fatalf("SetupWorkspace() error = %v", err)
	}
	if id != "ws-1" {
		t.Fatalf("unexpected id %q", id)
	}
}

func TestSetupWorkspaceConfiguredIDMustExist(t *testing.T) {
	t.Parallel()

	dialogue := &fakeWorkspaceDialogue{}
	_, err := SetupWorkspace(context.Background(), dialogue, WorkspaceConfig{ID: "ws-404"})
	if !errors.Is(err, contractx.ErrWorkspaceMissing) {
		t.Fatalf("expected ErrWorkspaceMissing, got %v", err)
	}
}

func TestSetupWorkspaceByName(t *testing.T) {
	t.Parallel()

	dialogue := &fakeWorkspaceDialogue{
		workspaces: []contractx.Workspace{
			{ID: "ws-a", Name: "something-else"},
			{ID: "ws-b", Name: "watson-online-store"},
		},
	}

	id, err := SetupWorkspace(context.Background(), dialogue, WorkspaceConfig{Name: "watson-online-store"})
	if err != nil {
		t.Fatalf("SetupWorkspace() error = %v", err)
	}
	if id != "ws-b" {
		t.Fatalf("unexpected id %q", id)
	}
	if len(dialogue.created) != 0 {
		t.Fatalf("no create expected when name is found, got %v", dialogue.created)
	}
}

func TestSetupWorkspaceCreatesFromDefinition(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "workspace.json")
	definition := `{"language":"en","intents":[],"entities":[],"dialog_nodes":[]}`
	if err := os.WriteFile(path, []byte(definition), 0o600); err != nil {
		t.Fatalf("write definition: %v", err)
	}

	dialogue := &fakeWorkspaceDialogue{}
	id, err := SetupWorkspace(context.Background(), dialogue, WorkspaceConfig{
		Name: "storebot-dev",
		File: path,
	})
	if err != nil {
		t.Fatalf("SetupWorkspace() error = %v", err)
	}
	if id != "ws-created" {
		t.Fatalf("unexpected id %q", id)
	}
	if len(dialogue.created) != 1 || dialogue.created[0] != "storebot-dev" {
		t.Fatalf("unexpected creates: %v", dialogue.created)
	}
	if dialogue.definition["language"] != "en" {
		t.Fatalf("definition not passed through: %v", dialogue.definition)
	}
}

func TestSetupWorkspaceMissingDefinitionFile(t *testing.T) {
	t.Parallel()

	dialogue := &fakeWorkspaceDialogue{}
	_, err := SetupWorkspace(context.Background(), dialogue, WorkspaceConfig{
		Name: "storebot-dev",
		File: filepath.Join(t.TempDir(), "absent.json"),
	})
	if err == nil {
		t.Fatal("expected error for a missing definition file")
	}
}
