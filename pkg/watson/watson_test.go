package watson

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		Username: "user",
		Password: "pass",
		BaseURL:  server.URL,
		Version:  "2016-07-11",
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestNewClientRequiresCredentials(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{Username: "user"}); err == nil {
		t.Fatal("expected error for missing password")
	}
}

func TestMessageTurn(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/workspaces/ws-1/message" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("version") != "2016-07-11" {
			t.Fatalf("missing version param: %s", r.URL.RawQuery)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "user" || pass != "pass" {
			t.Fatal("basic auth not set")
		}
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		fmt.Fprint(w, `{"output":{"text":["Hi!","What can I do?"]},"context":{"get_input":"no"}}`)
	})

	turn, err := client.MessageTurn(context.Background(), "ws-1", "hello",
		map[string]any{"email": "a@b.com"})
	if err != nil {
		t.Fatalf("MessageTurn() error = %v", err)
	}

	input, _ := gotBody["input"].(map[string]any)
	if input["text"] != "hello" {
		t.Fatalf("unexpected input: %v", gotBody["input"])
	}
	sent, _ := gotBody["context"].(map[string]any)
	if sent["email"] != "a@b.com" {
		t.Fatalf("context not sent: %v", gotBody["context"])
	}

	if len(turn.Texts) != 2 || turn.Texts[0] != "Hi!" {
		t.Fatalf("unexpected texts: %v", turn.Texts)
	}
	if turn.Context["get_input"] != "no" {
		t.Fatalf("unexpected context: %v", turn.Context)
	}
}

func TestMessageTurnHTTPError(t *testing.T) {
	t.Parallel()

	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})

	if _, err := client.MessageTurn(context.Background(), "ws-1", "x", nil); err == nil {
		t.Fatal("expected error for http status 401")
	}
}

func TestListWorkspaces(t *testing.T) {
	t.Parallel()

	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Fatalf("unexpected method %s", r.Method)
		}
		fmt.Fprint(w, `{"workspaces":[{"workspace_id":"ws-1","name":"a"},{"workspace_id":"ws-2","name":"b"}]}`)
	})

	workspaces, err := client.ListWorkspaces(context.Background())
	if err != nil {
		t.Fatalf("ListWorkspaces() error = %v", err)
	}
	if len(workspaces) != 2 || workspaces[1].ID != "ws-2" {
		t.Fatalf("unexpected workspaces: %+v", workspaces)
	}
}

func TestCreateWorkspaceMergesDefinition(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		fmt.Fprint(w, `{"workspace_id":"ws-new","name":"storebot"}`)
	})

	created, err := client.CreateWorkspace(context.Background(), "storebot", "test workspace",
		map[string]any{"language": "en", "intents": []any{}})
	if err != nil {
		t.Fatalf("CreateWorkspace() error = %v", err)
	}
	if created.ID != "ws-new" {
		t.Fatalf("unexpected id %q", created.ID)
	}
	if gotBody["name"] != "storebot" || gotBody["language"] != "en" {
		t.Fatalf("definition not merged into body: %v", gotBody)
	}
}
