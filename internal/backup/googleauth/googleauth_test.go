package googleauth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const clientJSON = `{"installed":{"client_id":"id.apps.googleusercontent.com","client_secret":"secret","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost"]}}`

func TestSourceRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	if err := os.WriteFile(path, []byte(`{"access_token":"from-file"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	b, err := Source{JSON: `{"access_token":"inline"}`, File: path}.Read()
	if err != nil || !strings.Contains(string(b), "inline") {
		t.Fatalf("inline JSON should win: %s %v", b, err)
	}
	b, err = Source{File: path}.Read()
	if err != nil || !strings.Contains(string(b), "from-file") {
		t.Fatalf("file read: %s %v", b, err)
	}
	if _, err := (Source{File: filepath.Join(t.TempDir(), "missing.json")}).Read(); err == nil {
		t.Fatal("expected error for missing file")
	}
	if b, err := (Source{}).Read(); b != nil || err != nil {
		t.Fatalf("empty source: %s %v", b, err)
	}
}

func TestHTTPClient(t *testing.T) {
	ctx := context.Background()
	token := Source{JSON: `{"access_token":"abc","refresh_token":"def","token_type":"Bearer"}`}

	if _, err := HTTPClient(ctx, Source{}, token, "scope"); !errors.Is(err, ErrMissingClient) {
		t.Fatalf("expected ErrMissingClient, got %v", err)
	}
	if _, err := HTTPClient(ctx, Source{JSON: "invalid-json"}, token, "scope"); err == nil || !strings.Contains(err.Error(), "oauth config") {
		t.Fatalf("expected oauth config error, got %v", err)
	}
	if _, err := HTTPClient(ctx, Source{JSON: clientJSON}, Source{}, "scope"); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
	if _, err := HTTPClient(ctx, Source{JSON: clientJSON}, Source{JSON: `{}`}, "scope"); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken for empty token, got %v", err)
	}

	c, err := HTTPClient(ctx, Source{JSON: clientJSON}, token, "scope")
	if err != nil || c == nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
