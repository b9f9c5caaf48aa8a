// Package googleauth builds OAuth2 HTTP clients for the Google remotes from
// an installed-app client secret and a token produced by cmd/oauth-init.
package googleauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

var (
	ErrMissingClient = errors.New("missing OAuth client credentials")
	ErrMissingToken  = errors.New("missing OAuth token")
)

// Source is where a credential comes from: inline JSON wins over a file.
type Source struct {
	JSON string
	File string
}

func (s Source) IsSet() bool {
	return strings.TrimSpace(s.JSON) != "" || strings.TrimSpace(s.File) != ""
}

// Read returns the credential bytes, or nil when neither field is set.
func (s Source) Read() ([]byte, error) {
	switch {
	case strings.TrimSpace(s.JSON) != "":
		return []byte(s.JSON), nil
	case strings.TrimSpace(s.File) != "":
		b, err := os.ReadFile(s.File)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", s.File, err)
		}
		return b, nil
	default:
		return nil, nil
	}
}

// Config parses the client secret for the given scopes.
func Config(client Source, scopes ...string) (*oauth2.Config, error) {
	b, err := client.Read()
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrMissingClient
	}
	cfg, err := google.ConfigFromJSON(b, scopes...)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	return cfg, nil
}

// Token parses a stored token.
func Token(token Source) (*oauth2.Token, error) {
	b, err := token.Read()
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrMissingToken
	}
	var tok oauth2.Token
	if err := json.Unmarshal(b, &tok); err != nil {
		return nil, fmt.Errorf("oauth token: %w", err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, fmt.Errorf("oauth token: %w", ErrMissingToken)
	}
	return &tok, nil
}

// HTTPClient returns a client that refreshes the token as needed.
func HTTPClient(ctx context.Context, client, token Source, scopes ...string) (*http.Client, error) {
	cfg, err := Config(client, scopes...)
	if err != nil {
		return nil, err
	}
	tok, err := Token(token)
	if err != nil {
		return nil, err
	}
	return cfg.Client(ctx, tok), nil
}
