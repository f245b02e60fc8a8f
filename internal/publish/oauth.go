package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"stock-parody/manager-go/internal/utils"
)

// Scopes requested by the pre-issued user token.
const (
	ScopeYouTubeUpload = "https://www.googleapis.com/auth/youtube.upload"
	ScopeDriveFile     = "https://www.googleapis.com/auth/drive.file"
)

// storedToken accepts both the oauth2.Token JSON layout and the authorized-user
// layout written by Google's Python tooling.
type storedToken struct {
	AccessToken  string    `json:"access_token"`
	Token        string    `json:"token"`
	TokenType    string    `json:"token_type"`
	RefreshToken string    `json:"refresh_token"`
	Expiry       time.Time `json:"expiry"`
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"client_secret"`
	TokenURI     string    `json:"token_uri"`
}

func readToken(path string) (storedToken, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return storedToken{}, fmt.Errorf("read token: %w", err)
	}
	var tok storedToken
	if err := json.Unmarshal(data, &tok); err != nil {
		return storedToken{}, fmt.Errorf("decode token: %w", err)
	}
	if tok.AccessToken == "" {
		tok.AccessToken = tok.Token
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return storedToken{}, errors.New("token file has neither access nor refresh token")
	}
	return tok, nil
}

// OAuthClient builds an authorized HTTP client from a client secrets file and a
// previously issued token. Without a secrets file the client id stored in the token is used. The token is refreshed transparently; it is never
// obtained interactively here.
func OAuthClient(ctx context.Context, clientSecretsPath, tokenPath string, scopes ...string) (*http.Client, error) {
	tok, err := readToken(tokenPath)
	if err != nil {
		return nil, err
	}
	var conf *oauth2.Config
	if utils.FileExists(clientSecretsPath) {
		secrets, err := os.ReadFile(clientSecretsPath)
		if err != nil {
			return nil, fmt.Errorf("read client secrets: %w", err)
		}
		if conf, err = google.ConfigFromJSON(secrets, scopes...); err != nil {
			return nil, fmt.Errorf("client secrets: %w", err)
		}
	} else {
		if tok.ClientID == "" {
			return nil, errors.New("no client secrets and token carries no client id")
		}
		conf = &oauth2.Config{
			ClientID:     tok.ClientID,
			ClientSecret: tok.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       scopes,
		}
		if tok.TokenURI != "" {
			conf.Endpoint.TokenURL = tok.TokenURI
		}
	}
	token := &oauth2.Token{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}
	return conf.Client(ctx, token), nil
}
