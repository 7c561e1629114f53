package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"drivesend/internal/config"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const (
	clientSecretFile = "client_secret.json"
	tokenFile        = "token.json"

	googleTokenURL = "https://oauth2.googleapis.com/token"
)

func loadOAuthConfig() (*oauth2.Config, error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(filepath.Join(dir, clientSecretFile))
	if err != nil {
		return nil, fmt.Errorf("client_secret.json not found in ~/.drivesend: %w", err)
	}

	cfg, err := google.ConfigFromJSON(b, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client secret: %w", err)
	}

	return cfg, nil
}

// Authorize runs the interactive code-exchange flow and saves the token.
// Headless deployments skip this and set GOOGLE_CLIENT_ID,
// GOOGLE_CLIENT_SECRET and GOOGLE_REFRESH_TOKEN instead.
func Authorize() error {
	cfg, err := loadOAuthConfig()
	if err != nil {
		return err
	}

	authURL := cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Println("Visit the URL for the auth dialog:")
	fmt.Println()
	fmt.Println(authURL)
	fmt.Println()
	fmt.Print("Enter the code here: ")

	var code string
	if _, err := fmt.Scan(&code); err != nil {
		return fmt.Errorf("failed to read code: %w", err)
	}

	token, err := cfg.Exchange(context.Background(), code)
	if err != nil {
		return fmt.Errorf("failed to exchange token: %w", err)
	}

	return saveToken(token)
}

func saveToken(token *oauth2.Token) error {
	dir, err := config.Dir()
	if err != nil {
		return err
	}

	path := filepath.Join(dir, tokenFile)
	b, err := json.Marshal(token)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, b, 0600); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	fmt.Printf("Token saved to %s\n", path)
	return nil
}

func loadToken() (*oauth2.Token, error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(filepath.Join(dir, tokenFile))
	if err != nil {
		return nil, fmt.Errorf("oauth token not found, run 'drivesend auth' first: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(b, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	return &token, nil
}

// envTokenSource builds a source from GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET
// and GOOGLE_REFRESH_TOKEN. Returns nil when the variables are not all set.
func envTokenSource(ctx context.Context) oauth2.TokenSource {
	clientID := os.Getenv("GOOGLE_CLIENT_ID")
	clientSecret := os.Getenv("GOOGLE_CLIENT_SECRET")
	refreshToken := os.Getenv("GOOGLE_REFRESH_TOKEN")
	if clientID == "" || clientSecret == "" || refreshToken == "" {
		return nil
	}

	cfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: googleTokenURL},
		Scopes:       []string{drive.DriveFileScope},
	}

	return cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
}

func newOAuthService(ctx context.Context) (*drive.Service, error) {
	if ts := envTokenSource(ctx); ts != nil {
		if _, err := ts.Token(); err != nil {
			return nil, fmt.Errorf("failed to refresh token from environment: %w", err)
		}

		return drive.NewService(ctx, option.WithTokenSource(ts))
	}

	cfg, err := loadOAuthConfig()
	if err != nil {
		return nil, err
	}

	token, err := loadToken()
	if err != nil {
		return nil, err
	}

	tokenSource := cfg.TokenSource(ctx, token)

	newToken, err := tokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	if newToken.AccessToken != token.AccessToken {
		_ = saveToken(newToken)
	}

	svc, err := drive.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return svc, nil
}
