package auth

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"drivesend/internal/config"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const serviceAccountFile = "service_account.json"

// serviceAccountJSON loads the key, preferring the base64-encoded
// GOOGLE_SERVICE_ACCOUNT_JSON variable over the file in ~/.drivesend.
func serviceAccountJSON() ([]byte, error) {
	if b64 := os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"); b64 != "" {
		data, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, fmt.Errorf("failed to decode GOOGLE_SERVICE_ACCOUNT_JSON: %w", err)
		}

		return data, nil
	}

	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, serviceAccountFile))
	if err != nil {
		return nil, fmt.Errorf("service_account.json not found in ~/.drivesend and GOOGLE_SERVICE_ACCOUNT_JSON not set: %w", err)
	}

	return data, nil
}

func newServiceAccountService(ctx context.Context) (*drive.Service, error) {
	data, err := serviceAccountJSON()
	if err != nil {
		return nil, err
	}

	conf, err := google.JWTConfigFromJSON(data, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account key: %w", err)
	}

	ts := conf.TokenSource(ctx)
	if _, err := ts.Token(); err != nil {
		return nil, fmt.Errorf("failed to obtain service account token: %w", err)
	}

	svc, err := drive.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return svc, nil
}
