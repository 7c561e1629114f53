package encrypt

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fernet/fernet-go"
)

// Suffix is appended to the original path to name the derived artifact.
const Suffix = ".enc"

// ErrNoKey means encryption was requested but no key is configured.
var ErrNoKey = errors.New("no encryption key configured")

// ResolveKey returns the configured key, falling back to the environment.
// The COMFYUI_ENCRYPTION_KEY fallback keeps existing deployments working.
func ResolveKey(configured string) string {
	if configured != "" {
		return configured
	}
	if k := os.Getenv("DRIVESEND_ENCRYPTION_KEY"); k != "" {
		return k
	}

	return os.Getenv("COMFYUI_ENCRYPTION_KEY")
}

func GenerateKey() (string, error) {
	k := new(fernet.Key)
	if err := k.Generate(); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}

	return k.Encode(), nil
}

// EncryptFile writes a Fernet-encrypted copy of path to path+Suffix and
// returns the output path. The original is left in place; re-running
// overwrites the previous artifact.
func EncryptFile(path, key string) (string, error) {
	if key == "" {
		return "", ErrNoKey
	}

	k, err := fernet.DecodeKey(key)
	if err != nil {
		return "", fmt.Errorf("invalid encryption key: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	token, err := fernet.EncryptAndSign(data, k)
	if err != nil {
		return "", fmt.Errorf("encryption failed: %w", err)
	}

	outPath := path + Suffix
	if err := os.WriteFile(outPath, token, 0600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", outPath, err)
	}

	return outPath, nil
}

// DecryptFile reverses EncryptFile, writing the plaintext next to the
// artifact with the Suffix stripped (or ".decrypted" appended when the
// input does not carry it).
func DecryptFile(path, key string) (string, error) {
	if key == "" {
		return "", ErrNoKey
	}

	k, err := fernet.DecodeKey(key)
	if err != nil {
		return "", fmt.Errorf("invalid encryption key: %w", err)
	}

	token, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	data := fernet.VerifyAndDecrypt(token, 0, []*fernet.Key{k})
	if data == nil {
		return "", fmt.Errorf("decryption failed for %s: token invalid or wrong key", path)
	}

	outPath := strings.TrimSuffix(path, Suffix)
	if outPath == path {
		outPath = path + ".decrypted"
	}

	if err := os.WriteFile(outPath, data, 0600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", outPath, err)
	}

	return outPath, nil
}
