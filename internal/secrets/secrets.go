package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/zalando/go-keyring"

	"github.com/xkilldash9x/easyapply-cli/internal/config"
)

const (
	// KeyringService groups the app's secrets in the OS keychain.
	KeyringService = "easyapply"
)

// ErrNotFound is returned when no key is set in the environment or keychain.
var ErrNotFound = errors.New("API key not found (set it with `easyapply secrets set` or via env)")

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are ignored; variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// EnvVar is the environment variable holding a provider's key, e.g. GEMINI_API_KEY.
func EnvVar(provider config.LLMProvider) string {
	return strings.ToUpper(string(provider)) + "_API_KEY"
}

func account(provider config.LLMProvider) string {
	return "easyapply:llm:" + string(provider)
}

// APIKey returns the key for provider, from the environment first and the
// keychain second.
func APIKey(provider config.LLMProvider) (string, error) {
	if v := strings.TrimSpace(os.Getenv(EnvVar(provider))); v != "" {
		return v, nil
	}
	key, err := keyring.Get(KeyringService, account(provider))
	if err == nil && strings.TrimSpace(key) != "" {
		return key, nil
	}
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("failed to read keychain: %w", err)
	}
	return "", fmt.Errorf("%s: %w", provider, ErrNotFound)
}

// SetAPIKey stores the key for provider in the keychain.
func SetAPIKey(provider config.LLMProvider, key string) error {
	if strings.TrimSpace(string(provider)) == "" {
		return errors.New("provider name is empty")
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("API key is empty")
	}
	return keyring.Set(KeyringService, account(provider), strings.TrimSpace(key))
}

// DeleteAPIKey removes the stored key for provider.
func DeleteAPIKey(provider config.LLMProvider) error {
	if strings.TrimSpace(string(provider)) == "" {
		return errors.New("provider name is empty")
	}
	return keyring.Delete(KeyringService, account(provider))
}
