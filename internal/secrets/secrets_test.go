package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/xkilldash9x/easyapply-cli/internal/config"
)

func TestAPIKey_Precedence(t *testing.T) {
	keyring.MockInit()
	t.Setenv(EnvVar(config.ProviderGemini), "")

	_, err := APIKey(config.ProviderGemini)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, SetAPIKey(config.ProviderGemini, "  from-keychain \n"))
	key, err := APIKey(config.ProviderGemini)
	require.NoError(t, err)
	assert.Equal(t, "from-keychain", key)

	t.Setenv("GEMINI_API_KEY", "from-env")
	key, err = APIKey(config.ProviderGemini)
	require.NoError(t, err)
	assert.Equal(t, "from-env", key, "the environment wins over the keychain")

	require.NoError(t, DeleteAPIKey(config.ProviderGemini))
	t.Setenv("GEMINI_API_KEY", "")
	_, err = APIKey(config.ProviderGemini)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetAPIKey_Validation(t *testing.T) {
	keyring.MockInit()
	assert.Error(t, SetAPIKey("", "k"))
	assert.Error(t, SetAPIKey(config.ProviderOpenAI, " "))
	assert.Error(t, DeleteAPIKey(""))
}

func TestEnvVar(t *testing.T) {
	assert.Equal(t, "OPENAI_API_KEY", EnvVar(config.ProviderOpenAI))
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("EASYAPPLY_TEST_DOTENV=loaded\n"), 0o600))
	t.Setenv("EASYAPPLY_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("EASYAPPLY_TEST_DOTENV"))

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, "loaded", os.Getenv("EASYAPPLY_TEST_DOTENV"))
}
