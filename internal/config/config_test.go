package config

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"MURF_API_KEY", "POLYCAST_TTS_PROVIDER", "POLYCAST_TRACE_SAMPLE_RATIO", "ENVIRONMENT"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "murf", cfg.TTSProvider)
	assert.Equal(t, "https://api.murf.ai/v1", cfg.MurfBaseURL)
	assert.Equal(t, "Conversational", cfg.MurfStyle)
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, 4, cfg.SynthConcurrency)
	assert.Equal(t, 1, cfg.LanguageConcurrency)
	assert.Equal(t, 60*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.StrictSegments)
	assert.Equal(t, 1.0, cfg.TraceSampleRatio)
	assert.Equal(t, "development", cfg.Environment)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MURF_API_KEY", "k")
	t.Setenv("POLYCAST_SYNTH_CONCURRENCY", "8")
	t.Setenv("POLYCAST_REQUEST_TIMEOUT", "5s")
	t.Setenv("POLYCAST_STRICT_SEGMENTS", "true")
	t.Setenv("FFMPEG_PATH", "/opt/ffmpeg/bin/ffmpeg")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "k", cfg.MurfAPIKey)
	assert.Equal(t, 8, cfg.SynthConcurrency)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.StrictSegments)
	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", cfg.FFmpegPath)
	assert.True(t, cfg.CanTranslate())
}

func TestLoadRejectsBadValue(t *testing.T) {
	t.Setenv("POLYCAST_SYNTH_CONCURRENCY", "lots")
	_, err := Load()
	assert.Error(t, err)
}

func validConfig() Config {
	return Config{
		MurfAPIKey:          "k",
		TTSProvider:         "murf",
		SynthConcurrency:    4,
		LanguageConcurrency: 1,
		RequestTimeout:      time.Minute,
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	cfg := validConfig()
	cfg.MurfAPIKey = ""
	assert.ErrorIs(t, cfg.Validate(), ErrMissingCredentials)

	cfg.TTSProvider = "polly"
	assert.NoError(t, cfg.Validate())

	cfg = validConfig()
	cfg.TTSProvider = "elevenlabs"
	assert.ErrorContains(t, cfg.Validate(), "unknown TTS provider")

	cfg = validConfig()
	cfg.SynthConcurrency = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.RequestTimeout = 0
	assert.Error(t, cfg.Validate())
}

type fakeSecrets struct {
	values    map[string]string
	requested []string
}

func (f *fakeSecrets) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.requested = append(f.requested, *in.SecretId)
	v, ok := f.values[*in.SecretId]
	if !ok {
		return nil, errors.New("ResourceNotFoundException")
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(v)}, nil
}

func TestLoadSecretsFillsUnsetKeys(t *testing.T) {
	client := &fakeSecrets{values: map[string]string{
		"/polycast/MURF_API_KEY":      "from-secrets",
		"/polycast/ANTHROPIC_API_KEY": "should-not-apply",
	}}
	cfg := Config{SecretPrefix: "/polycast/", AnthropicAPIKey: "from-env"}

	cfg.LoadSecrets(context.Background(), client, nil)

	assert.Equal(t, "from-secrets", cfg.MurfAPIKey)
	assert.Equal(t, "from-env", cfg.AnthropicAPIKey)
	assert.Equal(t, []string{"/polycast/MURF_API_KEY"}, client.requested)
}

func TestLoadSecretsWithoutPrefix(t *testing.T) {
	client := &fakeSecrets{}
	cfg := Config{}
	cfg.LoadSecrets(context.Background(), client, nil)
	assert.Empty(t, client.requested)
}

func TestLoadSecretsMissingSecret(t *testing.T) {
	cfg := Config{SecretPrefix: "/p/"}
	cfg.LoadSecrets(context.Background(), &fakeSecrets{}, nil)
	assert.Empty(t, cfg.MurfAPIKey)
}
