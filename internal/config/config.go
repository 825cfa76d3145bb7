package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/caarlos0/env/v11"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
)

// ErrMissingCredentials is returned when the selected providers need an API
// key that is not configured.
var ErrMissingCredentials = errors.New("missing credentials")

// Config holds every setting, read from the environment.
type Config struct {
	MurfAPIKey  string `env:"MURF_API_KEY"`
	MurfBaseURL string `env:"MURF_BASE_URL" envDefault:"https://api.murf.ai/v1"`
	MurfStyle   string `env:"MURF_STYLE" envDefault:"Conversational"`

	FFmpegPath  string `env:"FFMPEG_PATH" envDefault:"ffmpeg"`
	FFprobePath string `env:"FFPROBE_PATH" envDefault:"ffprobe"`
	TempDir     string `env:"POLYCAST_TEMP_DIR"`
	OutputDir   string `env:"POLYCAST_OUTPUT_DIR"`

	TTSProvider         string        `env:"POLYCAST_TTS_PROVIDER" envDefault:"murf"`
	SynthConcurrency    int           `env:"POLYCAST_SYNTH_CONCURRENCY" envDefault:"4"`
	LanguageConcurrency int           `env:"POLYCAST_LANGUAGE_CONCURRENCY" envDefault:"1"`
	RequestTimeout      time.Duration `env:"POLYCAST_REQUEST_TIMEOUT" envDefault:"60s"`
	RequestsPerMinute   int           `env:"POLYCAST_REQUESTS_PER_MINUTE"`
	StrictSegments      bool          `env:"POLYCAST_STRICT_SEGMENTS"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	// Environment is reported on traces as deployment.environment.name.
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	// TraceEndpoint enables tracing in the CLI when set; the MCP server
	// always exports.
	TraceEndpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	TraceSampleRatio float64 `env:"POLYCAST_TRACE_SAMPLE_RATIO" envDefault:"1"`

	AWSRegion    string `env:"AWS_REGION" envDefault:"us-east-1"`
	S3Bucket     string `env:"S3_BUCKET"`
	CDNBaseURL   string `env:"CDN_BASE_URL" envDefault:"https://podcasts.apresai.dev"`
	TableName    string `env:"DYNAMODB_TABLE" envDefault:"polycast-podcasts"`
	SecretPrefix string `env:"SECRET_PREFIX"`
	MaxTasks     int    `env:"MAX_TASKS" envDefault:"5"`
	Port         int    `env:"PORT" envDefault:"8000"`

	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
}

// Load parses the environment.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// Validate checks that the settings are usable for synthesis and that the
// selected provider has its credentials.
func (c Config) Validate() error {
	switch c.TTSProvider {
	case "murf":
		if c.MurfAPIKey == "" {
			return fmt.Errorf("%w: MURF_API_KEY is required for the murf provider", ErrMissingCredentials)
		}
	case "polly", "google":
	default:
		return fmt.Errorf("unknown TTS provider %q: choose murf, polly, or google", c.TTSProvider)
	}
	if c.SynthConcurrency < 1 {
		return fmt.Errorf("POLYCAST_SYNTH_CONCURRENCY must be at least 1, got %d", c.SynthConcurrency)
	}
	if c.LanguageConcurrency < 1 {
		return fmt.Errorf("POLYCAST_LANGUAGE_CONCURRENCY must be at least 1, got %d", c.LanguageConcurrency)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("POLYCAST_REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	return nil
}

// CanTranslate reports whether non-default languages can be translated.
// Translation always goes through Murf, whichever TTS provider is selected.
func (c Config) CanTranslate() bool { return c.MurfAPIKey != "" }

// AWSConfig loads the default AWS config for the configured region with
// OpenTelemetry instrumentation on every client built from it.
func (c Config) AWSConfig(ctx context.Context) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(c.AWSRegion))
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	otelaws.AppendMiddlewares(&awsCfg.APIOptions)
	return awsCfg, nil
}

// SecretsClient is the subset of the Secrets Manager API LoadSecrets uses.
type SecretsClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// LoadSecrets fills API keys that are unset in the environment from
// Secrets Manager entries named SecretPrefix + variable name. Missing
// secrets are logged and skipped.
func (c *Config) LoadSecrets(ctx context.Context, client SecretsClient, logger *slog.Logger) {
	if c.SecretPrefix == "" {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}

	secrets := map[string]*string{
		"MURF_API_KEY":      &c.MurfAPIKey,
		"ANTHROPIC_API_KEY": &c.AnthropicAPIKey,
	}
	for name, field := range secrets {
		if *field != "" {
			continue
		}
		secretID := c.SecretPrefix + name
		result, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
			SecretId: &secretID,
		})
		if err != nil {
			logger.Info("Secret not found", "secret_id", secretID, "error", err)
			continue
		}
		if result.SecretString != nil {
			*field = *result.SecretString
			logger.Info("Loaded secret", "secret_id", secretID)
		}
	}
}
