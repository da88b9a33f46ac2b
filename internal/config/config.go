package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port                 int
	NatsURL              string
	NatsToken            string
	DatabaseURL          string
	LogLevel             string
	LLMProvider          string
	GeminiAPIKey         string
	Model                string
	EmbeddingModel       string
	AnthropicAPIKey      string
	AnthropicModel       string
	SlackBotToken        string
	SlackChannel         string
	AWSRegion            string
	ClerkIssuer          string
	ClerkJWKSURL         string
	DevToken             string
	DevOrganization      string
	SessionTTL           time.Duration
	SessionSweepInterval time.Duration
	AgentProfilePath     string
	VapiBaseURL          string
}

func Load() Config {
	return Config{
		Port:                 envInt("SUPPORTDESK_PORT", 8760),
		NatsURL:              envStr("NATS_URL", "nats://hermes:4222"),
		NatsToken:            envStr("NATS_TOKEN", ""),
		DatabaseURL:          envStr("DATABASE_URL", ""),
		LogLevel:             envStr("LOG_LEVEL", "info"),
		LLMProvider:          envStr("LLM_PROVIDER", "gemini"),
		GeminiAPIKey:         envStr("GEMINI_API_KEY", ""),
		Model:                envStr("SUPPORTDESK_MODEL", "gemini-2.5-flash"),
		EmbeddingModel:       envStr("EMBEDDING_MODEL", "gemini-embedding-001"),
		AnthropicAPIKey:      envStr("ANTHROPIC_API_KEY", ""),
		AnthropicModel:       envStr("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
		SlackBotToken:        envStr("SLACK_BOT_TOKEN", ""),
		SlackChannel:         envStr("SLACK_ESCALATIONS_CHANNEL", ""),
		AWSRegion:            envStr("AWS_REGION", "us-east-1"),
		ClerkIssuer:          envStr("CLERK_ISSUER", ""),
		ClerkJWKSURL:         envStr("CLERK_JWKS_URL", ""),
		DevToken:             envStr("SUPPORTDESK_DEV_TOKEN", ""),
		DevOrganization:      envStr("SUPPORTDESK_DEV_ORG", "org_dev"),
		SessionTTL:           envDuration("SESSION_TTL", 24*time.Hour),
		SessionSweepInterval: envDuration("SESSION_SWEEP_INTERVAL", time.Hour),
		AgentProfilePath:     envStr("AGENT_PROFILE", ""),
		VapiBaseURL:          envStr("VAPI_BASE_URL", "https://api.vapi.ai"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
