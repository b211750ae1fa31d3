package config

import (
	"os"
	"strings"
	"time"

	pstrings "custodia/pkg/platform/strings"
)

// Server captures process-level configuration for the authorization engine.
type Server struct {
	Addr          string
	Environment   string
	RegulatedMode bool
	JWTSigningKey string
	SessionTTL    time.Duration

	// PostgresURL enables the durable identity and consent stores when set;
	// empty means in-memory stores.
	PostgresURL string

	// RedisAddr enables the redis session store when set.
	RedisAddr string

	// KafkaBrokers enables the kafka audit sink when non-empty.
	KafkaBrokers []string
	AuditTopic   string

	// VaultKEK is the hex-encoded 32-byte key-encryption key. Empty means
	// derive a development key from the JWT signing key.
	VaultKEK string

	// SeedDemoData loads demo identities and API keys into the stores at
	// startup. Local and e2e use only.
	SeedDemoData bool
}

// DefaultSessionTTL matches the 24h session window.
const DefaultSessionTTL = 24 * time.Hour

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("CUSTODIA_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	regulated := os.Getenv("REGULATED_MODE") == "true"

	environment := os.Getenv("ENVIRONMENT")
	if environment == "" {
		environment = "development"
	}

	sessionTTL := DefaultSessionTTL
	if raw := os.Getenv("SESSION_TTL"); raw != "" {
		if duration, err := time.ParseDuration(raw); err == nil {
			sessionTTL = duration
		}
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		brokers = pstrings.DedupeAndTrim(strings.Split(raw, ","))
	}
	auditTopic := os.Getenv("AUDIT_TOPIC")
	if auditTopic == "" {
		auditTopic = "custodia.audit"
	}

	return Server{
		Addr:          addr,
		Environment:   environment,
		RegulatedMode: regulated,
		JWTSigningKey: jwtSigningKey,
		SessionTTL:    sessionTTL,
		PostgresURL:   os.Getenv("POSTGRES_URL"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		KafkaBrokers:  brokers,
		AuditTopic:    auditTopic,
		VaultKEK:      os.Getenv("VAULT_KEK"),
		SeedDemoData:  os.Getenv("SEED_DEMO_DATA") == "true",
	}
}
