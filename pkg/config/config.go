package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	Assignment   AssignmentConfig
	SLA          SLAConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CASEDESK_APP_ENV" required:"true"`
	Port         string `envconfig:"CASEDESK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CASEDESK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CASEDESK_LOG_WARN_STACK" default:"false"`
	Debug        bool   `envconfig:"CASEDESK_APP_DEBUG" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CASEDESK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"CASEDESK_DB_DSN"`
	Driver string `envconfig:"CASEDESK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CASEDESK_DB_HOST"`
	LegacyPort     int    `envconfig:"CASEDESK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CASEDESK_DB_USER"`
	LegacyPassword string `envconfig:"CASEDESK_DB_PASSWORD"`
	LegacyName     string `envconfig:"CASEDESK_DB_NAME"`
	LegacySSLMode  string `envconfig:"CASEDESK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CASEDESK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CASEDESK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CASEDESK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CASEDESK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CASEDESK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CASEDESK_REDIS_ADDR"`
	Password     string        `envconfig:"CASEDESK_REDIS_PASSWORD"`
	DB           int           `envconfig:"CASEDESK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CASEDESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CASEDESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CASEDESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CASEDESK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CASEDESK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"CASEDESK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CASEDESK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"CASEDESK_JWT_EXPIRATION_MINUTES" default:"480"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"CASEDESK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"CASEDESK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"CASEDESK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"CASEDESK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"CASEDESK_ARGON_KEY_LEN" default:"32"`
}

type AssignmentConfig struct {
	// BatchLimit caps how many pending cases one auto-assign run may claim.
	BatchLimit int `envconfig:"CASEDESK_ASSIGN_BATCH_LIMIT" default:"200"`
}

type SLAConfig struct {
	RecomputeInterval time.Duration `envconfig:"CASEDESK_SLA_RECOMPUTE_INTERVAL" default:"24h"`
	GreenMaxDays      int           `envconfig:"CASEDESK_SLA_GREEN_MAX_DAYS" default:"1"`
	YellowMaxDays     int           `envconfig:"CASEDESK_SLA_YELLOW_MAX_DAYS" default:"3"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CASEDESK_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"CASEDESK_GCP_PROJECT_ID"`
	ApplicationCredentials string `envconfig:"CASEDESK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	CaseTopic        string `envconfig:"CASEDESK_PUBSUB_CASE_TOPIC" default:"cd-case-events"`
	CaseSubscription string `envconfig:"CASEDESK_PUBSUB_CASE_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"CASEDESK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"CASEDESK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"CASEDESK_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"CASEDESK_OUTBOX_RETENTION" default:"720h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
