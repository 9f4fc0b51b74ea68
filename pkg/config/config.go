package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	TwoFA         TwoFAConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Cron          CronConfig
	Outbox        OutboxConfig
	PubSub        PubSubConfig
	GCP           GCPConfig
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
	Env          string `envconfig:"MINIMART_APP_ENV" required:"true"`
	Port         string `envconfig:"MINIMART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MINIMART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MINIMART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"MINIMART_DB_DSN"`
	Driver string `envconfig:"MINIMART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MINIMART_DB_HOST"`
	LegacyPort     int    `envconfig:"MINIMART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MINIMART_DB_USER"`
	LegacyPassword string `envconfig:"MINIMART_DB_PASSWORD"`
	LegacyName     string `envconfig:"MINIMART_DB_NAME"`
	LegacySSLMode  string `envconfig:"MINIMART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MINIMART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MINIMART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MINIMART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MINIMART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MINIMART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MINIMART_REDIS_ADDR"`
	Password     string        `envconfig:"MINIMART_REDIS_PASSWORD"`
	DB           int           `envconfig:"MINIMART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MINIMART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MINIMART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MINIMART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MINIMART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MINIMART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MINIMART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MINIMART_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MINIMART_JWT_EXPIRATION_MINUTES" required:"true"`
	SessionTTLMinutes int    `envconfig:"MINIMART_SESSION_TTL_MINUTES" default:"10080"`
}

// SessionTTL returns how long the server-side session record lives. The
// original product kept browsing sessions for a week.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.SessionTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.SessionTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"MINIMART_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"MINIMART_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"MINIMART_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"MINIMART_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"MINIMART_ARGON_KEY_LEN" default:"32"`

	MinLength int `envconfig:"MINIMART_PASSWORD_MIN_LENGTH" default:"6"`
}

type TwoFAConfig struct {
	Issuer string `envconfig:"MINIMART_TWOFA_ISSUER" default:"MiniMart"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"MINIMART_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"MINIMART_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"MINIMART_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`

	RegisterWindow     time.Duration `envconfig:"MINIMART_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"MINIMART_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"MINIMART_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"MINIMART_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"MINIMART_AUTO_MIGRATE" default:"false"`
}

type CronConfig struct {
	CartMirrorMaxAge time.Duration `envconfig:"MINIMART_CRON_CART_MIRROR_MAX_AGE" default:"720h"`
	LockTTL          time.Duration `envconfig:"MINIMART_CRON_LOCK_TTL" default:"23h"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"MINIMART_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"MINIMART_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"MINIMART_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"MINIMART_PUBSUB_ORDERS_TOPIC" default:"mm-order-events"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"MINIMART_GCP_PROJECT_ID"`
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
