package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/j4b6ski/oioioi/internal/logger"
	"github.com/j4b6ski/oioioi/internal/validator"
)

// User seeded from config. The config is authoritative for these accounts.
type User struct {
	Active    *bool  `mapstructure:"active"    json:"active"    validate:"required"`
	ID        string `mapstructure:"id"        json:"id"        validate:"required,uuid_rfc4122"`
	Name      string `mapstructure:"name"      json:"name"      validate:"required"`
	Token     string `mapstructure:"token"     json:"token"     validate:"required"`
	Superuser bool   `mapstructure:"superuser" json:"superuser"`
}

type PostgresConfig struct {
	User               string        `validate:"required"`
	Password           string        `validate:"required"`
	Host               string        `validate:"required"`
	Database           string        `validate:"required"`
	MaxIdleConnections int           `validate:"required" mapstructure:"max_idle_connections"`
	MaxOpenConnections int           `validate:"required" mapstructure:"max_open_connections"`
	ConnectionTTL      time.Duration `validate:"required" mapstructure:"connection_ttl"`
	// Bounds how long aggregation waits on a result row lock
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
	Port        int16         `validate:"required"`
}

type AzureConfig struct {
	StorageAccount *AzureStorageAccountConfig `mapstructure:"storage_account" validate:"required"`
	Dev            bool                       `mapstructure:"dev"`
}

type AzureStorageAccountConfig struct {
	Queues *AzureStorageAccountQueueConfig `mapstructure:"queues" validate:"required"`
	Name   string                          `mapstructure:"name"   validate:"required"`
	Key    string                          `mapstructure:"key"    validate:"required"`
}

type AzureStorageAccountQueueConfig struct {
	URL           string `mapstructure:"url"            validate:"required"`
	JudgeRequests string `mapstructure:"judge_requests" validate:"required"`
	Judged        string `mapstructure:"judged"         validate:"required"`
}

type SlogConfig struct {
	Level int `mapstructure:"level"`
}

type GormLogConfig struct {
	Level        int  `mapstructure:"level"`
	TraceQueries bool `mapstructure:"trace_queries"`
}

type LoggingConfig struct {
	Gorm    GormLogConfig `mapstructure:"gorm"`
	App     SlogConfig    `mapstructure:"app"`
	UseOTLP bool          `mapstructure:"use_otlp"`
}

type RateLimitConfig struct {
	RedisHost       string `mapstructure:"redis_host"`
	GlobalPerMinute int64  `mapstructure:"global_per_minute"`
	SubmitPerMinute int64  `mapstructure:"submit_per_minute"`
	FailOpen        bool   `mapstructure:"fail_open"`
}

const (
	JudgingBackendQueue = "queue"
	JudgingBackendHTTP  = "http"
)

type JudgingConfig struct {
	Backend string `mapstructure:"backend"  validate:"required,oneof=queue http"`
	// Only used by the http backend
	URL        string `mapstructure:"url"         validate:"required_if=Backend http"`
	Token      string `mapstructure:"token"`
	MaxRetries int    `mapstructure:"max_retries"`
	// Per message handler timeout for judged events
	HandlerTimeout time.Duration `mapstructure:"handler_timeout" validate:"required"`
}

const (
	SourceStoreAzure = "azure"
	SourceStoreMinio = "minio"
)

type MinioConfig struct {
	Endpoint  string `mapstructure:"endpoint"   validate:"required"`
	AccessKey string `mapstructure:"access_key" validate:"required"`
	SecretKey string `mapstructure:"secret_key" validate:"required"`
	Bucket    string `mapstructure:"bucket"     validate:"required"`
	SSL       bool   `mapstructure:"ssl"`
}

// Where submission sources are kept for the judging backend. The azure
// backend reuses the storage account credentials.
type SourceStoreConfig struct {
	Minio *MinioConfig `mapstructure:"minio"     validate:"required_if=Backend minio"`
	// Blob service url of the storage account
	BlobURL   string `mapstructure:"blob_url"  validate:"required_if=Backend azure"`
	Backend   string `mapstructure:"backend"   validate:"required,oneof=azure minio"`
	Container string `mapstructure:"container" validate:"required_if=Backend azure"`
	// Lifetime of the presigned source links
	URLTTL time.Duration `mapstructure:"url_ttl"`
}

type AggregationConfig struct {
	MaxRetries           uint64        `mapstructure:"max_retries"`
	Backoff              time.Duration `mapstructure:"backoff"               validate:"required"`
	RecomputeConcurrency int           `mapstructure:"recompute_concurrency" validate:"required,min=1"`
}

// See contestengine.yaml for an example config
type Config struct {
	Postgres             *PostgresConfig    `mapstructure:"postgres"               validate:"required"`
	Azure                *AzureConfig       `mapstructure:"azure"`
	Logging              *LoggingConfig     `mapstructure:"logging"                validate:"required"`
	RateLimit            *RateLimitConfig   `mapstructure:"ratelimit"`
	Judging              *JudgingConfig     `mapstructure:"judging"                validate:"required"`
	Aggregation          *AggregationConfig `mapstructure:"aggregation"            validate:"required"`
	SourceStore          *SourceStoreConfig `mapstructure:"source_store"`
	ListenAddress        string             `mapstructure:"listen_address"         validate:"required"`
	Users                []User             `mapstructure:"users"                  validate:"dive"`
	GracefulShutdownSecs int64              `mapstructure:"graceful_shutdown_secs"`
}

const (
	AppLogLevel                 string = "logging.app.level"
	AzureDev                    string = "azure.dev"
	AzureStorageAccountKey      string = "azure.storage_account.key"
	AggregationBackoff          string = "aggregation.backoff"
	AggregationMaxRetries       string = "aggregation.max_retries"
	AggregationConcurrency      string = "aggregation.recompute_concurrency"
	EnvPrefix                   string = "contestengine"
	UseOTLP                     string = "logging.use_otlp"
	GlobalPerMinute             string = "ratelimit.global_per_minute"
	GormLogLevel                string = "logging.gorm.level"
	GormTraceQueries            string = "logging.gorm.trace_queries"
	GracefulShutdownSecs        string = "graceful_shutdown_secs"
	JudgingBackend              string = "judging.backend"
	JudgingHandlerTimeout       string = "judging.handler_timeout"
	JudgingMaxRetries           string = "judging.max_retries"
	JudgingToken                string = "judging.token" // #nosec
	ListenAddress               string = "listen_address"
	PostgresDatabase            string = "postgres.database"
	PostgresHost                string = "postgres.host"
	PostgresPassword            string = "postgres.password"
	PostgresPort                string = "postgres.port"
	PostgresUser                string = "postgres.user"
	PostgresMaxIdleConnections  string = "postgres.max_idle_connections"
	PostgresMaxOpenConnections  string = "postgres.max_open_connections"
	PostgresConnectonTTL        string = "postgres.connection_ttl"
	PostgresLockTimeout         string = "postgres.lock_timeout"
	RateLimitFailOpen           string = "ratelimit.fail_open"
	RedisHost                   string = "ratelimit.redis_host"
	SubmitPerMinute             string = "ratelimit.submit_per_minute"
	JudgingURL                  string = "judging.url"
	MinioAccessKey              string = "source_store.minio.access_key"
	MinioBucket                 string = "source_store.minio.bucket"
	MinioEndpoint               string = "source_store.minio.endpoint"
	MinioSecretKey              string = "source_store.minio.secret_key" // #nosec
	SourceStoreBackend          string = "source_store.backend"
	SourceStoreBlobURL          string = "source_store.blob_url"
	SourceStoreContainer        string = "source_store.container"
	defaultJudgingMaxRetries    int    = 3
	defaultAggregationRetries   uint64 = 5
	defaultRecomputeConcurrency int    = 4
	defaultSourceURLTTL                = 24 * time.Hour
)

var configReady = false
var config Config

func GetConfig() (*Config, error) {
	if configReady {
		logger.Logger.Debug("returning already-loaded config")
		return &config, nil
	}
	logger.Logger.Info("loading config")

	v := viper.New()

	v.SetConfigName("contestengine")

	v.AddConfigPath("/etc/contestengine/")
	v.AddConfigPath(".")

	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.AutomaticEnv()

	// workaround for https://github.com/spf13/viper/issues/761
	// bind env vars explicitly so they unmarshal into the nested struct
	for _, key := range []string{
		PostgresPassword,
		PostgresUser,
		PostgresDatabase,
		AzureStorageAccountKey,
		JudgingToken,
		JudgingURL,
		MinioAccessKey,
		MinioBucket,
		MinioEndpoint,
		MinioSecretKey,
		SourceStoreBackend,
		SourceStoreBlobURL,
		SourceStoreContainer,
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	v.SetDefault(ListenAddress, "[::]:1323")
	v.SetDefault(PostgresHost, "localhost")
	v.SetDefault(PostgresPort, 5432)
	v.SetDefault(PostgresMaxIdleConnections, 2)
	v.SetDefault(PostgresMaxOpenConnections, 10)
	v.SetDefault(PostgresConnectonTTL, 10*time.Minute)
	v.SetDefault(PostgresLockTimeout, 5*time.Second)
	v.SetDefault(GormLogLevel, int(slog.LevelDebug))
	v.SetDefault(GormTraceQueries, false)
	v.SetDefault(AppLogLevel, int(slog.LevelDebug))

	v.SetDefault(RedisHost, "localhost")
	v.SetDefault(GlobalPerMinute, 0)
	v.SetDefault(SubmitPerMinute, 0)
	v.SetDefault(RateLimitFailOpen, true)

	v.SetDefault(JudgingBackend, JudgingBackendQueue)
	v.SetDefault(JudgingMaxRetries, defaultJudgingMaxRetries)
	v.SetDefault(JudgingHandlerTimeout, time.Minute)

	v.SetDefault(AggregationBackoff, 25*time.Millisecond)
	v.SetDefault(AggregationMaxRetries, defaultAggregationRetries)
	v.SetDefault(AggregationConcurrency, defaultRecomputeConcurrency)

	v.SetDefault(UseOTLP, false)

	v.SetDefault(GracefulShutdownSecs, 30)

	err := v.ReadInConfig()
	if err != nil {
		// ignore config file not found to allow pure env config
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	err = v.Unmarshal(&config)
	if err != nil {
		configReady = false
		return nil, err
	}

	valid := validator.Create()
	err = valid.Validate(&config)
	if err != nil {
		configReady = false
		return nil, err
	}

	if config.Judging.Backend == JudgingBackendQueue && config.Azure == nil {
		configReady = false
		return nil, errors.New("the queue judging backend requires azure storage account settings")
	}

	if config.SourceStore != nil {
		if config.SourceStore.Backend == SourceStoreAzure && config.Azure == nil {
			configReady = false
			return nil, errors.New("the azure source store requires azure storage account settings")
		}
		if config.SourceStore.URLTTL <= 0 {
			config.SourceStore.URLTTL = defaultSourceURLTTL
		}
	}

	configReady = true
	return &config, nil
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgresql://%s:%s@%s:%d/%s",
		url.QueryEscape(c.Postgres.User),
		url.QueryEscape(c.Postgres.Password),
		c.Postgres.Host, c.Postgres.Port,
		url.QueryEscape(c.Postgres.Database),
	)
}
