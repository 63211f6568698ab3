package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	DatabaseTypePostgres = "pgsql"
	DatabaseTypeSqlite   = "sqlite"

	StorageTypeMinio = "minio"
	StorageTypeLocal = "local"

	EventsWriterStdout = "stdout"
	EventsWriterKafka  = "kafka"
	EventsWriterNone   = "none"
)

type Config struct {
	Database  *DbConfig
	Service   *SvcConfig
	Scheduler *SchedulerConfig
	Storage   *StorageConfig
	Events    *EventsConfig
}

type DbConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"pgsql"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"pipeline"`
	User     string `envconfig:"DB_USER" default:"admin"`
	Password string `envconfig:"DB_PASS" default:"adminpass"`
}

type SvcConfig struct {
	Address         string   `envconfig:"PIPELINE_ADDRESS" default:":3443"`
	MetricsAddress  string   `envconfig:"PIPELINE_METRICS_ADDRESS" default:":8080"`
	LogLevel        string   `envconfig:"PIPELINE_LOG_LEVEL" default:"info"`
	LogFormat       string   `envconfig:"PIPELINE_LOG_FORMAT" default:"console"`
	MigrationFolder string   `envconfig:"PIPELINE_MIGRATIONS_FOLDER" default:""`
	AllowedOrigins  []string `envconfig:"PIPELINE_CORS_ALLOWED_ORIGINS" default:"*"`
}

type SchedulerConfig struct {
	Concurrency       int           `envconfig:"PIPELINE_CONCURRENCY" default:"2"`
	BatchSize         int           `envconfig:"PIPELINE_BATCH_SIZE" default:"100"`
	PollInterval      time.Duration `envconfig:"PIPELINE_POLL_INTERVAL" default:"2s"`
	LogCap            int           `envconfig:"PIPELINE_LOG_CAP" default:"1000"`
	RecoverStuckJobs  bool          `envconfig:"PIPELINE_RECOVER_STUCK_JOBS" default:"false"`
	OutputKeyPrefix   string        `envconfig:"PIPELINE_OUTPUT_KEY_PREFIX" default:"datasets"`
	DatasetTTLSeconds int           `envconfig:"PIPELINE_DATASET_TTL_SECONDS" default:"0"`
}

type StorageConfig struct {
	Type              string `envconfig:"PIPELINE_STORAGE_TYPE" default:"minio"`
	Endpoint          string `envconfig:"PIPELINE_S3_ENDPOINT" default:"localhost:9000"`
	Bucket            string `envconfig:"PIPELINE_S3_BUCKET" default:"pipeline"`
	AccessKey         string `envconfig:"PIPELINE_S3_ACCESS_KEY" default:""`
	SecretKey         string `envconfig:"PIPELINE_S3_SECRET_KEY" default:""`
	Region            string `envconfig:"PIPELINE_S3_REGION" default:""`
	UseSSL            bool   `envconfig:"PIPELINE_S3_USE_SSL" default:"false"`
	LocalRoot         string `envconfig:"PIPELINE_STORAGE_LOCAL_ROOT" default:"/tmp/pipeline-blobs"`
	LocalBaseURL      string `envconfig:"PIPELINE_STORAGE_LOCAL_BASE_URL" default:"http://localhost:3443"`
	LocalSecret       string `envconfig:"PIPELINE_STORAGE_LOCAL_SECRET" default:"change-me"`
	PresignTTLSeconds int    `envconfig:"PIPELINE_PRESIGN_TTL_SECONDS" default:"3600"`
}

type EventsConfig struct {
	Writer       string   `envconfig:"PIPELINE_EVENTS_WRITER" default:"stdout"`
	KafkaBrokers []string `envconfig:"PIPELINE_KAFKA_BROKERS" default:""`
	KafkaTopic   string   `envconfig:"PIPELINE_KAFKA_TOPIC" default:"dataforge.pipeline.jobs"`
}

// New reads the configuration from the environment.
func New() (*Config, error) {
	cfg := new(Config)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
