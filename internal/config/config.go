package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Log          LogConfig          `yaml:"log"`
	Auth         AuthConfig         `yaml:"auth"`
	Order        OrderConfig        `yaml:"order"`
	Verification VerificationConfig `yaml:"verification"`
	Redis        RedisConfig        `yaml:"redis"`
	Notification NotificationConfig `yaml:"notification"`
	Upload       UploadConfig       `yaml:"upload"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Name            string        `yaml:"name"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type AuthConfig struct {
	TokenSecret string        `yaml:"tokenSecret"`
	TokenTTL    time.Duration `yaml:"tokenTTL"`
	Issuer      string        `yaml:"issuer"`
}

type OrderConfig struct {
	// StrictTransitions switches status updates from the permissive rule to
	// the forward-only lifecycle graph.
	StrictTransitions bool          `yaml:"strictTransitions"`
	TxTimeout         time.Duration `yaml:"txTimeout"`
	DefaultPageSize   int           `yaml:"defaultPageSize"`
	MaxPageSize       int           `yaml:"maxPageSize"`
	MaxRetryAttempts  int           `yaml:"maxRetryAttempts"`
}

type VerificationConfig struct {
	Driver        string        `yaml:"driver"` // "memory" | "redis"
	CodeTTL       time.Duration `yaml:"codeTTL"`
	SweepSchedule string        `yaml:"sweepSchedule"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type NotificationConfig struct {
	Driver    string            `yaml:"driver"` // "log" | "sms" | "kafka"
	Timeout   time.Duration     `yaml:"timeout"`
	SMS       SMSConfig         `yaml:"sms"`
	Kafka     KafkaConfig       `yaml:"kafka"`
	Templates map[string]string `yaml:"templates"`
}

type SMSConfig struct {
	BaseURL  string `yaml:"baseURL"`
	APIKey   string `yaml:"apiKey"`
	SignName string `yaml:"signName"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type UploadConfig struct {
	Dir          string `yaml:"dir"`
	MaxBytes     int64  `yaml:"maxBytes"`
	PublicPrefix string `yaml:"publicPrefix"`
}

func DefaultTemplates() map[string]string {
	return map[string]string{
		"order_created":     "Your repair order #{order_id} for {device} has been received.",
		"order_assigned":    "Technician {technician} has been assigned to your repair order #{order_id}.",
		"order_completed":   "Your repair order #{order_id} for {device} is completed.",
		"verification_code": "Your verification code is {code}. It expires in 5 minutes.",
	}
}

// Load reads configuration from the environment. A .env file in the working
// directory is honoured when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 3306)
	v.SetDefault("DB_USER", "repairdesk")
	v.SetDefault("DB_PASSWORD", "secret")
	v.SetDefault("DB_NAME", "repairdesk")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "5m")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("AUTH_TOKEN_SECRET", "")
	v.SetDefault("AUTH_TOKEN_TTL", "168h")
	v.SetDefault("AUTH_ISSUER", "repairdesk")
	v.SetDefault("ORDER_STRICT_TRANSITIONS", false)
	v.SetDefault("ORDER_TX_TIMEOUT", "5s")
	v.SetDefault("ORDER_DEFAULT_PAGE_SIZE", 20)
	v.SetDefault("ORDER_MAX_PAGE_SIZE", 100)
	v.SetDefault("ORDER_MAX_RETRY_ATTEMPTS", 3)
	v.SetDefault("VERIFICATION_DRIVER", "memory")
	v.SetDefault("VERIFICATION_CODE_TTL", "5m")
	v.SetDefault("VERIFICATION_SWEEP_SCHEDULE", "@every 1m")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("NOTIFICATION_DRIVER", "log")
	v.SetDefault("NOTIFICATION_TIMEOUT", "10s")
	v.SetDefault("SMS_BASE_URL", "http://localhost:9000")
	v.SetDefault("SMS_API_KEY", "")
	v.SetDefault("SMS_SIGN_NAME", "RepairDesk")
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_NOTIFICATION_TOPIC", "repairdesk.notifications")
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("UPLOAD_MAX_BYTES", 5<<20)
	v.SetDefault("UPLOAD_PUBLIC_PREFIX", "/uploads")

	durations := map[string]time.Duration{}
	for _, key := range []string{
		"SERVER_SHUTDOWN_TIMEOUT", "DB_CONN_MAX_LIFETIME", "AUTH_TOKEN_TTL",
		"ORDER_TX_TIMEOUT", "VERIFICATION_CODE_TTL", "NOTIFICATION_TIMEOUT",
	} {
		d, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return nil, err
		}
		durations[key] = d
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            v.GetInt("SERVER_PORT"),
			ShutdownTimeout: durations["SERVER_SHUTDOWN_TIMEOUT"],
		},
		Database: DatabaseConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			Name:            v.GetString("DB_NAME"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: durations["DB_CONN_MAX_LIFETIME"],
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
		Auth: AuthConfig{
			TokenSecret: v.GetString("AUTH_TOKEN_SECRET"),
			TokenTTL:    durations["AUTH_TOKEN_TTL"],
			Issuer:      v.GetString("AUTH_ISSUER"),
		},
		Order: OrderConfig{
			StrictTransitions: v.GetBool("ORDER_STRICT_TRANSITIONS"),
			TxTimeout:         durations["ORDER_TX_TIMEOUT"],
			DefaultPageSize:   v.GetInt("ORDER_DEFAULT_PAGE_SIZE"),
			MaxPageSize:       v.GetInt("ORDER_MAX_PAGE_SIZE"),
			MaxRetryAttempts:  v.GetInt("ORDER_MAX_RETRY_ATTEMPTS"),
		},
		Verification: VerificationConfig{
			Driver:        v.GetString("VERIFICATION_DRIVER"),
			CodeTTL:       durations["VERIFICATION_CODE_TTL"],
			SweepSchedule: v.GetString("VERIFICATION_SWEEP_SCHEDULE"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Notification: NotificationConfig{
			Driver:  v.GetString("NOTIFICATION_DRIVER"),
			Timeout: durations["NOTIFICATION_TIMEOUT"],
			SMS: SMSConfig{
				BaseURL:  v.GetString("SMS_BASE_URL"),
				APIKey:   v.GetString("SMS_API_KEY"),
				SignName: v.GetString("SMS_SIGN_NAME"),
			},
			Kafka: KafkaConfig{
				Brokers: splitList(v.GetString("KAFKA_BROKERS")),
				Topic:   v.GetString("KAFKA_NOTIFICATION_TOPIC"),
			},
			Templates: DefaultTemplates(),
		},
		Upload: UploadConfig{
			Dir:          v.GetString("UPLOAD_DIR"),
			MaxBytes:     v.GetInt64("UPLOAD_MAX_BYTES"),
			PublicPrefix: v.GetString("UPLOAD_PUBLIC_PREFIX"),
		},
	}

	return cfg, nil
}

// ApplyDefaults fills zero values left by a partial config file.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = 7 * 24 * time.Hour
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "repairdesk"
	}
	if c.Order.TxTimeout == 0 {
		c.Order.TxTimeout = 5 * time.Second
	}
	if c.Order.DefaultPageSize == 0 {
		c.Order.DefaultPageSize = 20
	}
	if c.Order.MaxPageSize == 0 {
		c.Order.MaxPageSize = 100
	}
	if c.Order.MaxRetryAttempts == 0 {
		c.Order.MaxRetryAttempts = 3
	}
	if c.Verification.Driver == "" {
		c.Verification.Driver = "memory"
	}
	if c.Verification.CodeTTL == 0 {
		c.Verification.CodeTTL = 5 * time.Minute
	}
	if c.Verification.SweepSchedule == "" {
		c.Verification.SweepSchedule = "@every 1m"
	}
	if c.Notification.Driver == "" {
		c.Notification.Driver = "log"
	}
	if c.Notification.Timeout == 0 {
		c.Notification.Timeout = 10 * time.Second
	}
	templates := DefaultTemplates()
	for kind, text := range c.Notification.Templates {
		templates[kind] = text
	}
	c.Notification.Templates = templates
	if c.Upload.Dir == "" {
		c.Upload.Dir = "uploads"
	}
	if c.Upload.MaxBytes == 0 {
		c.Upload.MaxBytes = 5 << 20
	}
	if c.Upload.PublicPrefix == "" {
		c.Upload.PublicPrefix = "/uploads"
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
