package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var GlobalConfig *Config

// Config global configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Sheets  SheetsConfig  `yaml:"sheets"`
	Redis   RedisConfig   `yaml:"redis"`
	Cache   CacheConfig   `yaml:"cache"`
	MySQL   MySQLConfig   `yaml:"mysql"`
	Kafka   KafkaConfig   `yaml:"kafka"`
	Jobs    JobsConfig    `yaml:"jobs"`
	Tracker TrackerConfig `yaml:"tracker"`
	Logger  LoggerConfig  `yaml:"logger"`

	Notification NotificationConfig `yaml:"notification"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Port        int      `yaml:"port"`
	Mode        string   `yaml:"mode"`         // debug, release
	APIKey      string   `yaml:"api_key"`      // API key for mutating routes (optional, if empty, auth is disabled)
	CORSOrigins []string `yaml:"cors_origins"` // allowed dashboard origins, empty or "*" allows all
}

// SheetsConfig Google Sheets configuration
type SheetsConfig struct {
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	CredentialsFile string `yaml:"credentials_file"` // service account key file
	CredentialsJSON string `yaml:"credentials_json"` // inline service account key, wins over the file
	LogsSheet       string `yaml:"logs_sheet"`
	EmployeesSheet  string `yaml:"employees_sheet"`
	ProjectsSheet   string `yaml:"projects_sheet"`
	Timeout         int    `yaml:"timeout"` // per-call timeout (seconds)
}

// RedisConfig Redis configuration, empty addr disables Redis
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// CacheConfig snapshot cache configuration
type CacheConfig struct {
	TTL int `yaml:"ttl"` // seconds
}

// MySQLConfig MySQL configuration, empty host disables the audit trail
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// KafkaConfig change event publishing, no brokers disables it
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// JobsConfig background job configuration
type JobsConfig struct {
	LateAlertInterval  int `yaml:"late_alert_interval"`  // seconds, 0 disables the job
	AuditRetentionDays int `yaml:"audit_retention_days"` // 0 keeps the audit trail forever
}

// NotificationConfig late alert delivery
type NotificationConfig struct {
	FeishuWebhookURL string `yaml:"feishu_webhook_url"` // empty disables webhook alerts
}

// TrackerConfig domain settings
type TrackerConfig struct {
	Timezone string `yaml:"timezone"` // IANA zone used to decide "today"
}

// LoggerConfig logger configuration
type LoggerConfig struct {
	Level  string           `yaml:"level"`  // debug, info, warn, error
	Output string           `yaml:"output"` // console, file, both
	File   LoggerFileConfig `yaml:"file"`
}

// LoggerFileConfig logger file configuration
type LoggerFileConfig struct {
	Path string `yaml:"path"`
}

const (
	defaultPort           = 8080
	defaultLogsSheet      = "Logs"
	defaultEmployeesSheet = "Employees"
	defaultProjectsSheet  = "Projects"
	defaultSheetsTimeout  = 30
	defaultCacheTTL       = 300
	defaultKafkaTopic     = "chronos.task-events"
	defaultTimezone       = "Asia/Bangkok"

	defaultAuditRetentionDays = 180
)

// Init initializes configuration
func Init() error {
	// .env is optional
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := Load(configPath)
	if err != nil {
		return err
	}

	GlobalConfig = cfg
	return nil
}

// Load reads the YAML file at path (a missing file is not an error), applies
// environment overrides and fills defaults.
func Load(path string) (*Config, error) {
	// seeded before parsing so an explicit 0 in the file still disables retention
	cfg := Config{Jobs: JobsConfig{AuditRetentionDays: defaultAuditRetentionDays}}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("CHRONOS_SPREADSHEET_ID"); v != "" {
		cfg.Sheets.SpreadsheetID = v
	}
	if v := os.Getenv("CHRONOS_SHEETS_CREDENTIALS_FILE"); v != "" {
		cfg.Sheets.CredentialsFile = v
	}
	if v := os.Getenv("CHRONOS_SHEETS_CREDENTIALS_JSON"); v != "" {
		cfg.Sheets.CredentialsJSON = v
	}
	if v := os.Getenv("CHRONOS_SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid CHRONOS_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("CHRONOS_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("CHRONOS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("FEISHU_WEBHOOK_URL"); v != "" {
		cfg.Notification.FeishuWebhookURL = v
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = defaultPort
	}
	if cfg.Sheets.LogsSheet == "" {
		cfg.Sheets.LogsSheet = defaultLogsSheet
	}
	if cfg.Sheets.EmployeesSheet == "" {
		cfg.Sheets.EmployeesSheet = defaultEmployeesSheet
	}
	if cfg.Sheets.ProjectsSheet == "" {
		cfg.Sheets.ProjectsSheet = defaultProjectsSheet
	}
	if cfg.Sheets.Timeout <= 0 {
		cfg.Sheets.Timeout = defaultSheetsTimeout
	}
	if cfg.Cache.TTL <= 0 {
		cfg.Cache.TTL = defaultCacheTTL
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = defaultKafkaTopic
	}
	if cfg.Jobs.LateAlertInterval < 0 {
		cfg.Jobs.LateAlertInterval = 0
	}
	if cfg.Jobs.AuditRetentionDays < 0 {
		cfg.Jobs.AuditRetentionDays = 0
	}
	if cfg.Tracker.Timezone == "" {
		cfg.Tracker.Timezone = defaultTimezone
	}
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.Logger.Output == "" {
		cfg.Logger.Output = "console"
	}
	cfg.Sheets.CredentialsJSON = repairPrivateKey(cfg.Sheets.CredentialsJSON)
}

// repairPrivateKey turns doubly escaped newlines ("\\n") into JSON newline
// escapes. Secrets pasted through env vars or CI settings often arrive that way.
func repairPrivateKey(credentials string) string {
	if credentials == "" {
		return credentials
	}
	return strings.ReplaceAll(credentials, `\\n`, `\n`)
}

// SheetsTimeout returns the per-call Sheets timeout.
func (c *Config) SheetsTimeout() time.Duration {
	return time.Duration(c.Sheets.Timeout) * time.Second
}

// CacheTTL returns the snapshot cache TTL.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTL) * time.Second
}

// LateAlertInterval returns the late alert job interval, zero when disabled.
func (c *Config) LateAlertInterval() time.Duration {
	return time.Duration(c.Jobs.LateAlertInterval) * time.Second
}

// Location resolves the tracker time zone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Tracker.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
