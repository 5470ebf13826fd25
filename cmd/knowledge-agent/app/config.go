package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/noxenys/AI-Knowledge-Agent/pkg/constants"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/errors"
)

// Store backends.
const (
	StoreNotion = "notion"
	StoreSQLite = "sqlite"
)

// Config holds the application configuration loaded from config files,
// environment variables and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Record store
	Store            string `validate:"oneof=notion sqlite"`
	NotionToken      string `validate:"required_if=Store notion"`
	NotionDatabaseID string `validate:"required_if=Store notion"`
	NotionBaseURL    string `validate:"omitempty,url"`
	SQLitePath       string `validate:"required_if=Store sqlite"`
	PageSize         int    `validate:"min=1,max=100"`
	ChunkLength      int    `validate:"min=1,max=2000"`

	// Notifications
	TelegramToken   string
	TelegramChatID  string
	TelegramBaseURL string   `validate:"omitempty,url"`
	SMTPHost        string   `validate:"omitempty,hostname_rfc1123|ip"`
	SMTPPort        int      `validate:"omitempty,min=1,max=65535"`
	SMTPUsername    string
	SMTPPassword    string
	SMTPFrom        string   `validate:"required_with=SMTPHost"`
	SMTPTo          []string `validate:"required_with=SMTPHost,dive,email"`

	// Reconciliation
	Period       time.Duration `validate:"gt=0"`
	FetchTimeout time.Duration `validate:"gt=0"`
	MaxAttempts  int           `validate:"min=1"`
	RetryDelay   time.Duration `validate:"gte=0"`
	PageDelay    time.Duration `validate:"gte=0"`

	// Search
	SearchEndpoint string `validate:"omitempty,url"`
	SearchKeywords string
	TrustedDomain  string `validate:"required"`

	// Discovery
	DiscoveryEnabled  bool
	DiscoveryBaseURL  string `validate:"omitempty,url"`
	DiscoveryKeywords []string
	DiscoveryDelay    time.Duration `validate:"gte=0"`

	// Backups
	BackupDir     string   `validate:"required"`
	BackupFormats []string `validate:"dive,oneof=json yaml yml"`

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables
// 3. .env files
// 4. Config file (~/.knowledge-agent.yaml)
// 5. Defaults
func LoadConfig() (*Config, error) {
	loadEnvFiles()
	return loadConfig(viper.New(), os.Getenv("KNOWLEDGE_AGENT_CONFIG"))
}

func loadConfig(v *viper.Viper, configFile string) (*Config, error) {
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.WrapResource("read", "config", configFile, err)
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".knowledge-agent")
		// A missing config file is fine.
		_ = v.ReadInConfig()
	}

	config := &Config{
		ConfigFile: v.ConfigFileUsed(),

		Store:            strings.ToLower(v.GetString("store")),
		NotionToken:      v.GetString("notion_token"),
		NotionDatabaseID: v.GetString("notion_database_id"),
		NotionBaseURL:    v.GetString("notion_base_url"),
		SQLitePath:       v.GetString("sqlite_path"),
		PageSize:         v.GetInt("page_size"),
		ChunkLength:      v.GetInt("chunk_length"),

		TelegramToken:   v.GetString("telegram_bot_token"),
		TelegramChatID:  v.GetString("telegram_chat_id"),
		TelegramBaseURL: v.GetString("telegram_base_url"),
		SMTPHost:        v.GetString("smtp_host"),
		SMTPPort:        v.GetInt("smtp_port"),
		SMTPUsername:    v.GetString("smtp_username"),
		SMTPPassword:    v.GetString("smtp_password"),
		SMTPFrom:        v.GetString("smtp_from"),
		SMTPTo:          splitList(v.GetStringSlice("smtp_to")),

		Period:       v.GetDuration("period"),
		FetchTimeout: v.GetDuration("fetch_timeout"),
		MaxAttempts:  v.GetInt("max_attempts"),
		RetryDelay:   v.GetDuration("retry_delay"),
		PageDelay:    v.GetDuration("page_delay"),

		SearchEndpoint: v.GetString("search_endpoint"),
		SearchKeywords: v.GetString("search_keywords"),
		TrustedDomain:  v.GetString("trusted_domain"),

		DiscoveryEnabled:  v.GetBool("discovery_enabled"),
		DiscoveryBaseURL:  v.GetString("discovery_base_url"),
		DiscoveryKeywords: splitList(v.GetStringSlice("discovery_keywords")),
		DiscoveryDelay:    v.GetDuration("discovery_delay"),

		BackupDir:     v.GetString("backup_dir"),
		BackupFormats: splitList(v.GetStringSlice("backup_formats")),

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
		LogOutput: v.GetString("log_output"),
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store", StoreNotion)
	v.SetDefault("sqlite_path", "data/records.db")
	v.SetDefault("page_size", constants.DefaultPageSize)
	v.SetDefault("chunk_length", constants.MaxChunkLength)
	v.SetDefault("smtp_port", 587)
	v.SetDefault("period", constants.CyclePeriod)
	v.SetDefault("fetch_timeout", constants.FetchTimeout)
	v.SetDefault("max_attempts", constants.MaxAttempts)
	v.SetDefault("retry_delay", constants.RetryDelay)
	v.SetDefault("page_delay", constants.PageDelay)
	v.SetDefault("search_keywords", constants.SearchKeywords)
	v.SetDefault("trusted_domain", constants.TrustedDomain)
	v.SetDefault("discovery_enabled", true)
	v.SetDefault("discovery_delay", constants.DiscoveryDelay)
	v.SetDefault("backup_dir", "backups")
	v.SetDefault("backup_formats", []string{"json", "yaml"})
	v.SetDefault("log_format", "auto")
	v.SetDefault("log_output", "stderr")
}

// splitList flattens comma separated entries, as environment variables
// carry lists in a single value.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags to ensure flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration and reports every invalid field at once.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.NewConfigError("config", err.Error(), err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
	}
	return errors.NewConfigError("config", strings.Join(msgs, "; "), err)
}

// loadEnvFiles loads environment variables from .env files.
func loadEnvFiles() {
	// .env.local overrides .env
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}
