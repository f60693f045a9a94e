package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the paperfinder API configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	CORS     CORSConfig     `yaml:"cors"`
	Search   SearchConfig   `yaml:"search"`
	OCR      OCRConfig      `yaml:"ocr"`
	Chat     ChatConfig     `yaml:"chat"`
	Assets   AssetsConfig   `yaml:"assets"`
	Session  SessionConfig  `yaml:"session"`
	Feedback FeedbackConfig `yaml:"feedback"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// CORSConfig lists the browser origins allowed to call the API. "*" allows any.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port           int `yaml:"port"`
	ReadTimeoutSec int `yaml:"read_timeout_sec"`
	// WriteTimeoutSec bounds non-streaming responses; 0 disables it so SSE
	// streams are not cut off.
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds key-value store settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // memory, redis, valkey (default: memory)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// SearchConfig holds the Pinecone index endpoints. An empty host leaves that
// backend unconfigured.
type SearchConfig struct {
	APIKey        string `yaml:"api_key"`
	PrimaryHost   string `yaml:"primary_host"`
	SecondaryHost string `yaml:"secondary_host"`
	Namespace     string `yaml:"namespace"`
	APIVersion    string `yaml:"api_version"`
	TimeoutSec    int    `yaml:"timeout_sec"`
}

// OCRConfig selects and configures the OCR provider.
type OCRConfig struct {
	Provider    string   `yaml:"provider"` // mistral, tesseract, none (default: mistral)
	APIKey      string   `yaml:"api_key"`
	BaseURL     string   `yaml:"base_url"`
	Model       string   `yaml:"model"`
	TimeoutSec  int      `yaml:"timeout_sec"`
	Languages   []string `yaml:"languages"`     // tesseract only
	CacheTTLSec int      `yaml:"cache_ttl_sec"` // 0 = keep forever
}

// ChatConfig holds the OpenAI-compatible chat provider settings.
type ChatConfig struct {
	APIKey  string       `yaml:"api_key"`
	BaseURL string       `yaml:"base_url"`
	Budget  BudgetConfig `yaml:"budget"`
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// AssetsConfig locates the static question bank. Dir wins over BaseURL.
type AssetsConfig struct {
	BaseURL           string `yaml:"base_url"`
	Dir               string `yaml:"dir"`
	TimeoutSec        int    `yaml:"timeout_sec"`
	QuestionsPrefix   string `yaml:"questions_prefix"`
	AnswersPrefix     string `yaml:"answers_prefix"`
	PapersPrefix      string `yaml:"papers_prefix"`
	MarkschemesPrefix string `yaml:"markschemes_prefix"`
}

// SessionConfig holds session storage settings.
type SessionConfig struct {
	TTLSec int `yaml:"ttl_sec"`
}

// FeedbackConfig holds the feedback (EmailJS) and signup (Formspree) relays.
type FeedbackConfig struct {
	EmailJS   EmailJSConfig `yaml:"emailjs"`
	Formspree struct {
		FormID string `yaml:"form_id"`
	} `yaml:"formspree"`
}

// EmailJSConfig holds the EmailJS account settings.
type EmailJSConfig struct {
	ServiceID  string `yaml:"service_id"`
	TemplateID string `yaml:"template_id"`
	PublicKey  string `yaml:"public_key"`
	PrivateKey string `yaml:"private_key"`
	ToEmail    string `yaml:"to_email"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML after env substitution, then applies defaults and validates.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 15
	}
	if c.HTTP.WriteTimeoutSec < 0 {
		c.HTTP.WriteTimeoutSec = 0
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "memory"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Search.TimeoutSec <= 0 {
		c.Search.TimeoutSec = 15
	}
	if c.OCR.Provider == "" {
		c.OCR.Provider = "mistral"
	}
	if c.OCR.TimeoutSec <= 0 {
		c.OCR.TimeoutSec = 60
	}
	if c.Chat.Budget.Action == "" {
		c.Chat.Budget.Action = "warn"
	}
	if c.Assets.TimeoutSec <= 0 {
		c.Assets.TimeoutSec = 30
	}
	if c.Session.TTLSec <= 0 {
		c.Session.TTLSec = 24 * 60 * 60
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "memory":
	case "redis", "valkey":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
		}
	default:
		return fmt.Errorf("database.driver must be \"memory\", \"redis\" or \"valkey\", got %q", c.Database.Driver)
	}
	switch c.OCR.Provider {
	case "mistral", "tesseract", "none":
	default:
		return fmt.Errorf("ocr.provider must be \"mistral\", \"tesseract\" or \"none\", got %q", c.OCR.Provider)
	}
	switch c.Chat.Budget.Action {
	case "warn", "reject":
	default:
		return fmt.Errorf("chat.budget.action must be \"warn\" or \"reject\", got %q", c.Chat.Budget.Action)
	}
	if c.Chat.Budget.DailyTokenLimit < 0 || c.Chat.Budget.MonthlyTokenLimit < 0 {
		return fmt.Errorf("chat.budget token limits must not be negative")
	}
	if c.Assets.Dir == "" && c.Assets.BaseURL == "" {
		return fmt.Errorf("assets.dir or assets.base_url is required")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// Relative to the source file, for tests and `go run` from subdirectories.
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
