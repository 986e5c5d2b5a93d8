// Package config loads runtime configuration from environment variables
// (via viper) with CLI flag overrides.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Agent modes.
const (
	ModeScrape            = "scrape"
	ModeDiscover          = "discover"
	ModeDiscoverAndScrape = "discover_and_scrape"
	ModeSingleURL         = "single_url"
)

// Input and log modes.
const (
	InputMongo = "mongo"
	InputCSV   = "csv"
	LogMongo   = "mongo"
	LogTxt     = "txt"
)

// Config is the resolved runtime configuration. Env vars populate the
// defaults; CLI flags override them.
type Config struct {
	// Database
	MongoURI string
	DBName   string `validate:"required"`

	// LLM
	LLMProvider      string `validate:"required,oneof=google openai openrouter anthropic"`
	GoogleAPIKey     string
	OpenAIAPIKey     string
	OpenRouterAPIKey string
	AnthropicAPIKey  string
	// OpenRouterModels is the ordered model fallback list for the
	// openrouter provider.
	OpenRouterModels []string

	// Modes
	AgentMode string `validate:"required,oneof=scrape discover discover_and_scrape single_url"`
	InputMode string `validate:"required,oneof=mongo csv"`
	LogMode   string `validate:"required,oneof=mongo txt"`

	// Browser
	Headless bool

	// Thresholds
	MaxPagesPerSource       int `validate:"min=1"`
	DiscoveryTimeoutSeconds int `validate:"min=1"`
	RequestDelayMS          int `validate:"min=0"`

	// Set by --url; switches the agent to single_url mode when no --mode
	// flag was given.
	TargetURL string

	// CSV paths (input_mode=csv / mongo degradation)
	CSVInputPath string
	CSVOutputDir string

	// Logging switches
	Debug bool
	Quiet bool
}

// Overrides carries CLI flag values. Nil fields were not set on the
// command line and leave the env-derived value alone.
type Overrides struct {
	Mode     *string
	URL      *string
	Input    *string
	Log      *string
	Headless *bool
	Debug    bool
	Quiet    bool
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	viper.AutomaticEnv()

	viper.SetDefault("DB_NAME", "mandi_insights")
	viper.SetDefault("LLM_PROVIDER", "google")
	viper.SetDefault("AGENT_MODE", ModeDiscoverAndScrape)
	viper.SetDefault("INPUT_MODE", InputMongo)
	viper.SetDefault("LOG_MODE", LogMongo)
	viper.SetDefault("HEADLESS", true)
	viper.SetDefault("MAX_PAGES_PER_SOURCE", 50)
	viper.SetDefault("DISCOVERY_TIMEOUT_SECONDS", 120)
	viper.SetDefault("REQUEST_DELAY_MS", 500)
	viper.SetDefault("CSV_INPUT_PATH", "data/samples/sources.csv")
	viper.SetDefault("CSV_OUTPUT_DIR", "data/outputs")
	viper.SetDefault("OPENROUTER_MODEL", "deepseek/deepseek-chat")
}

// Load builds the configuration from the environment and applies CLI
// overrides, then validates it.
func Load(ov Overrides) (*Config, error) {
	cfg := &Config{
		MongoURI:         viper.GetString("MONGO_URI"),
		DBName:           viper.GetString("DB_NAME"),
		LLMProvider:      strings.ToLower(viper.GetString("LLM_PROVIDER")),
		GoogleAPIKey:     viper.GetString("GOOGLE_API_KEY"),
		OpenAIAPIKey:     viper.GetString("OPENAI_API_KEY"),
		OpenRouterAPIKey: viper.GetString("OPENROUTER_API_KEY"),
		AnthropicAPIKey:  viper.GetString("ANTHROPIC_API_KEY"),
		OpenRouterModels: splitModels(viper.GetString("OPENROUTER_MODEL")),

		AgentMode: strings.ToLower(viper.GetString("AGENT_MODE")),
		InputMode: strings.ToLower(viper.GetString("INPUT_MODE")),
		LogMode:   strings.ToLower(viper.GetString("LOG_MODE")),

		Headless: viper.GetBool("HEADLESS"),

		MaxPagesPerSource:       viper.GetInt("MAX_PAGES_PER_SOURCE"),
		DiscoveryTimeoutSeconds: viper.GetInt("DISCOVERY_TIMEOUT_SECONDS"),
		RequestDelayMS:          viper.GetInt("REQUEST_DELAY_MS"),

		CSVInputPath: viper.GetString("CSV_INPUT_PATH"),
		CSVOutputDir: viper.GetString("CSV_OUTPUT_DIR"),
	}

	if ov.Mode != nil {
		cfg.AgentMode = *ov.Mode
	}
	if ov.URL != nil {
		cfg.TargetURL = *ov.URL
		if ov.Mode == nil {
			cfg.AgentMode = ModeSingleURL
		}
	}
	if ov.Input != nil {
		cfg.InputMode = *ov.Input
	}
	if ov.Log != nil {
		cfg.LogMode = *ov.Log
	}
	if ov.Headless != nil {
		cfg.Headless = *ov.Headless
	}
	cfg.Debug = ov.Debug
	cfg.Quiet = ov.Quiet

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.AgentMode == ModeSingleURL && cfg.TargetURL == "" {
		return nil, fmt.Errorf("single_url mode requires --url")
	}
	return cfg, nil
}

// APIKey returns the key for the configured provider.
func (c *Config) APIKey() string {
	switch c.LLMProvider {
	case "google":
		return c.GoogleAPIKey
	case "openai":
		return c.OpenAIAPIKey
	case "openrouter":
		return c.OpenRouterAPIKey
	case "anthropic":
		return c.AnthropicAPIKey
	}
	return ""
}

func splitModels(s string) []string {
	var out []string
	for _, m := range strings.Split(s, ",") {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}
