package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// MaxTurnsLimit caps the model requests one agent may make per cycle.
const MaxTurnsLimit = 10

type Config struct {
	ProjectDir   string `json:"project_dir"`
	DataDir      string `json:"data_dir"`
	DataCacheDir string `json:"data_cache_dir"`

	// Ledger persistence
	StorageBackend string `json:"storage_backend"`
	SQLitePath     string `json:"sqlite_path"`
	S3Bucket       string `json:"s3_bucket"`
	S3Prefix       string `json:"s3_prefix"`
	AWSRegion      string `json:"aws_region"`

	// Language model
	LLMProvider       string  `json:"llm_provider"`
	OpenRouterAPIKey  string  `json:"-"`
	OpenRouterBaseURL string  `json:"openrouter_base_url"`
	DeepSeekAPIKey    string  `json:"-"`
	MaxDailySpend     float64 `json:"max_daily_spend"`
	MaxTokensPerRun   int     `json:"max_tokens_per_run"`
	MaxTurns          int     `json:"max_turns"`

	// Ledger defaults
	StartingCapital float64 `json:"starting_capital"`
	NAVSource       string  `json:"nav_source"`

	// Brokerage
	Broker          string `json:"broker"`
	AlpacaAPIKey    string `json:"-"`
	AlpacaSecretKey string `json:"-"`
	AlpacaPaper     bool   `json:"alpaca_paper"`
	AlpacaBaseURL   string `json:"alpaca_base_url"`

	// Research providers
	OnlineTools  bool   `json:"online_tools"`
	CacheEnabled bool   `json:"cache_enabled"`
	SECUserAgent string `json:"sec_user_agent"`

	FinnhubAPIKey string `json:"-"`

	// Longport API Configuration
	LongportAppKey      string `json:"-"`
	LongportAppSecret   string `json:"-"`
	LongportAccessToken string `json:"-"`

	// Service
	HTTPPort      int    `json:"http_port"`
	CycleSchedule string `json:"cycle_schedule"`
	LogLevel      string `json:"log_level"`
	Debug         bool   `json:"debug"`

	// Eino Debug configuration
	EinoDebugEnabled bool `json:"eino_debug_enabled"`
	EinoDebugPort    int  `json:"eino_debug_port"`

	Agents []AgentConfig `json:"agents"`
}

const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
	StorageS3     = "s3"

	ProviderOpenRouter = "openrouter"
	ProviderDeepSeek   = "deepseek"

	BrokerAlpaca = "alpaca"
	BrokerPaper  = "paper"

	NAVFromBroker = "broker"
	NAVFromLedger = "ledger"
)

func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()

	cfg := &Config{
		ProjectDir:   currentDir,
		DataDir:      filepath.Join(currentDir, "data"),
		DataCacheDir: filepath.Join(currentDir, "data", "cache"),

		StorageBackend: StorageFile,
		SQLitePath:     filepath.Join(currentDir, "data", "ledgers.db"),
		S3Prefix:       "portfolios/",
		AWSRegion:      "us-east-1",

		LLMProvider:       ProviderOpenRouter,
		OpenRouterBaseURL: "https://openrouter.ai/api/v1",
		MaxDailySpend:     2.00,
		MaxTokensPerRun:   4000,
		MaxTurns:          MaxTurnsLimit,

		StartingCapital: 10000,
		NAVSource:       NAVFromBroker,

		Broker:      BrokerAlpaca,
		AlpacaPaper: true,

		OnlineTools:  true,
		CacheEnabled: true,
		SECUserAgent: "ValueArenaResearch/1.0 (bot@valuearena.com)",

		HTTPPort:      5328,
		CycleSchedule: "0 30 21 * * MON-FRI",
		LogLevel:      "info",

		EinoDebugEnabled: false,
		EinoDebugPort:    52538,

		Agents: DefaultAgents(),
	}

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg.loadFromEnv()

	return cfg
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("PROJECT_DIR"); val != "" {
		c.ProjectDir = val
	}
	if val := os.Getenv("DATA_DIR"); val != "" {
		c.DataDir = val
		c.DataCacheDir = filepath.Join(val, "cache")
		c.SQLitePath = filepath.Join(val, "ledgers.db")
	}
	if val := os.Getenv("DATA_CACHE_DIR"); val != "" {
		c.DataCacheDir = val
	}

	if val := os.Getenv("STORAGE_BACKEND"); val != "" {
		c.StorageBackend = strings.ToLower(val)
	}
	if val := os.Getenv("SQLITE_PATH"); val != "" {
		c.SQLitePath = val
	}
	if val := os.Getenv("S3_BUCKET"); val != "" {
		c.S3Bucket = val
	}
	if val, ok := os.LookupEnv("S3_PREFIX"); ok {
		c.S3Prefix = val
	}
	if val := os.Getenv("AWS_REGION"); val != "" {
		c.AWSRegion = val
	}

	if val := os.Getenv("LLM_PROVIDER"); val != "" {
		c.LLMProvider = strings.ToLower(val)
	}
	if val := os.Getenv("OPENROUTER_API_KEY"); val != "" {
		c.OpenRouterAPIKey = val
	}
	if val := os.Getenv("OPENROUTER_BASE_URL"); val != "" {
		c.OpenRouterBaseURL = val
	}
	if val := os.Getenv("DEEPSEEK_API_KEY"); val != "" {
		c.DeepSeekAPIKey = val
	}
	if val := os.Getenv("MAX_DAILY_SPEND"); val != "" {
		if v, err := strconv.ParseFloat(val, 64); err == nil {
			c.MaxDailySpend = v
		}
	}
	if val := os.Getenv("MAX_TOKENS_PER_RUN"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.MaxTokensPerRun = v
		}
	}
	if val := os.Getenv("MAX_TURNS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.MaxTurns = v
		}
	}

	if val := os.Getenv("STARTING_CAPITAL"); val != "" {
		if v, err := strconv.ParseFloat(val, 64); err == nil {
			c.StartingCapital = v
		}
	}
	if val := os.Getenv("NAV_SOURCE"); val != "" {
		c.NAVSource = strings.ToLower(val)
	}

	if val := os.Getenv("BROKER"); val != "" {
		c.Broker = strings.ToLower(val)
	}
	if val := os.Getenv("ALPACA_API_KEY"); val != "" {
		c.AlpacaAPIKey = val
	}
	if val := os.Getenv("ALPACA_SECRET_KEY"); val != "" {
		c.AlpacaSecretKey = val
	}
	if val := os.Getenv("ALPACA_PAPER"); val != "" {
		if paper, err := strconv.ParseBool(val); err == nil {
			c.AlpacaPaper = paper
		}
	}
	if val := os.Getenv("ALPACA_BASE_URL"); val != "" {
		c.AlpacaBaseURL = val
	}

	if val := os.Getenv("ONLINE_TOOLS"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.OnlineTools = enabled
		}
	}
	if val := os.Getenv("CACHE_ENABLED"); val != "" {
		if cache, err := strconv.ParseBool(val); err == nil {
			c.CacheEnabled = cache
		}
	}
	if val := os.Getenv("SEC_USER_AGENT"); val != "" {
		c.SECUserAgent = val
	}
	if val := os.Getenv("FINNHUB_API_KEY"); val != "" {
		c.FinnhubAPIKey = val
	}

	if val := os.Getenv("LONGPORT_APP_KEY"); val != "" {
		c.LongportAppKey = val
	}
	if val := os.Getenv("LONGPORT_APP_SECRET"); val != "" {
		c.LongportAppSecret = val
	}
	if val := os.Getenv("LONGPORT_ACCESS_TOKEN"); val != "" {
		c.LongportAccessToken = val
	}

	if val := os.Getenv("HTTP_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.HTTPPort = port
		}
	}
	if val := os.Getenv("CYCLE_SCHEDULE"); val != "" {
		c.CycleSchedule = val
	}
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.LogLevel = strings.ToLower(val)
	}
	if val := os.Getenv("VALUEARENA_DEBUG"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Debug = enabled
		}
	}

	if val := os.Getenv("EINO_DEBUG_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.EinoDebugEnabled = enabled
		}
	}
	if val := os.Getenv("EINO_DEBUG_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.EinoDebugPort = port
		}
	}

	if val := os.Getenv("AGENTS"); val != "" {
		if agents, err := ParseAgents(val); err == nil && len(agents) > 0 {
			c.Agents = agents
		}
	}
}

// AlpacaURL returns the trading API base URL for the configured account type.
func (c *Config) AlpacaURL() string {
	if c.AlpacaBaseURL != "" {
		return c.AlpacaBaseURL
	}
	if c.AlpacaPaper {
		return "https://paper-api.alpaca.markets"
	}
	return "https://api.alpaca.markets"
}

// HasLongport reports whether all three Longport credentials are set.
func (c *Config) HasLongport() bool {
	return c.LongportAppKey != "" && c.LongportAppSecret != "" && c.LongportAccessToken != ""
}

// Validate returns configuration problems. None of them is fatal: every
// collaborator degrades to an error marker when its credentials are missing.
func (c *Config) Validate() []string {
	var problems []string

	switch c.LLMProvider {
	case ProviderOpenRouter:
		if c.OpenRouterAPIKey == "" {
			problems = append(problems, "OPENROUTER_API_KEY is not set")
		}
	case ProviderDeepSeek:
		if c.DeepSeekAPIKey == "" {
			problems = append(problems, "DEEPSEEK_API_KEY is not set")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown LLM_PROVIDER %q", c.LLMProvider))
	}

	switch c.Broker {
	case BrokerAlpaca:
		if c.AlpacaAPIKey == "" || c.AlpacaSecretKey == "" {
			problems = append(problems, "ALPACA_API_KEY / ALPACA_SECRET_KEY are not set")
		}
	case BrokerPaper:
	default:
		problems = append(problems, fmt.Sprintf("unknown BROKER %q", c.Broker))
	}

	switch c.StorageBackend {
	case StorageFile, StorageSQLite:
	case StorageS3:
		if c.S3Bucket == "" {
			problems = append(problems, "S3_BUCKET is required for the s3 storage backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown STORAGE_BACKEND %q", c.StorageBackend))
	}

	if c.NAVSource != NAVFromBroker && c.NAVSource != NAVFromLedger {
		problems = append(problems, fmt.Sprintf("unknown NAV_SOURCE %q", c.NAVSource))
	}
	if c.FinnhubAPIKey == "" {
		problems = append(problems, "FINNHUB_API_KEY is not set, fundamentals tools will return errors")
	}
	if c.MaxTurns <= 0 || c.MaxTurns > MaxTurnsLimit {
		problems = append(problems, fmt.Sprintf("MAX_TURNS must be between 1 and %d, %d model calls will be used", MaxTurnsLimit, MaxTurnsLimit))
	}
	if len(c.Agents) == 0 {
		problems = append(problems, "no agents configured")
	}
	return problems
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.ProjectDir, c.DataDir, c.DataCacheDir}
	for _, dir := range dirs {
		path := strings.TrimSpace(dir)
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
	}
	return nil
}
