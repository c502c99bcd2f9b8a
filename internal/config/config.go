package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config 应用配置
type Config struct {
	AppName    string
	AppVersion string
	Env        string
	Debug      bool
	Port       string `validate:"required,numeric"`
	LogLevel   string `validate:"oneof=debug info warn error"`

	DBDriver    string `validate:"oneof=postgres pq sqlite"`
	DatabaseURL string `validate:"required"`

	LLMProvider    string        `validate:"oneof=openai gemini ollama"`
	LLMModel       string        `validate:"required"`
	LLMTemperature float32       `validate:"gte=0,lte=2"`
	LLMMaxTokens   int           `validate:"gte=0"`
	LLMTimeout     time.Duration `validate:"gt=0"`
	OpenAIAPIKey   string        `validate:"required_if=LLMProvider openai"`
	OpenAIBaseURL  string
	GeminiAPIKey   string `validate:"required_if=LLMProvider gemini"`
	OllamaHost     string `validate:"required_if=LLMProvider ollama"`

	GoogleAPIKey      string `validate:"required"`
	TMDBAPIKey        string `validate:"required_without=TMDBAccessToken"`
	TMDBAccessToken   string
	YouTubeAPIKey     string        `validate:"required"`
	CatalogTimeout    time.Duration `validate:"gt=0"`
	EnrichConcurrency int           `validate:"gte=1,lte=32"`

	DefaultResultCount int  `validate:"gte=1,lte=20"`
	RateLimitPerMinute int  `validate:"gte=0"`
	CacheMovies        bool
	CacheTTL           time.Duration `validate:"gte=0"`
	CacheMaxEntries    int           `validate:"gte=0"`
	CleanupInterval    time.Duration `validate:"gt=0"`

	CORS CORSConfig
}

// Load 加载配置，缺少必要配置时返回错误（进程应在对外服务前退出）
func Load() (*Config, error) {
	env := getEnv("APP_ENV", "development")
	debug := getBool("DEBUG", false)

	logLevel := strings.ToLower(getEnv("LOG_LEVEL", "info"))
	if debug {
		logLevel = "debug"
	}

	provider := strings.ToLower(getEnv("LLM_PROVIDER", "openai"))

	cfg := &Config{
		AppName:    getEnv("APP_NAME", "Recommend Me Something API"),
		AppVersion: getEnv("APP_VERSION", "1.0.0"),
		Env:        env,
		Debug:      debug,
		Port:       getEnv("PORT", "8000"),
		LogLevel:   logLevel,

		DBDriver:    strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DatabaseURL: databaseURL(),

		LLMProvider:    provider,
		LLMModel:       getEnv("LLM_MODEL", defaultModel(provider)),
		LLMTemperature: float32(getFloat("LLM_TEMPERATURE", 0.7)),
		LLMMaxTokens:   getInt("LLM_MAX_TOKENS", 0),
		LLMTimeout:     getDuration("LLM_TIMEOUT", 30*time.Second),
		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:  os.Getenv("OPENAI_BASE_URL"),
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		OllamaHost:     getEnv("OLLAMA_HOST", "http://localhost:11434"),

		GoogleAPIKey:      os.Getenv("GOOGLE_API_KEY"),
		TMDBAPIKey:        os.Getenv("TMDB_API_KEY"),
		TMDBAccessToken:   os.Getenv("TMDB_ACCESS_TOKEN"),
		YouTubeAPIKey:     os.Getenv("YOUTUBE_DATA_API_KEY"),
		CatalogTimeout:    getDuration("CATALOG_TIMEOUT", 10*time.Second),
		EnrichConcurrency: getInt("ENRICH_CONCURRENCY", 4),

		DefaultResultCount: getInt("DEFAULT_RESULT_COUNT", 5),
		RateLimitPerMinute: getInt("RATE_LIMIT_PER_MINUTE", 60),
		CacheMovies:        getBool("CACHE_MOVIES", false),
		CacheTTL:           getDuration("CACHE_TTL", 0),
		CacheMaxEntries:    getInt("CACHE_MAX_ENTRIES", 10000),
		CleanupInterval:    getDuration("CACHE_CLEANUP_INTERVAL", time.Hour),
	}

	cors, err := LoadCORS(getEnv("CORS_CONFIG_FILE", "config.yml"))
	if err != nil {
		return nil, err
	}
	cfg.CORS = cors

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置完整性
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config: %w", err)
	}

	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, fmt.Sprintf("%s (%s)", envName(fe.Field()), fe.Tag()))
	}
	return fmt.Errorf("config: invalid or missing settings: %s", strings.Join(problems, ", "))
}

// CacheableKind 判断该内容类型是否写入查询缓存
func (c *Config) CacheableKind(kind string) bool {
	switch kind {
	case "book":
		return true
	case "movie":
		return c.CacheMovies
	default:
		return false
	}
}

func databaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	if strings.EqualFold(os.Getenv("DB_DRIVER"), "sqlite") {
		return getEnv("DB_PATH", "wisepick.db")
	}
	if os.Getenv("DB_HOST") == "" {
		return ""
	}

	dbUser := getEnv("DB_USER", "postgres")
	dbPass := getEnv("DB_PASSWORD", "postgres")
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbName := getEnv("DB_NAME", "wisepick")
	dbSSL := getEnv("DB_SSLMODE", "disable")

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbUser, dbPass, dbHost, dbPort, dbName, dbSSL)
}

func defaultModel(provider string) string {
	switch provider {
	case "gemini":
		return "gemini-2.5-flash"
	case "ollama":
		return "llama3.1"
	default:
		return "gpt-3.5-turbo"
	}
}

// envName 把结构体字段名映射回环境变量名，便于报错
func envName(field string) string {
	names := map[string]string{
		"Port":               "PORT",
		"LogLevel":           "LOG_LEVEL",
		"DBDriver":           "DB_DRIVER",
		"DatabaseURL":        "DATABASE_URL",
		"LLMProvider":        "LLM_PROVIDER",
		"LLMModel":           "LLM_MODEL",
		"LLMTemperature":     "LLM_TEMPERATURE",
		"LLMMaxTokens":       "LLM_MAX_TOKENS",
		"LLMTimeout":         "LLM_TIMEOUT",
		"OpenAIAPIKey":       "OPENAI_API_KEY",
		"GeminiAPIKey":       "GEMINI_API_KEY",
		"OllamaHost":         "OLLAMA_HOST",
		"GoogleAPIKey":       "GOOGLE_API_KEY",
		"TMDBAPIKey":         "TMDB_API_KEY",
		"YouTubeAPIKey":      "YOUTUBE_DATA_API_KEY",
		"CatalogTimeout":     "CATALOG_TIMEOUT",
		"EnrichConcurrency":  "ENRICH_CONCURRENCY",
		"DefaultResultCount": "DEFAULT_RESULT_COUNT",
		"RateLimitPerMinute": "RATE_LIMIT_PER_MINUTE",
		"CacheTTL":           "CACHE_TTL",
		"CacheMaxEntries":    "CACHE_MAX_ENTRIES",
		"CleanupInterval":    "CACHE_CLEANUP_INTERVAL",
	}
	if name, ok := names[field]; ok {
		return name
	}
	return field
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

// getDuration 支持 "30s" 形式，也兼容纯数字（按秒计）
func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
