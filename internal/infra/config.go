package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv              string
	Port                string
	LogFile             string
	DefaultLocale       string
	CORSAllowedOrigins  []string
	GeminiAPIKey        string
	GeminiBaseURL       string
	GeminiImageModel    string
	GeminiTextModel     string
	GeminiAnalysisModel string
	VeoModel            string
	VideoAPIKey         string
	VideoPollInterval   time.Duration
	VideoMaxPolls       int
	GatewayConcurrency  int
	SessionTTL          time.Duration
	CameraStartTimeout  time.Duration
	EraCatalogPath      string
	MaxUploadBytes      int64
	MaxImagePixels      int64
	HTTPReadTimeout     time.Duration
	HTTPWriteTimeout    time.Duration
	HTTPIdleTimeout     time.Duration
	RateLimitPerMin     int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:              getEnv("APP_ENV", "development"),
		Port:                getEnv("PORT", "8080"),
		LogFile:             os.Getenv("LOG_FILE"),
		DefaultLocale:       getEnv("DEFAULT_LOCALE", "en"),
		CORSAllowedOrigins:  splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")),
		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL:       getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiImageModel:    getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
		GeminiTextModel:     getEnv("GEMINI_TEXT_MODEL", "gemini-2.5-flash"),
		GeminiAnalysisModel: getEnv("GEMINI_ANALYSIS_MODEL", "gemini-3-pro-preview"),
		VeoModel:            getEnv("VEO_MODEL", "veo-3.1-fast-generate-preview"),
		VideoAPIKey:         os.Getenv("VEO_API_KEY"),
		VideoPollInterval:   time.Second * time.Duration(getEnvInt("VIDEO_POLL_INTERVAL_SECONDS", 5)),
		VideoMaxPolls:       getEnvInt("VIDEO_MAX_POLLS", 60),
		GatewayConcurrency:  getEnvInt("GATEWAY_CONCURRENCY", 4),
		SessionTTL:          time.Minute * time.Duration(getEnvInt("SESSION_TTL_MINUTES", 60)),
		CameraStartTimeout:  time.Second * time.Duration(getEnvInt("CAMERA_START_TIMEOUT_SECONDS", 30)),
		EraCatalogPath:      os.Getenv("ERA_CATALOG_PATH"),
		MaxUploadBytes:      int64(getEnvInt("MAX_UPLOAD_MB", 20)) << 20,
		MaxImagePixels:      int64(getEnvInt("MAX_IMAGE_MEGAPIXELS", 40)) * 1_000_000,
		HTTPReadTimeout:     time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPWriteTimeout:    time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 60)),
		HTTPIdleTimeout:     time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:     getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
	}

	if cfg.VideoPollInterval <= 0 {
		return nil, fmt.Errorf("VIDEO_POLL_INTERVAL_SECONDS must be positive")
	}
	if cfg.VideoMaxPolls <= 0 {
		return nil, fmt.Errorf("VIDEO_MAX_POLLS must be positive")
	}
	if cfg.GatewayConcurrency <= 0 {
		return nil, fmt.Errorf("GATEWAY_CONCURRENCY must be positive")
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL_MINUTES must be positive")
	}
	if cfg.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}
	if cfg.MaxImagePixels <= 0 {
		return nil, fmt.Errorf("MAX_IMAGE_MEGAPIXELS must be positive")
	}

	return cfg, nil
}

// Offline reports whether generation runs against the synthetic gateway.
func (c *Config) Offline() bool {
	return strings.TrimSpace(c.GeminiAPIKey) == ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
