package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Aggregation
	FailureThreshold int           // consecutive failures before a provider is down
	OverallDeadline  time.Duration // wall time allowed for one whole fan-out
	JitterProfile    string        // "cautious", "normal", "aggressive"
	RespectRobots    bool

	// Rate limiting
	RatePerSecond float64
	RateBurst     int
	MaxConcurrent int

	// Response cache
	CacheDBPath string
	DefaultTTL  time.Duration
	// Per-provider TTLs. PriceAPI is metered so its responses are kept
	// the longest.
	PriceAPITTL  time.Duration
	ShopSenseTTL time.Duration
	MarketlyTTL  time.Duration

	// Providers
	PriceAPIBaseURL  string
	PriceAPIKey      string
	ShopSenseEnabled bool
	ShopSenseBaseURL string
	MarketlyEnabled  bool
	MarketlyBaseURL  string
	MarketlyHeadless bool

	// Ranking guards: folded category hint → lowest plausible price.
	CategoryFloors map[string]string

	// HTTP server
	HTTPPort string
	APIKey   string
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		FailureThreshold: 3,
		OverallDeadline:  12 * time.Second,
		JitterProfile:    "normal",
		RespectRobots:    true,
		RatePerSecond:    2.0,
		RateBurst:        3,
		MaxConcurrent:    3,
		CacheDBPath:      "./pricehound.db",
		DefaultTTL:       30 * time.Minute,
		PriceAPITTL:      6 * time.Hour,
		ShopSenseTTL:     30 * time.Minute,
		MarketlyTTL:      time.Hour,
		PriceAPIBaseURL:  "https://api.priceapi.com",
		ShopSenseEnabled: true,
		MarketlyEnabled:  true,
		CategoryFloors: map[string]string{
			"electronics": "25",
			"appliances":  "50",
		},
		HTTPPort: "8080",
	}
}

// LoadFromEnv loads .env (if present) then overrides config from
// environment variables.
func (c *Config) LoadFromEnv() {
	// Auto-load .env file; silently ignored if missing
	_ = godotenv.Load()

	if v := os.Getenv("PRICEHOUND_FAILURE_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.FailureThreshold = n
		}
	}
	if v := os.Getenv("PRICEHOUND_DEADLINE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.OverallDeadline = d
		}
	}
	if v := os.Getenv("PRICEHOUND_JITTER_PROFILE"); v != "" {
		c.JitterProfile = v
	}
	if v := os.Getenv("PRICEHOUND_RESPECT_ROBOTS"); v == "false" {
		c.RespectRobots = false
	}
	if v := os.Getenv("PRICEHOUND_RATE_PER_SECOND"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RatePerSecond = f
		}
	}
	if v := os.Getenv("PRICEHOUND_RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateBurst = n
		}
	}
	if v := os.Getenv("PRICEHOUND_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxConcurrent = n
		}
	}
	if v := os.Getenv("PRICEHOUND_CACHE_DB"); v != "" {
		c.CacheDBPath = v
	}
	if v := os.Getenv("PRICEHOUND_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.DefaultTTL = d
		}
	}
	if v := os.Getenv("PRICEAPI_BASE_URL"); v != "" {
		c.PriceAPIBaseURL = v
	}
	if v := os.Getenv("PRICEAPI_KEY"); v != "" {
		c.PriceAPIKey = v
	}
	if v := os.Getenv("PRICEHOUND_SHOPSENSE"); v == "false" {
		c.ShopSenseEnabled = false
	}
	if v := os.Getenv("SHOPSENSE_BASE_URL"); v != "" {
		c.ShopSenseBaseURL = v
	}
	if v := os.Getenv("PRICEHOUND_MARKETLY"); v == "false" {
		c.MarketlyEnabled = false
	}
	if v := os.Getenv("MARKETLY_BASE_URL"); v != "" {
		c.MarketlyBaseURL = v
	}
	if v := os.Getenv("PRICEHOUND_MARKETLY_HEADLESS"); v == "true" {
		c.MarketlyHeadless = true
	}
	if v := os.Getenv("PRICEHOUND_CATEGORY_FLOORS"); v != "" {
		c.CategoryFloors = parseFloors(v)
	}
	if v := os.Getenv("PORT"); v != "" {
		c.HTTPPort = v
	}
	if v := os.Getenv("PRICEHOUND_API_KEY"); v != "" {
		c.APIKey = v
	}
}

// parseFloors parses "electronics=25,appliances=50" into a floor map.
func parseFloors(s string) map[string]string {
	floors := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		floors[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return floors
}

// LogoTable is the static store-logo lookup used by the normalizer for
// stores whose logo cannot be derived from their name.
func LogoTable() map[string]string {
	return map[string]string{
		"amazon":     "https://www.amazon.com/favicon.ico",
		"walmart":    "https://www.walmart.com/favicon.ico",
		"best buy":   "https://www.bestbuy.com/favicon.ico",
		"target":     "https://www.target.com/favicon.ico",
		"ebay":       "https://www.ebay.com/favicon.ico",
		"newegg":     "https://www.newegg.com/favicon.ico",
		"b&h":        "https://www.bhphotovideo.com/favicon.ico",
		"costco":     "https://www.costco.com/favicon.ico",
		"home depot": "https://www.homedepot.com/favicon.ico",
	}
}
