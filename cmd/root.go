package cmd

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/pricehound/pricehound/config"
	"github.com/pricehound/pricehound/internal/aggregate"
	"github.com/pricehound/pricehound/internal/cache"
	"github.com/pricehound/pricehound/internal/httputil"
	"github.com/pricehound/pricehound/internal/normalize"
	"github.com/pricehound/pricehound/internal/polite"
	"github.com/pricehound/pricehound/internal/provider"
	"github.com/pricehound/pricehound/internal/provider/marketly"
	"github.com/pricehound/pricehound/internal/provider/priceapi"
	"github.com/pricehound/pricehound/internal/provider/shopsense"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "pricehound",
	Short: "Pricehound - multi-provider price comparison engine",
	Long:  "Compare store prices for a product across several independent pricing providers, with health-gated fan-out and response caching.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().Duration("deadline", 0, "Overall fan-out deadline (e.g. 10s)")
	rootCmd.PersistentFlags().String("cache-db", "", "Path to the response cache database")
	rootCmd.PersistentFlags().String("jitter-profile", "", "Jitter profile: cautious, normal, aggressive")
	rootCmd.PersistentFlags().Bool("respect-robots", true, "Respect robots.txt rules for scraped providers")
}

func initConfig() {
	cfg = config.DefaultConfig()
	cfg.LoadFromEnv()

	// Override from flags
	if v, _ := rootCmd.PersistentFlags().GetDuration("deadline"); v > 0 {
		cfg.OverallDeadline = v
	}
	if v, _ := rootCmd.PersistentFlags().GetString("cache-db"); v != "" {
		cfg.CacheDBPath = v
	}
	if v, _ := rootCmd.PersistentFlags().GetString("jitter-profile"); v != "" {
		cfg.JitterProfile = v
	}
	if v, _ := rootCmd.PersistentFlags().GetBool("respect-robots"); !v {
		cfg.RespectRobots = false
	}
}

// buildHTTPClient creates the politeness-wrapped HTTP client shared by
// the HTTP-based adapters.
func buildHTTPClient() *http.Client {
	transport := &polite.Transport{
		Base: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
		},
		Robots:    polite.NewRobotsChecker(nil, cfg.RespectRobots),
		Limiter:   rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
		Jitter:    polite.NewJitter(polite.Profile(cfg.JitterProfile)),
		UserAgent: httputil.DefaultUserAgent,
	}
	return httputil.NewClient(transport, 0)
}

// initProviders registers all configured provider adapters.
func initProviders() {
	client := buildHTTPClient()

	provider.Register(priceapi.New(
		cfg.PriceAPIBaseURL,
		cfg.PriceAPIKey,
		client,
		rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
		cfg.MaxConcurrent,
	))
	provider.Register(shopsense.New(cfg.ShopSenseBaseURL, cfg.ShopSenseEnabled, 0))
	provider.Register(marketly.New(cfg.MarketlyBaseURL, cfg.MarketlyEnabled, cfg.MarketlyHeadless, client))
}

// buildAggregator wires providers, health state, cache, and ranking
// options into one engine. The returned cleanup closes the cache.
func buildAggregator() (*aggregate.Aggregator, *provider.HealthTracker, func()) {
	initProviders()

	health := provider.NewHealthTracker(cfg.FailureThreshold)

	var store cache.Store
	cleanup := func() {}
	db, err := cache.Open(cfg.CacheDBPath)
	if err != nil {
		// A dead cache never blocks comparisons.
		log.Printf("cache unavailable, continuing without: %v", err)
	} else {
		store = db
		cleanup = func() { db.Close() }
	}

	floors := make(map[string]decimal.Decimal, len(cfg.CategoryFloors))
	for category, floor := range cfg.CategoryFloors {
		if d, err := decimal.NewFromString(floor); err == nil {
			floors[category] = d
		}
	}

	agg := aggregate.New(aggregate.Options{
		Providers:  provider.All(),
		Health:     health,
		Cache:      store,
		Normalizer: normalize.New(config.LogoTable()),
		TTLs: map[string]time.Duration{
			"priceapi":  cfg.PriceAPITTL,
			"shopsense": cfg.ShopSenseTTL,
			"marketly":  cfg.MarketlyTTL,
		},
		DefaultTTL:     cfg.DefaultTTL,
		Deadline:       cfg.OverallDeadline,
		CategoryFloors: floors,
	})

	return agg, health, cleanup
}
