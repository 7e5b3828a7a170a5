package shared

import (
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/rs/zerolog/log"
)

// Config is read from the environment. Backing stores and credentials are
// all optional: without them the service degrades to scraping-only,
// memory-only operation.
type Config struct {
	AppEnv      string `env:"APP_ENV" env-default:"prod"`
	HTTPAddr    string `env:"HTTP_ADDR" env-default:":8080"`
	MetricsAddr string `env:"METRICS_ADDR" env-default:":9100"`
	LogLevel    string `env:"LOG_LEVEL" env-default:"info"`

	MySQLDSN  string `env:"MYSQL_DSN" env-default:""`
	RedisAddr string `env:"REDIS_ADDR" env-default:""`
	RedisPass string `env:"REDIS_PASSWORD" env-default:""`
	RedisDB   int    `env:"REDIS_DB" env-default:"0"`
	CacheTTL  int    `env:"CACHE_TTL_SECONDS" env-default:"900"`

	YelpBaseURL      string `env:"YELP_BASE_URL" env-default:"https://api.yelp.com"`
	YelpAPIKey       string `env:"YELP_API_KEY" env-default:""`
	AmazonAccessKey  string `env:"AMAZON_ACCESS_KEY" env-default:""`
	AmazonSecretKey  string `env:"AMAZON_SECRET_KEY" env-default:""`
	AmazonPartnerTag string `env:"AMAZON_PARTNER_TAG" env-default:""`

	ScrapeRPS        int  `env:"SCRAPE_RPS" env-default:"2"`
	ScrapeTimeoutSec int  `env:"SCRAPE_TIMEOUT_SECONDS" env-default:"30"`
	SearchWorkers    int  `env:"SEARCH_WORKERS" env-default:"3"`
	SearchTimeoutSec int  `env:"SEARCH_TIMEOUT_SECONDS" env-default:"60"`
	BrowserEnabled   bool `env:"BROWSER_ENABLED" env-default:"true"`
}

func Load() Config {
	var c Config
	if err := cleanenv.ReadEnv(&c); err != nil {
		log.Fatal().Err(err).Msg("read config from environment")
	}
	if c.YelpAPIKey == "" {
		log.Warn().Msg("YELP_API_KEY is empty; yelp requests fall back to page scraping")
	}
	return c
}
