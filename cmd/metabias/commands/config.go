package commands

import (
	"time"

	"metabias/lib/configutil"
	"metabias/lib/reviewstore"
	"metabias/lib/scrapers/metacritic"
	"metabias/services/ingestion"
)

type Config struct {
	StorePath           string `json:"store_path"`
	ScrapeDelaySeconds  int    `json:"scrape_delay_seconds"`
	FetchTimeoutSeconds int    `json:"fetch_timeout_seconds"`
	RetryAttempts       int    `json:"retry_attempts"`
	RetryDelaySeconds   int    `json:"retry_delay_seconds"`
}

var defaultConfig = Config{
	StorePath:           "metacritic_db.csv",
	ScrapeDelaySeconds:  3,
	FetchTimeoutSeconds: 30,
	RetryAttempts:       3,
	RetryDelaySeconds:   3,
}

func loadConfig() (Config, error) {
	return configutil.ReadConfigOr("config.json5", defaultConfig)
}

func newIngestionService(cfg Config) ingestion.Service {
	client := metacritic.NewClient(metacritic.ClientOptions{
		Timeout: time.Duration(cfg.FetchTimeoutSeconds) * time.Second,
		Retry: metacritic.RetryPolicy{
			MaxAttempts: cfg.RetryAttempts,
			Delay:       time.Duration(cfg.RetryDelaySeconds) * time.Second,
		},
	})
	return ingestion.NewService(ingestion.Options{
		Store:       reviewstore.New(cfg.StorePath),
		Fetcher:     client,
		ScrapeDelay: time.Duration(cfg.ScrapeDelaySeconds) * time.Second,
	})
}
