package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"review_scraper/internal/adapters/fetch"
	server "review_scraper/internal/adapters/http_server"
	"review_scraper/internal/adapters/observability"
	redisad "review_scraper/internal/adapters/redis"
	"review_scraper/internal/adapters/yelp"
	"review_scraper/internal/analyzer"
	"review_scraper/internal/app"
	"review_scraper/internal/domain"
	"review_scraper/internal/shared"
	mysqlrepo "review_scraper/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// mysql is optional; without it the latest snapshot lives in memory and
	// redis only
	var store domain.RunStore
	if cfg.MySQLDSN != "" {
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("sql.Open failed")
		}
		if err := db.Ping(); err != nil {
			log.Fatal().Err(err).Msg("db.Ping failed")
		}
		defer db.Close()
		log.Info().Msg("database connection ok")
		store = mysqlrepo.New(db)
	} else {
		log.Warn().Msg("MYSQL_DSN is empty; scrape runs are not persisted")
	}

	// redis is optional too; an unreachable server downgrades to no cache
	var cache domain.Cache
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer rc.Close()
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := rc.Ping(pingCtx)
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("redis unreachable; continuing without cache")
		} else {
			cache = rc
			log.Info().Msg("redis connection ok")
		}
	}

	var yelpAPI domain.YelpAPI
	if cfg.YelpAPIKey != "" {
		yc, err := yelp.New(cfg.YelpBaseURL, cfg.YelpAPIKey, 5)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize Yelp client")
		}
		yelpAPI = yc
	}
	if cfg.AmazonAccessKey == "" || cfg.AmazonSecretKey == "" || cfg.AmazonPartnerTag == "" {
		log.Info().Msg("amazon product api credentials absent; amazon reviews come from scraping")
	}

	client, err := fetch.NewClient(cfg.ScrapeRPS, time.Duration(cfg.ScrapeTimeoutSec)*time.Second)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize fetch client")
	}
	var browser *fetch.Browser
	if cfg.BrowserEnabled {
		browser = fetch.NewBrowser()
		defer browser.Close()
	}
	scraper := fetch.NewScraper(client, browser)

	scrapeSvc := app.NewScrapeService(scraper, yelpAPI, store, cache, cfg.CacheTTL)
	searchSvc := app.NewSearchService(scraper, analyzer.New(), cache, cfg.CacheTTL, cfg.SearchWorkers, cfg.SearchTimeoutSec)

	// http
	srv := server.New()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Scrape: scrapeSvc, Search: searchSvc})

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	// the refresh loop may still be mid-pass; wait for it
	scrapeSvc.Close()
}
