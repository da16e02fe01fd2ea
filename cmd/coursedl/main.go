package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwygoda/coursedl/internal/adapter/fetch"
	httpAdapter "github.com/cwygoda/coursedl/internal/adapter/http"
	"github.com/cwygoda/coursedl/internal/adapter/jsonfile"
	"github.com/cwygoda/coursedl/internal/adapter/provider"
	"github.com/cwygoda/coursedl/internal/adapter/sqlite"
	"github.com/cwygoda/coursedl/internal/config"
	"github.com/cwygoda/coursedl/internal/domain"
	"github.com/cwygoda/coursedl/internal/logging"
	"github.com/cwygoda/coursedl/internal/orchestrator"
	log "github.com/sirupsen/logrus"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Errorf("coursedl: %v", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}
	if err := logging.Setup(cfg.Log.Level, cfg.Log.File); err != nil {
		return err
	}

	log.Infof("progress: %s (%s)", cfg.Progress.Path, cfg.Progress.Backend)
	log.Infof("download dir: %s", cfg.DownloadDir)

	store, closeStore, err := openStore(cfg.Progress)
	if err != nil {
		return err
	}
	defer closeStore()
	tracker := domain.NewProgressTracker(store)

	endpoints := provider.DefaultEndpoints.Override(provider.Endpoints{
		SitemapURL:  cfg.Provider.SitemapURL,
		CoursePath:  cfg.Provider.CoursePath,
		LoginURL:    cfg.Provider.LoginURL,
		LoginAction: cfg.Provider.LoginAction,
		MetadataURL: cfg.Provider.MetadataURL,
		QueryURL:    cfg.Provider.QueryURL,
	})
	opts := []provider.Option{provider.WithRateLimit(cfg.RequestsPerSecond)}
	if cfg.Provider.UserAgent != "" {
		opts = append(opts, provider.WithUserAgent(cfg.Provider.UserAgent))
	}
	sessions := provider.NewManager(endpoints, opts...)

	downloader, err := newDownloader(cfg.Downloader)
	if err != nil {
		return err
	}
	policy := domain.RetryPolicy{Attempts: cfg.RetryAttempts, Delay: cfg.RetryDelay}
	media := provider.MediaOptions{
		Quality:   cfg.Media.Quality,
		Locale:    cfg.Media.Locale,
		MediaType: cfg.Media.MediaType,
	}

	orch := orchestrator.New(orchestrator.Config{
		Username:      cfg.Username,
		Password:      cfg.Password,
		Domains:       cfg.Domains,
		DownloadDelay: cfg.DownloadDelay,
		CourseDelay:   cfg.CourseDelay,
		Retry:         policy,
		DownloadDir:   cfg.DownloadDir,
		Extension:     cfg.Media.MediaType,
	}, tracker, orchestrator.Services{
		Sessions: sessions,
		Catalog:  provider.NewCatalog(endpoints.SitemapURL, endpoints.CoursePath),
		Metadata: provider.NewMetadataFetcher(endpoints.MetadataURL),
		Locator:  provider.NewClipLocator(endpoints.QueryURL, media),
		Fetcher:  domain.NewDownloadManager(downloader, policy),
	})

	// Graceful shutdown setup
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			log.Warnf("received signal %v, saving progress", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if cfg.StatusAddr != "" {
		srv := httpAdapter.NewServer(tracker, cfg.StatusAddr)
		go func() {
			log.Infof("status server listening on %s", srv.Addr())
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("status server error: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warnf("status server shutdown error: %v", err)
			}
		}()
	}

	report, err := orch.Run(ctx)
	log.Info(report.String())
	return err
}

func openStore(pc config.ProgressConfig) (domain.ProgressStore, func(), error) {
	switch pc.Backend {
	case "sqlite":
		repo, err := sqlite.New(pc.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open progress database: %w", err)
		}
		return repo, func() { repo.Close() }, nil
	default:
		return jsonfile.New(pc.Path), func() {}, nil
	}
}

func newDownloader(dc config.DownloaderConfig) (domain.Downloader, error) {
	switch dc.Backend {
	case "command":
		d, err := fetch.NewCommandDownloader(dc.Command, dc.Args)
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		return fetch.NewHTTPDownloader(), nil
	}
}
