package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nijaru/vidscribe/config"
	"github.com/nijaru/vidscribe/db"
	"github.com/nijaru/vidscribe/fetcher"
	"github.com/nijaru/vidscribe/handlers"
	"github.com/nijaru/vidscribe/logger"
	"github.com/nijaru/vidscribe/storage"
	"github.com/nijaru/vidscribe/transcription"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	log, err := logger.New(logger.Options{
		Level: cfg.LogLevel,
		Dir:   cfg.LogDir,
		Debug: cfg.Debug,
	})
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize logger")
	}

	f, err := fetcher.New(fetcher.Config{
		YtDlpPath:     cfg.Fetcher.YtDlpPath,
		FFmpegPath:    cfg.Fetcher.FFmpegPath,
		AudioFormat:   cfg.Fetcher.AudioFormat,
		SocketTimeout: cfg.Fetcher.SocketTimeout,
		UserAgent:     cfg.Fetcher.UserAgent,
		TempDir:       cfg.TempDir,
		SubtitleLangs: cfg.Fetcher.SubtitleLangs,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize fetcher")
	}

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	model, err := transcription.NewModel(rootCtx, cfg.Whisper, cfg.Fetcher.FFmpegPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to load transcription model")
	}
	log.WithFields(logrus.Fields{
		"backend": cfg.Whisper.Backend,
		"model":   model.Model(),
	}).Info("Transcription model ready")

	var (
		serviceOpts []transcription.Option
		serverOpts  = []handlers.ServerOption{handlers.WithLogger(log)}
	)

	if cfg.Database.Path != "" {
		journal, err := db.Open(cfg.Database.Path, cfg.Database.MaxConnections)
		if err != nil {
			log.WithError(err).Fatal("Failed to initialize database")
		}
		defer func() {
			if err := journal.Close(); err != nil {
				log.WithError(err).Error("Failed to close database")
			}
		}()
		serviceOpts = append(serviceOpts, transcription.WithJournal(journal))
		serverOpts = append(serverOpts, handlers.WithJournal(journal))

		if cfg.Database.Retention > 0 {
			go pruneJournal(rootCtx, log, journal, cfg.Database.Retention)
		}
	}

	if cfg.Spaces.Enabled() {
		spaces, err := storage.NewSpacesClient(rootCtx, cfg.Spaces)
		if err != nil {
			log.WithError(err).Fatal("Failed to initialize Spaces client")
		}
		serviceOpts = append(serviceOpts, transcription.WithArchive(spaces))
		log.WithField("bucket", cfg.Spaces.Bucket).Info("Archiving transcripts")
	}

	svc := transcription.NewService(f, model, transcription.Config{
		Timeout:         cfg.TranscribeTimeout,
		MaxConcurrent:   cfg.MaxConcurrentJobs,
		PreferSubtitles: cfg.Fetcher.PreferSubtitles,
	}, serviceOpts...)

	server := handlers.NewServer(cfg, svc, serverOpts...)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Received shutdown signal")
	case err := <-errCh:
		log.WithError(err).Error("Server failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server shutdown failed")
	}
	stop()
	svc.Close()

	log.Info("Server stopped")
}

func pruneJournal(ctx context.Context, log *logrus.Logger, journal *db.Journal, retention time.Duration) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		n, err := journal.Prune(ctx, time.Now().Add(-retention))
		if err != nil {
			log.WithError(err).Warn("Failed to prune journal")
		} else if n > 0 {
			log.WithField("removed", n).Info("Pruned journal")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
