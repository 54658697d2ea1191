package transcription

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nijaru/vidscribe/errors"
	"github.com/nijaru/vidscribe/fetcher"
	"github.com/nijaru/vidscribe/logger"
	"github.com/nijaru/vidscribe/models"
	"github.com/nijaru/vidscribe/validation"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetcher.Audio, error)
	FetchSubtitles(ctx context.Context, rawURL string) (*fetcher.Subtitles, error)
}

// Journal records how each request ended. It is never read back by the
// pipeline.
type Journal interface {
	Record(ctx context.Context, rec models.Record) error
}

// Archiver keeps a copy of successful results outside the process.
type Archiver interface {
	SaveTranscript(ctx context.Context, id string, result *models.TranscriptionResult) error
}

type Config struct {
	// Timeout bounds a whole request once it holds a worker slot. Zero
	// means no limit.
	Timeout time.Duration
	// MaxConcurrent caps simultaneous fetch+transcribe runs. Zero means
	// unbounded.
	MaxConcurrent int
	// PreferSubtitles tries the video's caption track before downloading
	// audio. Videos without captions still go through whisper.
	PreferSubtitles bool
}

type Service struct {
	fetcher Fetcher
	model   Transcriber
	journal Journal
	archive Archiver
	sem     *semaphore.Weighted
	config  Config

	pending sync.WaitGroup
}

type Option func(*Service)

func WithJournal(j Journal) Option {
	return func(s *Service) { s.journal = j }
}

func WithArchive(a Archiver) Option {
	return func(s *Service) { s.archive = a }
}

func NewService(f Fetcher, model Transcriber, cfg Config, opts ...Option) *Service {
	s := &Service{
		fetcher: f,
		model:   model,
		config:  cfg,
	}
	if cfg.MaxConcurrent > 0 {
		s.sem = semaphore.NewWeighted(int64(cfg.MaxConcurrent))
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Model() string {
	return s.model.Model()
}

// Transcribe runs the full pipeline for one URL: validate, fetch, then
// transcribe. The downloaded audio is removed before Transcribe returns,
// whatever the outcome.
func (s *Service) Transcribe(ctx context.Context, rawURL string) (result *models.TranscriptionResult, err error) {
	const op = "Service.Transcribe"
	start := time.Now()

	id := logger.RequestID(ctx)
	if id == "" {
		id = uuid.NewString()
		ctx = logger.WithRequestID(ctx, id)
	}
	log := logger.FromContext(ctx).WithField("url", rawURL)
	log.WithField("state", models.StateReceived).Debug("Transcription requested")

	normalized, err := validation.ValidateURL(rawURL)
	if err != nil {
		log.WithError(err).Info("Rejected request")
		return nil, err
	}
	platform := fetcher.DetectPlatform(normalized)
	log = log.WithField("platform", platform)

	defer func() {
		s.record(ctx, id, normalized, string(platform), result, err, time.Since(start))
	}()

	if s.sem != nil {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, errors.TimedOut(op, err)
			}
			return nil, errors.E(errors.KindInternal, op, err, "Request cancelled while waiting for a worker", http.StatusServiceUnavailable)
		}
		defer s.sem.Release(1)
	}

	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	if s.config.PreferSubtitles {
		subs, err := s.fetcher.FetchSubtitles(ctx, normalized)
		if err != nil {
			log.WithError(err).WithField("state", models.StateError).Warn("Subtitle fetch failed")
			return nil, err
		}
		if subs != nil {
			result = &models.TranscriptionResult{
				URL:        rawURL,
				Transcript: subs.Text,
				Status:     models.StatusSuccess,
				Platform:   string(platform),
				Source:     models.SourceSubtitles,
			}
			log.WithFields(logrus.Fields{
				"state":    models.StateResponding,
				"source":   models.SourceSubtitles,
				"language": subs.Language,
				"chars":    len(subs.Text),
				"duration": time.Since(start),
			}).Info("Transcription completed")

			if s.archive != nil {
				s.archiveResult(ctx, id, result)
			}
			return result, nil
		}
		log.Info("No subtitles available, transcribing audio")
	}

	log.WithField("state", models.StateFetching).Info("Fetching audio")
	audio, err := s.fetcher.Fetch(ctx, normalized)
	if err != nil {
		log.WithError(err).WithField("state", models.StateError).Warn("Fetch failed")
		return nil, err
	}
	defer func() {
		if cerr := audio.Close(); cerr != nil {
			log.WithError(cerr).WithField("dir", audio.Dir).Error("Failed to remove audio")
		}
	}()

	log.WithField("state", models.StateTranscribing).Info("Transcribing audio")
	text, err := s.model.Transcribe(ctx, audio.Path)
	if err != nil {
		if _, ok := errors.As(err); !ok {
			err = errors.Transcription(op, err, "Transcription failed")
		}
		log.WithError(err).WithField("state", models.StateError).Error("Transcription failed")
		return nil, err
	}

	result = &models.TranscriptionResult{
		URL:        rawURL,
		Transcript: text,
		Status:     models.StatusSuccess,
		Platform:   string(platform),
		Model:      s.model.Model(),
		Source:     models.SourceWhisper,
	}

	log.WithFields(logrus.Fields{
		"state":    models.StateResponding,
		"source":   models.SourceWhisper,
		"chars":    len(text),
		"duration": time.Since(start),
	}).Info("Transcription completed")

	if s.archive != nil {
		s.archiveResult(ctx, id, result)
	}
	return result, nil
}

// Close waits for in-flight archive uploads.
func (s *Service) Close() {
	s.pending.Wait()
}

func (s *Service) record(ctx context.Context, id, rawURL, platform string, result *models.TranscriptionResult, err error, elapsed time.Duration) {
	if s.journal == nil {
		return
	}

	rec := models.Record{
		ID:        id,
		URL:       rawURL,
		Platform:  platform,
		Model:     s.model.Model(),
		Duration:  elapsed,
		CreatedAt: time.Now().UTC(),
	}
	if err != nil {
		rec.Status = models.StatusFailure
		rec.Stage = string(errors.KindOf(err))
		rec.Error = errors.Message(err)
	} else {
		rec.Status = models.StatusSuccess
		rec.TranscriptChars = len(result.Transcript)
		rec.Source = result.Source
		rec.Model = result.Model
	}

	// The client may already be gone; the row is still worth writing.
	if jerr := s.journal.Record(context.WithoutCancel(ctx), rec); jerr != nil {
		logger.FromContext(ctx).WithError(jerr).Warn("Failed to write journal entry")
	}
}

func (s *Service) archiveResult(ctx context.Context, id string, result *models.TranscriptionResult) {
	log := logger.FromContext(ctx)
	ctx = context.WithoutCancel(ctx)

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		ctx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		if err := s.archive.SaveTranscript(ctx, id, result); err != nil {
			log.WithError(err).Warn("Failed to archive transcript")
			return
		}
		log.WithField("key", id).Debug("Transcript archived")
	}()
}
