package transcription

import (
	"context"
	"fmt"
	"strings"

	"github.com/nijaru/vidscribe/config"
	"github.com/nijaru/vidscribe/errors"
)

// Transcriber turns an audio file into text. Implementations are built once
// at startup and shared by every request.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
	Model() string
}

// NewModel builds the backend selected by cfg.Backend. The cli backend
// needs ffmpeg for its warm-up run.
func NewModel(ctx context.Context, cfg config.WhisperConfig, ffmpegPath string) (Transcriber, error) {
	switch cfg.Backend {
	case "", "cli":
		return NewCLIModel(ctx, cfg, ffmpegPath)
	case "openai":
		return NewOpenAIModel(cfg)
	default:
		return nil, fmt.Errorf("unknown whisper backend %q", cfg.Backend)
	}
}

// normalizeText collapses runs of whitespace, including the line breaks
// whisper inserts between segments, into single spaces.
func normalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func contextError(op string, ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.TimedOut(op, ctx.Err())
	}
	return errors.Transcription(op, ctx.Err(), "Transcription cancelled")
}
