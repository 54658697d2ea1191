package transcription

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/nijaru/vidscribe/config"
	"github.com/nijaru/vidscribe/errors"
	"github.com/nijaru/vidscribe/logger"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	execCommand = exec.CommandContext
	lookPath    = exec.LookPath
)

// Model sizes accepted by the whisper command line tool.
var cliModels = map[string]bool{
	"tiny": true, "tiny.en": true,
	"base": true, "base.en": true,
	"small": true, "small.en": true,
	"medium": true, "medium.en": true,
	"large": true, "large-v1": true, "large-v2": true, "large-v3": true,
	"large-v3-turbo": true, "turbo": true,
}

// CLIModel runs the local whisper executable. Each call is a separate
// whisper process, so weights are loaded per request from the cache under
// ModelDir; the warm-up in NewCLIModel fills that cache and proves the
// variant loads before the server accepts traffic.
type CLIModel struct {
	binary   string
	model    string
	modelDir string
	language string
}

// NewCLIModel resolves whisper, then transcribes one second of silence
// generated with ffmpeg. Any failure there is a startup error.
func NewCLIModel(ctx context.Context, cfg config.WhisperConfig, ffmpegPath string) (*CLIModel, error) {
	if !cliModels[cfg.Model] {
		return nil, pkgerrors.Errorf("unsupported whisper model %q", cfg.Model)
	}

	binary := cfg.Binary
	if binary == "" {
		binary = "whisper"
	}
	path, err := lookPath(binary)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "whisper not found (%s)", binary)
	}

	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	ffmpeg, err := lookPath(ffmpegPath)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "ffmpeg not found (%s)", ffmpegPath)
	}

	if cfg.ModelDir != "" {
		if err := os.MkdirAll(cfg.ModelDir, 0o755); err != nil {
			return nil, pkgerrors.Wrap(err, "failed to create model directory")
		}
	}

	m := &CLIModel{
		binary:   path,
		model:    cfg.Model,
		modelDir: cfg.ModelDir,
		language: cfg.Language,
	}
	if err := m.warmUp(ctx, ffmpeg); err != nil {
		return nil, pkgerrors.Wrapf(err, "whisper model %q warm-up failed", cfg.Model)
	}
	return m, nil
}

func (m *CLIModel) warmUp(ctx context.Context, ffmpeg string) error {
	dir, err := os.MkdirTemp("", "whisper-warmup-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	clip := filepath.Join(dir, "silence.wav")
	cmd := execCommand(ctx, ffmpeg,
		"-hide_banner", "-loglevel", "error",
		"-f", "lavfi", "-i", "anullsrc=r=16000:cl=mono",
		"-t", "1", "-y", clip,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return pkgerrors.Wrapf(err, "generating silent clip: %s", lastLine(stderr.String()))
	}

	start := time.Now()
	if _, err := m.Transcribe(ctx, clip); err != nil {
		return err
	}
	logger.FromContext(ctx).WithFields(logrus.Fields{
		"model":    m.model,
		"duration": time.Since(start),
	}).Info("Whisper model warmed up")
	return nil
}

func (m *CLIModel) Model() string {
	return m.model
}

// Transcribe writes whisper's text output next to the audio file, so it is
// removed along with the request's directory.
func (m *CLIModel) Transcribe(ctx context.Context, audioPath string) (string, error) {
	const op = "CLIModel.Transcribe"
	log := logger.FromContext(ctx).WithField("model", m.model)

	outDir := filepath.Dir(audioPath)
	start := time.Now()

	cmd := execCommand(ctx, m.binary, m.args(audioPath, outDir)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", contextError(op, ctx)
		}
		log.WithFields(logrus.Fields{
			"error":  err,
			"stderr": lastLine(stderr.String()),
		}).Error("whisper failed")
		return "", errors.Transcription(op, pkgerrors.New(lastLine(stderr.String())), "Transcription failed")
	}

	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	content, err := os.ReadFile(filepath.Join(outDir, base+".txt"))
	if err != nil {
		return "", errors.Transcription(op, err, "Transcription produced no output")
	}

	text := normalizeText(string(content))
	log.WithFields(logrus.Fields{
		"chars":    len(text),
		"duration": time.Since(start),
	}).Info("Audio transcribed")

	return text, nil
}

func (m *CLIModel) args(audioPath, outDir string) []string {
	args := []string{
		audioPath,
		"--model", m.model,
		"--output_format", "txt",
		"--output_dir", outDir,
		"--verbose", "False",
		"--fp16", "False",
	}
	if m.modelDir != "" {
		args = append(args, "--model_dir", m.modelDir)
	}
	if m.language != "" {
		args = append(args, "--language", m.language)
	}
	return args
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if last := strings.TrimSpace(lines[len(lines)-1]); last != "" {
		return last
	}
	return "whisper exited with an error"
}
