package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nijaru/vidscribe/errors"
	"github.com/nijaru/vidscribe/logger"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	execCommand = exec.CommandContext
	lookPath    = exec.LookPath
)

type Config struct {
	YtDlpPath     string
	FFmpegPath    string
	AudioFormat   string
	SocketTimeout time.Duration
	UserAgent     string
	TempDir       string
	// SubtitleLangs is passed to --sub-langs when looking for captions.
	SubtitleLangs string
}

// Fetcher downloads the audio track of a video URL with yt-dlp.
type Fetcher struct {
	ytdlp  string
	ffmpeg string
	config Config
}

// New resolves yt-dlp and ffmpeg on PATH. A missing binary is a
// configuration error, reported here rather than on the first request.
func New(cfg Config) (*Fetcher, error) {
	if cfg.AudioFormat == "" {
		cfg.AudioFormat = "mp3"
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}

	ytdlp, err := lookPath(cfg.YtDlpPath)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "yt-dlp not found (%s)", cfg.YtDlpPath)
	}
	ffmpeg, err := lookPath(cfg.FFmpegPath)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "ffmpeg not found (%s)", cfg.FFmpegPath)
	}

	if err := os.MkdirAll(cfg.TempDir, 0o755); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to create temp directory")
	}

	return &Fetcher{ytdlp: ytdlp, ffmpeg: ffmpeg, config: cfg}, nil
}

// Audio is a downloaded audio file living in its own directory. The caller
// owns it and must Close it, which removes the directory.
type Audio struct {
	Path string
	Dir  string

	once sync.Once
	err  error
}

func (a *Audio) Close() error {
	a.once.Do(func() {
		if a.Dir != "" {
			a.err = os.RemoveAll(a.Dir)
		}
	})
	return a.err
}

// Fetch downloads the audio of rawURL into a fresh directory under the
// configured temp root. On error nothing is left on disk.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (audio *Audio, err error) {
	const op = "Fetcher.Fetch"
	log := logger.FromContext(ctx).WithField("url", rawURL)

	dir, err := os.MkdirTemp(f.config.TempDir, "fetch-"+uuid.NewString()+"-")
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to create download directory")
	}
	defer func() {
		if err != nil {
			if rmErr := os.RemoveAll(dir); rmErr != nil {
				log.WithError(rmErr).WithField("dir", dir).Error("Failed to remove download directory")
			}
		}
	}()

	start := time.Now()
	cmd := execCommand(ctx, f.ytdlp, f.args(rawURL, dir)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.WithField("dir", dir).Debug("Running yt-dlp")
	if runErr := cmd.Run(); runErr != nil {
		if ctx.Err() != nil {
			return nil, contextError(op, ctx, "Download cancelled")
		}
		reason, detail := classify(stderr.String())
		log.WithFields(logrus.Fields{
			"error":  runErr,
			"reason": reason,
			"stderr": tail(stderr.String(), 2048),
		}).Warn("yt-dlp failed")
		return nil, errors.Download(op, pkgerrors.New(detail), reason.Message())
	}

	path, err := f.locate(dir, stdout.String())
	if err != nil {
		return nil, errors.Download(op, err, ReasonNoAudio.Message())
	}

	log.WithFields(logrus.Fields{
		"path":     path,
		"duration": time.Since(start),
	}).Info("Audio downloaded")

	return &Audio{Path: path, Dir: dir}, nil
}

func (f *Fetcher) args(rawURL, dir string) []string {
	args := []string{
		"--format", "bestaudio/best",
		"--extract-audio",
		"--audio-format", f.config.AudioFormat,
		"--audio-quality", "192K",
		"--ffmpeg-location", f.ffmpeg,
		"--no-playlist",
		"--no-progress",
		"--no-simulate",
		"--print", "after_move:filepath",
		"--output", filepath.Join(dir, "audio.%(ext)s"),
	}
	args = append(args, f.networkArgs()...)
	return append(args, "--", rawURL)
}

func (f *Fetcher) networkArgs() []string {
	var args []string
	if f.config.SocketTimeout > 0 {
		args = append(args, "--socket-timeout", fmt.Sprintf("%d", int(f.config.SocketTimeout.Seconds())))
	}
	if f.config.UserAgent != "" {
		args = append(args, "--user-agent", f.config.UserAgent)
	}
	return args
}

// contextError reports why ctx ended. A deadline is the service's own
// timeout, not a problem with the URL.
func contextError(op string, ctx context.Context, cancelled string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.TimedOut(op, ctx.Err())
	}
	return errors.Download(op, ctx.Err(), cancelled)
}

// locate finds the converted file: yt-dlp prints its final path, and the
// output template pins the base name in case that line is missing.
func (f *Fetcher) locate(dir, stdout string) (string, error) {
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if last := strings.TrimSpace(lines[len(lines)-1]); last != "" {
		if filepath.Dir(last) == dir && fileExists(last) {
			return last, nil
		}
	}

	expected := filepath.Join(dir, "audio."+f.config.AudioFormat)
	if fileExists(expected) {
		return expected, nil
	}

	matches, err := filepath.Glob(filepath.Join(dir, "audio.*"))
	if err != nil {
		return "", err
	}
	for _, m := range matches {
		if fileExists(m) {
			return m, nil
		}
	}
	return "", fmt.Errorf("no audio file produced in %s", dir)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Size() > 0
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
