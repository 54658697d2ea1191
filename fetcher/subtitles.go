package fetcher

import (
	"bytes"
	"context"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nijaru/vidscribe/errors"
	"github.com/nijaru/vidscribe/logger"
	"github.com/sirupsen/logrus"
)

// Subtitles is a caption track downloaded instead of audio.
type Subtitles struct {
	Text     string
	Language string
	Path     string
}

// FetchSubtitles asks yt-dlp for uploaded or automatic captions. A nil
// result with a nil error means the video has no usable track and the
// caller should fall back to audio. Only context errors are returned; any
// other failure is logged and treated as a miss.
func (f *Fetcher) FetchSubtitles(ctx context.Context, rawURL string) (*Subtitles, error) {
	const op = "Fetcher.FetchSubtitles"
	log := logger.FromContext(ctx).WithField("url", rawURL)

	dir, err := os.MkdirTemp(f.config.TempDir, "subs-"+uuid.NewString()+"-")
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to create download directory")
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			log.WithError(rmErr).WithField("dir", dir).Error("Failed to remove subtitle directory")
		}
	}()

	start := time.Now()
	cmd := execCommand(ctx, f.ytdlp, f.subtitleArgs(rawURL, dir)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if runErr := cmd.Run(); runErr != nil {
		if ctx.Err() != nil {
			return nil, contextError(op, ctx, "Download cancelled")
		}
		log.WithFields(logrus.Fields{
			"error":  runErr,
			"stderr": tail(stderr.String(), 2048),
		}).Info("Subtitle lookup failed, falling back to audio")
		return nil, nil
	}

	path, lang := pickSubtitle(dir)
	if path == "" {
		log.Debug("No subtitle track found")
		return nil, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		log.WithError(err).Warn("Failed to read subtitle file")
		return nil, nil
	}
	text := VTTToText(string(raw))
	if text == "" {
		log.WithField("language", lang).Debug("Subtitle track is empty")
		return nil, nil
	}

	log.WithFields(logrus.Fields{
		"language": lang,
		"chars":    len(text),
		"duration": time.Since(start),
	}).Info("Subtitles downloaded")

	return &Subtitles{Text: text, Language: lang, Path: path}, nil
}

func (f *Fetcher) subtitleArgs(rawURL, dir string) []string {
	langs := f.config.SubtitleLangs
	if langs == "" {
		langs = "en.*,en"
	}
	args := []string{
		"--skip-download",
		"--write-subs",
		"--write-auto-subs",
		"--sub-format", "vtt",
		"--sub-langs", langs,
		"--no-playlist",
		"--no-progress",
		"--output", filepath.Join(dir, "subs.%(ext)s"),
	}
	args = append(args, f.networkArgs()...)
	return append(args, "--", rawURL)
}

// pickSubtitle returns the first non-empty subs.<lang>.vtt in dir, in
// language order.
func pickSubtitle(dir string) (path, lang string) {
	matches, err := filepath.Glob(filepath.Join(dir, "subs.*.vtt"))
	if err != nil {
		return "", ""
	}
	sort.Strings(matches)
	for _, m := range matches {
		if fileExists(m) {
			name := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(m), "subs."), ".vtt")
			return m, name
		}
	}
	return "", ""
}

var (
	vttTag       = regexp.MustCompile(`<[^>]*>`)
	vttCueNumber = regexp.MustCompile(`^\d+$`)
)

// VTTToText strips WebVTT framing (header, cue timings, settings blocks,
// inline tags) and returns the spoken text on one line. Automatic captions
// repeat each line across rolling cues, so consecutive duplicates are
// dropped.
func VTTToText(vtt string) string {
	var (
		out      []string
		last     string
		skipping bool
	)

	vtt = strings.TrimPrefix(vtt, "\ufeff")
	lines := strings.Split(strings.ReplaceAll(vtt, "\r\n", "\n"), "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)

		switch {
		case line == "":
			skipping = false
			continue
		case skipping:
			continue
		case i == 0 && strings.HasPrefix(line, "WEBVTT"):
			skipping = true
			continue
		case strings.HasPrefix(line, "NOTE"), strings.HasPrefix(line, "STYLE"), strings.HasPrefix(line, "REGION"):
			skipping = true
			continue
		case strings.Contains(line, "-->"), vttCueNumber.MatchString(line):
			continue
		}

		text := strings.Join(strings.Fields(html.UnescapeString(vttTag.ReplaceAllString(line, ""))), " ")
		if text == "" || text == last {
			continue
		}
		out = append(out, text)
		last = text
	}

	return strings.Join(out, " ")
}
