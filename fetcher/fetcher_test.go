package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nijaru/vidscribe/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHelperProcess stands in for yt-dlp. It is only active when re-invoked
// by fakeExecCommand.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	defer os.Exit(0)

	args := os.Args
	for i, arg := range args {
		if arg == "--" {
			args = args[i+1:]
			break
		}
	}

	var output string
	for i, arg := range args {
		if arg == "--output" && i+1 < len(args) {
			output = args[i+1]
		}
	}

	switch os.Getenv("FAKE_YTDLP_MODE") {
	case "success":
		path := strings.Replace(output, "%(ext)s", "mp3", 1)
		if err := os.WriteFile(path, []byte("ID3 fake audio"), 0o644); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		fmt.Println(path)
	case "partial":
		// writes a file, then fails
		path := strings.Replace(output, "%(ext)s", "webm", 1)
		_ = os.WriteFile(path, []byte("partial"), 0o644)
		fmt.Fprintln(os.Stderr, "ERROR: [youtube] invalid000: Video unavailable")
		os.Exit(1)
	case "unsupported":
		fmt.Fprintln(os.Stderr, "ERROR: Unsupported URL: https://example.com/page")
		os.Exit(1)
	case "geo":
		fmt.Fprintln(os.Stderr, "ERROR: [vimeo] 123: This video is not available from your location due to geo restriction")
		os.Exit(1)
	case "subs":
		path := strings.Replace(output, "%(ext)s", "en.vtt", 1)
		if err := os.WriteFile(path, []byte(sampleVTT), 0o644); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	case "silent-success":
		// exits cleanly without producing a file
	default:
		fmt.Fprintln(os.Stderr, "ERROR: something odd")
		os.Exit(1)
	}
}

const sampleVTT = `WEBVTT
Kind: captions
Language: en

00:00:00.000 --> 00:00:02.000 align:start position:0%
Never gonna <c>give</c> you up

00:00:02.000 --> 00:00:04.000
Never gonna give you up

00:00:04.000 --> 00:00:06.000
never gonna let you down &amp; run around
`

func fakeExecCommand(mode string) func(ctx context.Context, name string, args ...string) *exec.Cmd {
	return func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cs := append([]string{"-test.run=TestHelperProcess", "--", name}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "FAKE_YTDLP_MODE="+mode)
		return cmd
	}
}

func newTestFetcher(t *testing.T, mode string) (*Fetcher, string) {
	t.Helper()

	origExec, origLook := execCommand, lookPath
	t.Cleanup(func() { execCommand, lookPath = origExec, origLook })

	execCommand = fakeExecCommand(mode)
	lookPath = func(file string) (string, error) { return "/usr/bin/" + file, nil }

	tempDir := t.TempDir()
	f, err := New(Config{
		YtDlpPath:  "yt-dlp",
		FFmpegPath: "ffmpeg",
		TempDir:    tempDir,
	})
	require.NoError(t, err)
	return f, tempDir
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp root should be empty")
}

func TestNew_MissingBinary(t *testing.T) {
	origLook := lookPath
	t.Cleanup(func() { lookPath = origLook })

	lookPath = func(file string) (string, error) {
		if file == "ffmpeg" {
			return "", exec.ErrNotFound
		}
		return "/usr/bin/" + file, nil
	}

	_, err := New(Config{YtDlpPath: "yt-dlp", FFmpegPath: "ffmpeg", TempDir: t.TempDir()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ffmpeg not found")
}

func TestFetch_Success(t *testing.T) {
	f, tempDir := newTestFetcher(t, "success")

	audio, err := f.Fetch(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	require.NoError(t, err)

	assert.Equal(t, "audio.mp3", filepath.Base(audio.Path))
	assert.Equal(t, tempDir, filepath.Dir(audio.Dir))
	assert.FileExists(t, audio.Path)

	require.NoError(t, audio.Close())
	assert.NoDirExists(t, audio.Dir)
	assert.NoError(t, audio.Close(), "Close is idempotent")
	assertEmptyDir(t, tempDir)
}

func TestFetch_UniqueDirectories(t *testing.T) {
	f, _ := newTestFetcher(t, "success")

	a, err := f.Fetch(context.Background(), "https://vimeo.com/1")
	require.NoError(t, err)
	defer a.Close()
	b, err := f.Fetch(context.Background(), "https://vimeo.com/1")
	require.NoError(t, err)
	defer b.Close()

	assert.NotEqual(t, a.Dir, b.Dir)
}

func TestFetch_Failures(t *testing.T) {
	tests := []struct {
		mode    string
		message string
	}{
		{"partial", ReasonUnavailable.Message()},
		{"unsupported", ReasonUnsupported.Message()},
		{"geo", ReasonGeoRestricted.Message()},
		{"silent-success", ReasonNoAudio.Message()},
		{"other", ReasonUnknown.Message()},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			f, tempDir := newTestFetcher(t, tt.mode)

			audio, err := f.Fetch(context.Background(), "https://www.youtube.com/watch?v=invalid000")
			require.Error(t, err)
			assert.Nil(t, audio)

			appErr, ok := errors.As(err)
			require.True(t, ok)
			assert.Equal(t, errors.KindDownload, appErr.Kind)
			assert.Equal(t, http.StatusUnprocessableEntity, appErr.Code)
			assert.Equal(t, tt.message, appErr.Message)

			assertEmptyDir(t, tempDir)
		})
	}
}

func TestFetch_CancelledContext(t *testing.T) {
	f, tempDir := newTestFetcher(t, "success")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Fetch(ctx, "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	require.Error(t, err)
	assert.Equal(t, errors.KindDownload, errors.KindOf(err))
	assertEmptyDir(t, tempDir)
}

func TestFetch_DeadlineIsTimeout(t *testing.T) {
	f, tempDir := newTestFetcher(t, "success")

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := f.Fetch(ctx, "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	require.Error(t, err)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.KindInternal, appErr.Kind)
	assert.Equal(t, http.StatusGatewayTimeout, appErr.Code)
	assert.Equal(t, "Transcription timed out", appErr.Message)
	assertEmptyDir(t, tempDir)
}

func TestFetchSubtitles_Found(t *testing.T) {
	f, tempDir := newTestFetcher(t, "subs")

	subs, err := f.FetchSubtitles(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	require.NoError(t, err)
	require.NotNil(t, subs)
	assert.Equal(t, "en", subs.Language)
	assert.Equal(t, "Never gonna give you up never gonna let you down & run around", subs.Text)
	assertEmptyDir(t, tempDir)
}

func TestFetchSubtitles_Missing(t *testing.T) {
	for _, mode := range []string{"silent-success", "unsupported"} {
		t.Run(mode, func(t *testing.T) {
			f, tempDir := newTestFetcher(t, mode)

			subs, err := f.FetchSubtitles(context.Background(), "https://vimeo.com/1")
			require.NoError(t, err)
			assert.Nil(t, subs)
			assertEmptyDir(t, tempDir)
		})
	}
}

func TestSubtitleArgs(t *testing.T) {
	f := &Fetcher{ytdlp: "/usr/bin/yt-dlp", config: Config{SubtitleLangs: "de"}}
	args := f.subtitleArgs("https://example.com/v", "/tmp/x")

	assert.Equal(t, []string{"--", "https://example.com/v"}, args[len(args)-2:])
	for _, flag := range []string{"--skip-download", "--write-subs", "--write-auto-subs", "vtt", "de", "/tmp/x/subs.%(ext)s"} {
		assert.Contains(t, args, flag)
	}
}

func TestVTTToText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"rolling captions", sampleVTT, "Never gonna give you up never gonna let you down & run around"},
		{"cue numbers and notes", "\ufeffWEBVTT\r\n\r\nNOTE made by hand\r\nstill a note\r\n\r\n1\r\n00:00.000 --> 00:01.000\r\n<v Speaker>Hello</v>\r\n\r\n2\r\n00:01.000 --> 00:02.000\r\nworld\r\n", "Hello world"},
		{"header only", "WEBVTT\n\n", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VTTToText(tt.in))
		})
	}
}

func TestArgs(t *testing.T) {
	f := &Fetcher{ytdlp: "/usr/bin/yt-dlp", ffmpeg: "/usr/bin/ffmpeg", config: Config{AudioFormat: "wav"}}
	args := f.args("https://example.com/v", "/tmp/x")

	assert.Equal(t, []string{"--", "https://example.com/v"}, args[len(args)-2:])
	assert.Contains(t, args, "/usr/bin/ffmpeg")
	assert.Contains(t, args, "wav")
	assert.Contains(t, args, "/tmp/x/audio.%(ext)s")
	assert.NotContains(t, args, "--socket-timeout")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		stderr string
		reason Reason
		detail string
	}{
		{"WARNING: x\nERROR: Unsupported URL: https://a.b", ReasonUnsupported, "Unsupported URL: https://a.b"},
		{"ERROR: [youtube] abc: Video unavailable. This video is private", ReasonUnavailable, "[youtube] abc: Video unavailable. This video is private"},
		{"ERROR: [generic] Unable to download webpage: <urlopen error [Errno -2] Name or service not known>", ReasonUnreachable, "[generic] Unable to download webpage: <urlopen error [Errno -2] Name or service not known>"},
		{"ERROR: [youtube] abc: Requested format is not available", ReasonNoAudio, "[youtube] abc: Requested format is not available"},
		{"Traceback...\nKeyError: 'x'", ReasonUnknown, "KeyError: 'x'"},
		{"", ReasonUnknown, "yt-dlp exited with an error"},
	}

	for _, tt := range tests {
		reason, detail := classify(tt.stderr)
		assert.Equal(t, tt.reason, reason, tt.stderr)
		assert.Equal(t, tt.detail, detail, tt.stderr)
	}
}
