package fetcher

import (
	"strings"
)

// Reason is the coarse cause of a failed download, derived from yt-dlp's
// error output.
type Reason string

const (
	ReasonUnsupported   Reason = "unsupported"
	ReasonGeoRestricted Reason = "geo_restricted"
	ReasonUnavailable   Reason = "unavailable"
	ReasonUnreachable   Reason = "unreachable"
	ReasonNoAudio       Reason = "no_audio"
	ReasonUnknown       Reason = "unknown"
)

func (r Reason) Message() string {
	switch r {
	case ReasonUnsupported:
		return "Download failed: unsupported platform or URL"
	case ReasonGeoRestricted:
		return "Download failed: content is geo-restricted"
	case ReasonUnavailable:
		return "Download failed: video is unavailable"
	case ReasonUnreachable:
		return "Download failed: URL is unreachable"
	case ReasonNoAudio:
		return "Download failed: no audio track found"
	default:
		return "Download failed"
	}
}

var reasonPatterns = []struct {
	reason   Reason
	patterns []string
}{
	{ReasonUnsupported, []string{"unsupported url", "no suitable extractor"}},
	{ReasonGeoRestricted, []string{"geo restrict", "geo-restrict", "not available in your country", "not available from your location"}},
	{ReasonNoAudio, []string{"requested format is not available", "no audio", "does not contain any audio", "audio conversion failed"}},
	{ReasonUnavailable, []string{"video unavailable", "private video", "has been removed", "is not a valid url", "incomplete youtube id", "http error 404", "http error 410"}},
	{ReasonUnreachable, []string{"unable to download webpage", "failed to resolve", "name or service not known", "connection refused", "timed out", "network is unreachable"}},
}

// classify maps yt-dlp stderr to a Reason and returns the most relevant
// error line for the client.
func classify(stderr string) (Reason, string) {
	detail := errorLine(stderr)
	lower := strings.ToLower(stderr)

	for _, rp := range reasonPatterns {
		for _, p := range rp.patterns {
			if strings.Contains(lower, p) {
				return rp.reason, detail
			}
		}
	}
	return ReasonUnknown, detail
}

func errorLine(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if strings.HasPrefix(line, "ERROR:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "ERROR:"))
		}
	}
	if last := strings.TrimSpace(lines[len(lines)-1]); last != "" {
		return last
	}
	return "yt-dlp exited with an error"
}
