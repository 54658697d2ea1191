package fetcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		url  string
		want Platform
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", PlatformYouTube},
		{"https://youtu.be/dQw4w9WgXcQ", PlatformYouTube},
		{"https://m.youtube.com/watch?v=x", PlatformYouTube},
		{"https://vimeo.com/76979871", PlatformVimeo},
		{"https://www.tiktok.com/@user/video/1", PlatformTikTok},
		{"https://www.instagram.com/reel/abc/", PlatformInstagram},
		{"https://x.com/user/status/1", PlatformTwitter},
		{"https://twitter.com/user/status/1", PlatformTwitter},
		{"https://rumble.com/v1-abc.html", PlatformRumble},
		{"https://www.dailymotion.com/video/x7", PlatformDailymotion},
		{"https://notyoutube.com/watch?v=x", PlatformOther},
		{"https://box.com/file", PlatformOther},
		{"::::", PlatformOther},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectPlatform(tt.url), tt.url)
	}
}
