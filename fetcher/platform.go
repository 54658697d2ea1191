package fetcher

import (
	"net/url"
	"strings"
)

type Platform string

const (
	PlatformYouTube     Platform = "youtube"
	PlatformVimeo       Platform = "vimeo"
	PlatformTikTok      Platform = "tiktok"
	PlatformInstagram   Platform = "instagram"
	PlatformTwitter     Platform = "twitter"
	PlatformRumble      Platform = "rumble"
	PlatformDailymotion Platform = "dailymotion"
	PlatformOther       Platform = "other"
)

var platformHosts = []struct {
	platform Platform
	domains  []string
}{
	{PlatformYouTube, []string{"youtube.com", "youtu.be", "youtube-nocookie.com"}},
	{PlatformVimeo, []string{"vimeo.com"}},
	{PlatformTikTok, []string{"tiktok.com"}},
	{PlatformInstagram, []string{"instagram.com"}},
	{PlatformTwitter, []string{"twitter.com", "x.com"}},
	{PlatformRumble, []string{"rumble.com"}},
	{PlatformDailymotion, []string{"dailymotion.com", "dai.ly"}},
}

// SupportedPlatforms lists the platforms reported by the health endpoint.
// yt-dlp handles many more; these are the ones recognised by name.
func SupportedPlatforms() []string {
	return []string{
		"YouTube",
		"Vimeo",
		"TikTok",
		"Instagram",
		"Twitter/X",
		"Rumble",
		"DailyMotion",
		"And 1000+ more",
	}
}

// DetectPlatform classifies rawURL by host. Subdomains match their parent
// domain, so m.youtube.com is YouTube but notyoutube.com is not.
func DetectPlatform(rawURL string) Platform {
	u, err := url.Parse(rawURL)
	if err != nil {
		return PlatformOther
	}
	host := strings.ToLower(u.Hostname())

	for _, p := range platformHosts {
		for _, domain := range p.domains {
			if host == domain || strings.HasSuffix(host, "."+domain) {
				return p.platform
			}
		}
	}
	return PlatformOther
}
