package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	androidWebView = "Mozilla/5.0 (Linux; Android 12; Pixel 6 Pro; wv) AppleWebKit/537.36 (KHTML, like Gecko) Version/4.0 Chrome/114.0.5735.196 Mobile Safari/537.36"
	androidChrome  = "Mozilla/5.0 (Linux; Android 12; Pixel 6 Pro) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.5735.196 Mobile Safari/537.36"
	iosWebView     = "Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Mobile/15E148"
	iosSafari      = "Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1"
	desktopChrome  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	googleBot      = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
)

func TestFromUserAgent(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		want string
	}{
		{"android webview", androidWebView, Android},
		{"android chrome tab", androidChrome, Web},
		{"ios webview", iosWebView, IOS},
		{"mobile safari", iosSafari, Web},
		{"desktop", desktopChrome, Web},
		{"bot", googleBot, Web},
		{"empty", "", Web},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromUserAgent(tt.ua))
		})
	}
}

func TestFromConfig(t *testing.T) {
	assert.True(t, FromConfig("android", "").IsNative())
	assert.True(t, FromConfig(" IOS ", "").IsNative())
	assert.False(t, FromConfig("web", androidWebView).IsNative())

	auto := FromConfig("auto", androidWebView)
	assert.True(t, auto.IsNative())
	assert.Equal(t, Android, auto.Platform())

	assert.False(t, FromConfig("auto", desktopChrome).IsNative())
}

func TestStaticIsStable(t *testing.T) {
	p := Static(true)
	for i := 0; i < 3; i++ {
		assert.True(t, p.IsNative())
	}
	assert.Equal(t, Web, Static(false).Platform())
}
