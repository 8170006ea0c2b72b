// Package platform answers whether the app shell hosting adbridge can serve
// native ads. The answer is computed once and never changes for the life of
// the process.
package platform

import (
	"strings"

	"github.com/avct/uasurfer"
)

// Platform names reported for logging and metrics.
const (
	Android = "android"
	IOS     = "ios"
	Web     = "web"
)

// Probe reports native ad capability. Implementations must be pure and stable.
type Probe interface {
	IsNative() bool
	Platform() string
}

type staticProbe struct {
	name string
}

func (p staticProbe) IsNative() bool   { return p.name != Web }
func (p staticProbe) Platform() string { return p.name }

// Static returns a probe with a fixed answer. A native probe reports android.
func Static(native bool) Probe {
	if native {
		return staticProbe{name: Android}
	}
	return staticProbe{name: Web}
}

// FromConfig resolves the platform from the configured mode. "android",
// "ios" and "web" are taken literally; "auto" (or anything else) inspects
// the shell's User-Agent.
func FromConfig(mode, userAgent string) Probe {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case Android:
		return staticProbe{name: Android}
	case IOS:
		return staticProbe{name: IOS}
	case Web:
		return staticProbe{name: Web}
	default:
		return staticProbe{name: FromUserAgent(userAgent)}
	}
}

// FromUserAgent classifies a shell User-Agent. Only embedded webviews on
// Android or iOS count as native; a mobile browser tab has no ad SDK.
func FromUserAgent(ua string) string {
	if ua == "" {
		return Web
	}
	u := uasurfer.Parse(ua)
	if u.IsBot() {
		return Web
	}
	switch u.OS.Name {
	case uasurfer.OSAndroid:
		// Android System WebView marks itself with "; wv)"
		if strings.Contains(ua, "; wv)") {
			return Android
		}
	case uasurfer.OSiOS:
		// WKWebView omits the Safari/ product token that Mobile Safari sends
		if strings.Contains(ua, "AppleWebKit/") && !strings.Contains(ua, "Safari/") {
			return IOS
		}
	}
	return Web
}
