// Package sdk describes the native banner ad SDK reachable through the app
// shell's plugin bridge.
package sdk

import "context"

// BannerSDK is the native ad plugin surface. Every call may block on the
// native side and may fail independently of the others.
type BannerSDK interface {
	Initialize(ctx context.Context, opts InitOptions) error
	ShowBanner(ctx context.Context, opts BannerOptions) error
	HideBanner(ctx context.Context) error
	ResumeBanner(ctx context.Context) error
	RemoveBanner(ctx context.Context) error
}

// InitOptions mirrors the plugin's initialization options.
type InitOptions struct {
	TestingDevices       []string `json:"testingDevices"`
	InitializeForTesting bool     `json:"initializeForTesting"`
}

// BannerSize names a banner format understood by the plugin.
type BannerSize string

// BannerPosition anchors the banner on screen.
type BannerPosition string

const (
	SizeBanner BannerSize = "BANNER"

	PositionBottomCenter BannerPosition = "BOTTOM_CENTER"
	PositionTopCenter    BannerPosition = "TOP_CENTER"
)

// BannerOptions mirrors the plugin's showBanner options.
type BannerOptions struct {
	AdID      string         `json:"adId"`
	AdSize    BannerSize     `json:"adSize"`
	Position  BannerPosition `json:"position"`
	Margin    int            `json:"margin"`
	IsTesting bool           `json:"isTesting"`
}

// TestBannerAdUnit is Google's public test banner unit.
const TestBannerAdUnit = "ca-app-pub-3940256099942544/6300978111"

// Build-time configuration. These are not meant to be changed at runtime.
var (
	DefaultInitOptions = InitOptions{
		TestingDevices:       []string{"EMULATOR"},
		InitializeForTesting: true,
	}

	DefaultBannerOptions = BannerOptions{
		AdID:      TestBannerAdUnit,
		AdSize:    SizeBanner,
		Position:  PositionBottomCenter,
		Margin:    0,
		IsTesting: true,
	}
)

// Plugin method names as exposed by the bridge.
const (
	MethodInitialize   = "initialize"
	MethodShowBanner   = "showBanner"
	MethodHideBanner   = "hideBanner"
	MethodResumeBanner = "resumeBanner"
	MethodRemoveBanner = "removeBanner"
)
