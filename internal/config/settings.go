// Package config binds StreamSettings (spec.md §3) to viper so the
// cmd/streamclient CLI can source it from flags or an optional config
// file, the way helixml-helix wires its own settings. Environment
// variables are not bound.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// MouseScrollMode selects how wheel events are interpreted client-side
// before encoding (the encoding itself is mode-independent, see input).
type MouseScrollMode string

const (
	ScrollModeStandard MouseScrollMode = "standard"
	ScrollModeReversed MouseScrollMode = "reversed"
)

// MouseMode selects how local pointer movement translates to outbound
// mouse messages (spec.md §4.5).
type MouseMode string

const (
	MouseModeRelative     MouseMode = "relative"
	MouseModeFollow       MouseMode = "follow"
	MouseModePointAndDrag MouseMode = "pointAndDrag"
)

// TouchMode selects how touch input is interpreted (spec.md §4.5).
type TouchMode string

const (
	TouchModeTouch         TouchMode = "touch"
	TouchModeMouseRelative TouchMode = "mouseRelative"
	TouchModePointAndDrag  TouchMode = "pointAndDrag"
)

// ControllerConfig is the per-session gamepad remap/tuning block from
// spec.md §3.
type ControllerConfig struct {
	InvertAB      bool `mapstructure:"invert_ab"`
	InvertXY      bool `mapstructure:"invert_xy"`
	SendIntervalMS int `mapstructure:"send_interval_ms"`
}

// StreamSettings is the user-facing preference bundle from spec.md §3.
// It is persisted opaquely by an external collaborator (e.g. a config
// file on disk); this package only defines its shape and default values.
type StreamSettings struct {
	VideoWidth        int              `mapstructure:"video_width"`
	VideoHeight       int              `mapstructure:"video_height"`
	CodecPreference   string           `mapstructure:"codec_preference"`
	ForceCodec        bool             `mapstructure:"force_codec"`
	ForceCanvas       bool             `mapstructure:"force_canvas_renderer"`
	AudioPassThrough  bool             `mapstructure:"audio_pass_through"`
	MouseScrollMode   MouseScrollMode  `mapstructure:"mouse_scroll_mode"`
	MouseMode         MouseMode        `mapstructure:"mouse_mode"`
	TouchMode         TouchMode        `mapstructure:"touch_mode"`
	Controller        ControllerConfig `mapstructure:"controller"`
	SidebarEdge       string           `mapstructure:"sidebar_edge"`
	FullscreenKeybind string           `mapstructure:"fullscreen_keybind"`
}

// Defaults returns the baseline settings applied before any user overrides.
func Defaults() StreamSettings {
	return StreamSettings{
		VideoWidth:       1280,
		VideoHeight:      720,
		CodecPreference:  "h264",
		MouseScrollMode:  ScrollModeStandard,
		MouseMode:        MouseModeRelative,
		TouchMode:        TouchModeTouch,
		SidebarEdge:      "left",
		FullscreenKeybind: "F11",
	}
}

// Load reads StreamSettings from viper, seeding defaults first so a
// partially-populated config file or flag set still yields a valid result.
func Load(v *viper.Viper) (StreamSettings, error) {
	def := Defaults()
	v.SetDefault("video_width", def.VideoWidth)
	v.SetDefault("video_height", def.VideoHeight)
	v.SetDefault("codec_preference", def.CodecPreference)
	v.SetDefault("mouse_scroll_mode", string(def.MouseScrollMode))
	v.SetDefault("mouse_mode", string(def.MouseMode))
	v.SetDefault("touch_mode", string(def.TouchMode))
	v.SetDefault("sidebar_edge", def.SidebarEdge)
	v.SetDefault("fullscreen_keybind", def.FullscreenKeybind)

	var s StreamSettings
	if err := v.Unmarshal(&s); err != nil {
		return StreamSettings{}, fmt.Errorf("config: unmarshal stream settings: %w", err)
	}
	return s, nil
}
