package config

import (
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// AuctionSettings exposes the auto-extension window. A negative value means
// the setting is missing or unusable and disables extension.
type AuctionSettings interface {
	ExtensionMinutes() int
	ThresholdMinutes() int
}

// StaticSettings is a fixed AuctionSettings
type StaticSettings struct {
	Extension int
	Threshold int
}

func (s StaticSettings) ExtensionMinutes() int { return s.Extension }
func (s StaticSettings) ThresholdMinutes() int { return s.Threshold }

// DefaultSettings returns the documented defaults: extend by 10 minutes when
// a bid lands within 5 minutes of the end.
func DefaultSettings() StaticSettings {
	return StaticSettings{Extension: DefaultExtensionMinutes, Threshold: DefaultThresholdMinutes}
}

// Settings reads the auction keys from viper on every call, so edits picked up
// by WatchConfig or Set apply to the next bid without a restart.
type Settings struct {
	v *viper.Viper
}

// NewSettings wraps v
func NewSettings(v *viper.Viper) *Settings {
	return &Settings{v: v}
}

func (s *Settings) ExtensionMinutes() int {
	return s.minutes("auction.extension_minutes")
}

func (s *Settings) ThresholdMinutes() int {
	return s.minutes("auction.threshold_minutes")
}

func (s *Settings) minutes(key string) int {
	if s == nil || s.v == nil || !s.v.IsSet(key) {
		return -1
	}
	n, err := cast.ToIntE(s.v.Get(key))
	if err != nil {
		return -1
	}
	return n
}
