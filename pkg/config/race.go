package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

var ErrInvalidSettings = errors.New("invalid race settings")

// RaceSettings are the race mode values the progress engine works with.
type RaceSettings struct {
	TotalLaps int  `mapstructure:"totalLaps" yaml:"totalLaps"`
	HasLaps   bool `mapstructure:"hasLaps" yaml:"hasLaps"`
	// max track length a kart may skip between two valid sectors
	ShortcutThreshold float64 `mapstructure:"shortcutThreshold" yaml:"shortcutThreshold"`
	// distance around the start line used to detect line crossings
	CrossingBand     float64 `mapstructure:"crossingBand" yaml:"crossingBand"`
	ToleranceFactor  float64 `mapstructure:"toleranceFactor" yaml:"toleranceFactor"`
	SearchWindow     int     `mapstructure:"searchWindow" yaml:"searchWindow"`
	HeightTolerance  float64 `mapstructure:"heightTolerance" yaml:"heightTolerance"`
	WrongWayMinSpeed float64 `mapstructure:"wrongWayMinSpeed" yaml:"wrongWayMinSpeed"`
}

func DefaultRaceSettings() RaceSettings {
	return RaceSettings{
		TotalLaps:         3,
		HasLaps:           true,
		ShortcutThreshold: 30,
		CrossingBand:      20,
		ToleranceFactor:   0.2,
		SearchWindow:      10,
		HeightTolerance:   1.5,
		WrongWayMinSpeed:  2,
	}
}

// LoadRaceSettings reads the values below the key "race" on top of the
// defaults.
func LoadRaceSettings(v *viper.Viper) (RaceSettings, error) {
	ret := DefaultRaceSettings()
	if v.IsSet("race") {
		if err := v.UnmarshalKey("race", &ret); err != nil {
			return ret, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
		}
	}
	return ret, ret.Validate()
}

func (s RaceSettings) Validate() error {
	switch {
	case s.HasLaps && s.TotalLaps < 1:
		return fmt.Errorf("%w: totalLaps must be positive, got %d",
			ErrInvalidSettings, s.TotalLaps)
	case s.ShortcutThreshold <= 0:
		return fmt.Errorf("%w: shortcutThreshold must be positive", ErrInvalidSettings)
	case s.CrossingBand <= 0:
		return fmt.Errorf("%w: crossingBand must be positive", ErrInvalidSettings)
	case s.ToleranceFactor < 0:
		return fmt.Errorf("%w: toleranceFactor must not be negative", ErrInvalidSettings)
	case s.SearchWindow < 1:
		return fmt.Errorf("%w: searchWindow must be at least 1", ErrInvalidSettings)
	case s.HeightTolerance < 0:
		return fmt.Errorf("%w: heightTolerance must not be negative", ErrInvalidSettings)
	}
	return nil
}
