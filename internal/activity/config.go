package activity

import "time"

// Config holds the defaults for built-in games.
type Config struct {
	Breathing      BreathingConfig
	CountingTarget int
}

func DefaultConfig() Config {
	return Config{
		Breathing:      DefaultBreathingConfig(),
		CountingTarget: 5,
	}
}

// BreathingConfig sets the pacer rhythm. A zero Hold skips the hold phase.
type BreathingConfig struct {
	Inhale time.Duration
	Hold   time.Duration
	Exhale time.Duration
	Cycles int
}

func DefaultBreathingConfig() BreathingConfig {
	return BreathingConfig{
		Inhale: 4 * time.Second,
		Hold:   4 * time.Second,
		Exhale: 6 * time.Second,
		Cycles: 3,
	}
}

// Override applies per-page settings (seconds and cycle count).
func (c BreathingConfig) Override(settings map[string]any) BreathingConfig {
	if len(settings) == 0 {
		return c
	}
	c.Cycles = intSetting(settings, "cycles", c.Cycles)
	c.Inhale = secondsSetting(settings, "inhaleSeconds", c.Inhale)
	c.Hold = secondsSetting(settings, "holdSeconds", c.Hold)
	c.Exhale = secondsSetting(settings, "exhaleSeconds", c.Exhale)
	return c
}

func secondsSetting(settings map[string]any, key string, fallback time.Duration) time.Duration {
	switch v := settings[key].(type) {
	case float64:
		if v >= 0 {
			return time.Duration(v * float64(time.Second))
		}
	case int:
		if v >= 0 {
			return time.Duration(v) * time.Second
		}
	}
	return fallback
}
