package engineconfig

import "fmt"

// ValidationError 설정 검증 실패
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks all required constraints
func Validate(cfg *Config) error {
	f := cfg.Forecast

	// === Forecast ===
	if f.MinPoints < 2 {
		// volatility는 연속 쌍이 최소 1개 필요
		return ValidationError{"forecast.min_points", "must be >= 2"}
	}
	if f.Window < f.MinPoints {
		return ValidationError{"forecast.window", "must be >= min_points"}
	}
	if f.TrendWindow < 1 || f.TrendWindow > f.MinPoints {
		return ValidationError{"forecast.trend_window", "must be in [1, min_points]"}
	}
	if f.ClampLow <= 0 || f.ClampLow > 1 {
		return ValidationError{"forecast.clamp_low", "must be in (0, 1]"}
	}
	if f.ClampHigh < 1 {
		return ValidationError{"forecast.clamp_high", "must be >= 1"}
	}
	if f.FallbackConfidence < 0 || f.FallbackConfidence > 100 {
		return ValidationError{"forecast.fallback_confidence", "must be in [0, 100]"}
	}
	if f.Confidence.Min > f.Confidence.Max {
		return ValidationError{"forecast.confidence", "min must be <= max"}
	}

	// === Synth ===
	if cfg.Synth.BackfillDays < 1 {
		return ValidationError{"synth.backfill_days", "must be >= 1"}
	}
	if cfg.Synth.BackfillJitter < 0 || cfg.Synth.BackfillJitter >= 1 {
		return ValidationError{"synth.backfill_jitter", "must be in [0, 1)"}
	}
	if cfg.Synth.DailyJitter < 0 || cfg.Synth.DailyJitter >= 1 {
		return ValidationError{"synth.daily_jitter", "must be in [0, 1)"}
	}

	// === Retention ===
	if cfg.Retention.MaxEntries < 1 {
		return ValidationError{"retention.max_entries", "must be >= 1"}
	}

	return nil
}
