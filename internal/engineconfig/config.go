package engineconfig

// Config는 가격 이력/예측 엔진의 튜닝 상수 전체
// 기본값은 운영 중인 휴리스틱과 동일하며, 파일은 선택 사항
type Config struct {
	Forecast  Forecast  `yaml:"forecast" json:"forecast"`
	Synth     Synth     `yaml:"synth" json:"synth"`
	Retention Retention `yaml:"retention" json:"retention"`
}

// Forecast 예측 산식 상수
type Forecast struct {
	MinPoints          int        `yaml:"min_points" json:"min_points"`                   // 이 미만이면 기준가 폴백
	Window             int        `yaml:"window" json:"window"`                           // 최근 N개 관측치
	TrendWindow        int        `yaml:"trend_window" json:"trend_window"`               // 앞/뒤 평균 구간 길이
	TrendFactor        float64    `yaml:"trend_factor" json:"trend_factor"`               // predicted = avg × (1 + f × trend)
	ClampLow           float64    `yaml:"clamp_low" json:"clamp_low"`                     // current × low
	ClampHigh          float64    `yaml:"clamp_high" json:"clamp_high"`                   // current × high
	FallbackConfidence int        `yaml:"fallback_confidence" json:"fallback_confidence"` // 데이터 부족 시 신뢰도
	Confidence         Confidence `yaml:"confidence" json:"confidence"`
}

// Confidence 신뢰도 산식
type Confidence struct {
	Base     float64 `yaml:"base" json:"base"`
	PerPoint float64 `yaml:"per_point" json:"per_point"`
	Min      float64 `yaml:"min" json:"min"`
	Max      float64 `yaml:"max" json:"max"`
}

// Synth 합성 가격 생성 상수
type Synth struct {
	BackfillDays   int     `yaml:"backfill_days" json:"backfill_days"`
	BackfillJitter float64 `yaml:"backfill_jitter" json:"backfill_jitter"` // ±5%
	DailyJitter    float64 `yaml:"daily_jitter" json:"daily_jitter"`       // ±2%
}

// Retention 보존 정책
type Retention struct {
	MaxEntries int `yaml:"max_entries" json:"max_entries"`
}

// Default returns the constants of the production heuristic
func Default() *Config {
	return &Config{
		Forecast: Forecast{
			MinPoints:          3,
			Window:             10,
			TrendWindow:        3,
			TrendFactor:        0.02,
			ClampLow:           0.85,
			ClampHigh:          1.15,
			FallbackConfidence: 80,
			Confidence: Confidence{
				Base:     90,
				PerPoint: 2,
				Min:      50,
				Max:      95,
			},
		},
		Synth: Synth{
			BackfillDays:   10,
			BackfillJitter: 0.05,
			DailyJitter:    0.02,
		},
		Retention: Retention{
			MaxEntries: 100000,
		},
	}
}
