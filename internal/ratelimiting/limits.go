package ratelimiting

import (
	"slices"

	"github.com/Amund211/lana/internal/config"
)

type Limits struct {
	PerMinute int64
	PerHour   int64
}

type LimitTable struct {
	endpoints map[string]Limits
	fallback  Limits
}

func NewLimitTable(endpoints map[string]Limits, fallback Limits) LimitTable {
	copied := make(map[string]Limits, len(endpoints))
	for endpoint, limits := range endpoints {
		copied[endpoint] = limits
	}
	return LimitTable{endpoints: copied, fallback: fallback}
}

// For returns the limits for endpoint, or the default limits
func (t LimitTable) For(endpoint string) Limits {
	if limits, ok := t.endpoints[endpoint]; ok {
		return limits
	}
	return t.fallback
}

var defaultLimits = Limits{PerMinute: 60, PerHour: 1000}

func ProductionLimits() LimitTable {
	return NewLimitTable(map[string]Limits{
		"/api/structured-lesson":        {PerMinute: 20, PerHour: 300},
		"/api/structured-lesson/stream": {PerMinute: 20, PerHour: 300},
		"/api/tts":                      {PerMinute: 15, PerHour: 150},
		"/api/solve-math":               {PerMinute: 30, PerHour: 400},
		"/api/social":                   {PerMinute: 50, PerHour: 500},
	}, defaultLimits)
}

func DevelopmentLimits() LimitTable {
	return NewLimitTable(map[string]Limits{
		"/api/structured-lesson":        {PerMinute: 30, PerHour: 500},
		"/api/structured-lesson/stream": {PerMinute: 30, PerHour: 500},
		"/api/tts":                      {PerMinute: 20, PerHour: 200},
		"/api/solve-math":               {PerMinute: 40, PerHour: 600},
		"/api/social":                   {PerMinute: 100, PerHour: 1000},
	}, defaultLimits)
}

// Staging shares the production limits
func LimitsFromConfig(conf config.Config) LimitTable {
	if conf.IsDevelopment() {
		return DevelopmentLimits()
	}
	return ProductionLimits()
}

var bypassedPaths = []string{"/health", "/api/health", "/docs", "/redoc", "/openapi.json"}

// IsBypassed reports whether path is exempt from rate limiting
func IsBypassed(path string) bool {
	return slices.Contains(bypassedPaths, path)
}
