package cache

import (
	"time"

	"github.com/Amund211/lana/internal/config"
)

type Namespace string

const (
	NamespaceLessons Namespace = "lessons"
	NamespaceTTS     Namespace = "tts"
	NamespaceHistory Namespace = "history"
	NamespacePopular Namespace = "popular"
	NamespaceMath    Namespace = "math"
)

var Namespaces = []Namespace{
	NamespaceLessons,
	NamespaceTTS,
	NamespaceHistory,
	NamespacePopular,
	NamespaceMath,
}

type NamespaceConfig struct {
	TTL     time.Duration
	MaxSize int
}

func DefaultNamespaceConfigs() map[Namespace]NamespaceConfig {
	return map[Namespace]NamespaceConfig{
		NamespaceLessons: {TTL: 7200 * time.Second, MaxSize: 1000},
		NamespaceTTS:     {TTL: 3600 * time.Second, MaxSize: 500},
		NamespaceHistory: {TTL: 300 * time.Second, MaxSize: 100},
		NamespacePopular: {TTL: 86400 * time.Second, MaxSize: 50},
		NamespaceMath:    {TTL: 1800 * time.Second, MaxSize: 200},
	}
}

// NamespaceConfigsFromConfig applies the configured overrides on top of the defaults
func NamespaceConfigsFromConfig(conf config.Config) map[Namespace]NamespaceConfig {
	namespaces := DefaultNamespaceConfigs()
	for name, override := range conf.NamespaceOverrides() {
		ns := Namespace(name)
		nsConfig, ok := namespaces[ns]
		if !ok {
			continue
		}
		if override.TTL > 0 {
			nsConfig.TTL = override.TTL
		}
		if override.MaxSize > 0 {
			nsConfig.MaxSize = override.MaxSize
		}
		namespaces[ns] = nsConfig
	}
	return namespaces
}
