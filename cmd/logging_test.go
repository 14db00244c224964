package cmd

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"wingo/config"
)

func TestConfigureLogging(t *testing.T) {
	t.Cleanup(func() {
		log.SetFormatter(&log.TextFormatter{})
		log.SetLevel(log.InfoLevel)
	})

	tests := []struct {
		name      string
		level     string
		format    string
		wantLevel log.Level
		wantJSON  bool
	}{
		{"json debug", "debug", "json", log.DebugLevel, true},
		{"text warn", "warn", "text", log.WarnLevel, false},
		{"unknown level", "chatty", "", log.InfoLevel, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewTestConfig()
			cfg.LogLevel = tt.level
			cfg.LogFormat = tt.format

			ConfigureLogging(cfg)

			assert.Equal(t, tt.wantLevel, log.GetLevel())
			_, isJSON := log.StandardLogger().Formatter.(*log.JSONFormatter)
			assert.Equal(t, tt.wantJSON, isJSON)
		})
	}
}
