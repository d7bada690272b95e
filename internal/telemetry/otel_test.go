package telemetry_test

import (
	"testing"

	"github.com/Amund211/lana/internal/config"
	"github.com/Amund211/lana/internal/telemetry"
	"github.com/stretchr/testify/require"
)

func TestSetupOTelSDK(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		shutdown, err := telemetry.SetupOTelSDK(t.Context(), "lana-test", config.MetricsExporterNone)
		require.NoError(t, err)
		require.NoError(t, shutdown(t.Context()))
	})

	t.Run("stdout", func(t *testing.T) {
		shutdown, err := telemetry.SetupOTelSDK(t.Context(), "lana-test", config.MetricsExporterStdout)
		require.NoError(t, err)
		require.NoError(t, shutdown(t.Context()))
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := telemetry.SetupOTelSDK(t.Context(), "lana-test", config.MetricsExporter("carrier-pigeon"))
		require.Error(t, err)
	})
}
