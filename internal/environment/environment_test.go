package environment

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRoundTripsString(t *testing.T) {
	for _, e := range []Environment{Local, Staging, Beta, Production} {
		parsed, ok := Parse(e.String())
		require.True(t, ok)
		require.Equal(t, e, parsed)
	}
}

func TestParseUnknownDefaultsToLocal(t *testing.T) {
	parsed, ok := Parse("not-an-environment")
	require.False(t, ok)
	require.Equal(t, Local, parsed)
}

func TestLocalDisablesAnalytics(t *testing.T) {
	require.False(t, Local.AnalyticsEnabled())
	require.Empty(t, Local.AnalyticsMeasurementID())
}

func TestStagingAndBetaEnableAnalytics(t *testing.T) {
	require.True(t, Staging.AnalyticsEnabled())
	require.True(t, Beta.AnalyticsEnabled())
	require.NotEmpty(t, Staging.AnalyticsAPISecret())
	require.NotEmpty(t, Beta.AnalyticsAPISecret())
}
