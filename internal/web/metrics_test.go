package web

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestParseMetricsLabels(t *testing.T) {
	labels, err := ParseMetricsLabels("service=user-service,env=dev")
	require.NoError(t, err)
	require.Equal(t, prometheus.Labels{"service": "user-service", "env": "dev"}, labels)
}

func TestParseMetricsLabels_Empty(t *testing.T) {
	labels, err := ParseMetricsLabels("")
	require.NoError(t, err)
	require.Nil(t, labels)
}

func TestParseMetricsLabels_ExpandsEnv(t *testing.T) {
	t.Setenv("TEST_POD_NAME", "pod-7")
	labels, err := ParseMetricsLabels("pod=${TEST_POD_NAME}")
	require.NoError(t, err)
	require.Equal(t, prometheus.Labels{"pod": "pod-7"}, labels)
}

func TestParseMetricsLabels_Invalid(t *testing.T) {
	for _, s := range []string{"novalue", "9bad=key", "with-dash=x"} {
		_, err := ParseMetricsLabels(s)
		require.Error(t, err, "expected %q to be rejected", s)
	}
}
