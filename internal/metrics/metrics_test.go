package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsLint(t *testing.T) {
	EvaluationsTotal.WithLabelValues("squats", OutcomeSuccess).Add(0)
	UploadsRejectedTotal.WithLabelValues("missing_input").Add(0)

	problems, err := testutil.CollectAndLint(EvaluationsTotal)
	require.NoError(t, err)
	assert.Empty(t, problems)

	problems, err = testutil.CollectAndLint(UploadsRejectedTotal)
	require.NoError(t, err)
	assert.Empty(t, problems)

	problems, err = testutil.CollectAndLint(CleanupFailuresTotal)
	require.NoError(t, err)
	assert.Empty(t, problems)
}

func TestCounterIncrements(t *testing.T) {
	before := testutil.ToFloat64(CleanupFailuresTotal)
	CleanupFailuresTotal.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(CleanupFailuresTotal))

	c := EvaluationsTotal.WithLabelValues("pushups", OutcomeTimeout)
	before = testutil.ToFloat64(c)
	c.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(c))
}
