package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var pb dto.Metric
	require.NoError(t, m.Write(&pb))
	if pb.Counter != nil {
		return pb.GetCounter().GetValue()
	}
	return pb.GetGauge().GetValue()
}

func TestRecordRun(t *testing.T) {
	m := New()

	m.RecordRun("packaging", OutcomeCompleted, 20*time.Millisecond, 10, 3)
	m.RecordRun("packaging", OutcomeCompleted, 10*time.Millisecond, 5, 0)
	m.RecordRun("packaging", OutcomeFailed, time.Millisecond, 7, 7)

	assert.Equal(t, 2.0, value(t, m.RunsTotal.WithLabelValues("packaging", OutcomeCompleted)))
	assert.Equal(t, 1.0, value(t, m.RunsTotal.WithLabelValues("packaging", OutcomeFailed)))
	assert.Equal(t, 15.0, value(t, m.CandidatesScored.WithLabelValues("packaging")))
	assert.Equal(t, 3.0, value(t, m.CandidatesFailing.WithLabelValues("packaging")))
}

func TestRecordAdvisorFit(t *testing.T) {
	m := New()
	m.RecordAdvisorFit("circularity", OutcomeCompleted, 0.0125)
	m.RecordAdvisorFit("circularity", OutcomeFailed, 0)

	assert.Equal(t, 0.0125, value(t, m.AdvisorCVError.WithLabelValues("circularity")))
	assert.Equal(t, 1.0, value(t, m.AdvisorFits.WithLabelValues("circularity", OutcomeFailed)))
}

func TestInstancesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.RecordRun("lifecycle", OutcomeCompleted, time.Millisecond, 1, 0)

	assert.Equal(t, 1.0, value(t, a.RunsTotal.WithLabelValues("lifecycle", OutcomeCompleted)))
	assert.Equal(t, 0.0, value(t, b.RunsTotal.WithLabelValues("lifecycle", OutcomeCompleted)))

	families, err := a.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
