package scoring

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCriteria(t *testing.T) {
	tests := []struct {
		name     string
		criteria []CriterionSpec
		wantErr  bool
	}{
		{"valid", costCarbon(), false},
		{"within tolerance", []CriterionSpec{
			{Name: "a", Orientation: Maximize, Weight: 0.3333},
			{Name: "b", Orientation: Maximize, Weight: 0.3333},
			{Name: "c", Orientation: Maximize, Weight: 0.3334},
		}, false},
		{"empty", nil, true},
		{"bad sum", []CriterionSpec{
			{Name: "a", Orientation: Maximize, Weight: 0.5},
			{Name: "b", Orientation: Maximize, Weight: 0.6},
		}, true},
		{"negative", []CriterionSpec{
			{Name: "a", Orientation: Maximize, Weight: -0.2},
			{Name: "b", Orientation: Maximize, Weight: 1.2},
		}, true},
		{"duplicate", []CriterionSpec{
			{Name: "a", Orientation: Maximize, Weight: 0.5},
			{Name: "a", Orientation: Minimize, Weight: 0.5},
		}, true},
		{"bad orientation", []CriterionSpec{
			{Name: "a", Orientation: "sideways", Weight: 1.0},
		}, true},
		{"nan", []CriterionSpec{
			{Name: "a", Orientation: Maximize, Weight: math.NaN()},
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCriteria(tt.criteria)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var wce *WeightConfigurationError
			assert.True(t, errors.As(err, &wce), "expected WeightConfigurationError, got %v", err)
		})
	}
}

func TestApplyWeights(t *testing.T) {
	base := []CriterionSpec{
		{Name: "cost", Orientation: Minimize},
		{Name: "recyclability", Orientation: Maximize},
	}

	t.Run("match", func(t *testing.T) {
		out, err := ApplyWeights(base, map[string]float64{"cost": 0.3, "recyclability": 0.7})
		require.NoError(t, err)
		assert.Equal(t, 0.3, out[0].Weight)
		assert.Equal(t, 0.7, out[1].Weight)
		assert.Zero(t, base[0].Weight, "input must not be modified")
	})

	t.Run("undeclared criterion", func(t *testing.T) {
		_, err := ApplyWeights(base, map[string]float64{"cost": 0.3, "recyclability": 0.6, "water": 0.1})
		var wce *WeightConfigurationError
		require.ErrorAs(t, err, &wce)
		assert.Equal(t, "water", wce.Criterion)
	})

	t.Run("missing weight", func(t *testing.T) {
		_, err := ApplyWeights(base, map[string]float64{"cost": 1.0})
		var wce *WeightConfigurationError
		require.ErrorAs(t, err, &wce)
		assert.Equal(t, "recyclability", wce.Criterion)
	})
}

func TestSumWeights(t *testing.T) {
	assert.InDelta(t, 1.0, SumWeights(costCarbon()), 1e-12)
	assert.Equal(t, []string{"cost", "carbon"}, CriterionNames(costCarbon()))
}
