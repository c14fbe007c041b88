package viewsync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransformRecordDegradationRisk(t *testing.T) {
	rec := Record{
		"id":               "r1",
		"total_risk_score": 61.2,
		"risk_factors":     "drought",
		"assessment_date":  "2025-01-01",
	}

	out := TransformRecord("degradation_risk", rec)

	assert.Equal(t, 61.2, out["risk_score"])
	assert.Equal(t, "drought", out["factors"])
	assert.Equal(t, "2025-01-01", out["created_at"])

	// originals remain alongside the aliases
	assert.Equal(t, 61.2, out["total_risk_score"])
	assert.Equal(t, "drought", out["risk_factors"])
}

func TestTransformRecordLandHealth(t *testing.T) {
	rec := Record{"id": "h1", "observation_date": "2025-02-03", "ndvi": 0.41}

	out := TransformRecord("land_health", rec)

	assert.Equal(t, "2025-02-03", out["created_at"])
	assert.Equal(t, "2025-02-03", out["updated_at"])
	assert.Equal(t, "2025-02-03", out["observation_date"])
}

func TestTransformRecordClimateData(t *testing.T) {
	rec := Record{"id": "c1", "temp_avg": 27.5, "precipitation": 3.2, "date": "2025-03-01"}

	out := TransformRecord("climate_data", rec)

	assert.Equal(t, 27.5, out["temperature"])
	assert.Equal(t, 3.2, out["rainfall"])
	assert.Equal(t, "2025-03-01", out["created_at"])
}

func TestTransformRecordNeverClobbers(t *testing.T) {
	rec := Record{"id": "c1", "temp_avg": 27.5, "temperature": 30.0}

	out := TransformRecord("climate_data", rec)

	assert.Equal(t, 30.0, out["temperature"])
	assert.Equal(t, 27.5, out["temp_avg"])
}

func TestTransformRecordMissingSourceColumn(t *testing.T) {
	rec := Record{"id": "c1"}

	out := TransformRecord("climate_data", rec)

	// alias stays unset rather than failing
	_, ok := out["temperature"]
	assert.False(t, ok)
}

func TestTransformRecordUnmappedTablePassesThrough(t *testing.T) {
	rec := Record{"id": "a1", "message": "hi"}

	out := TransformRecord("alerts", rec)

	assert.Equal(t, rec, out)
}

func TestTransformRecordNil(t *testing.T) {
	assert.Nil(t, TransformRecord("land_health", nil))
}

func TestTransformRecordDoesNotMutateInput(t *testing.T) {
	rec := Record{"id": "h1", "observation_date": "2025-02-03"}

	_ = TransformRecord("land_health", rec)

	_, ok := rec["created_at"]
	assert.False(t, ok)
}

func TestSourceTable(t *testing.T) {
	testCases := []struct {
		view  string
		table string
	}{
		{"health", "land_health"},
		{"risk", "degradation_risk"},
		{"climate_forecast", "climate_data"},
		{"weather_realtime", "climate_data"},
		{"alerts", "alerts"},
		{"recommendations", "recommendations"},
		{"custom_view", "custom_view"},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.table, SourceTable(tc.view))
	}
}
