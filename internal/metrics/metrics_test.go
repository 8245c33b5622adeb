package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkoutCreated(t *testing.T) {
	m := NewTest()
	m.WorkoutCreated("running", 1)
	m.WorkoutCreated("running", 2)
	m.WorkoutCreated("cycling", 3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.WorkoutsCreated.WithLabelValues("running")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WorkoutsCreated.WithLabelValues("cycling")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SessionWorkouts))
}

func TestSubmissionRejected(t *testing.T) {
	m := NewTest()
	m.SubmissionRejected(ReasonInvalidInput)
	m.SubmissionRejected(ReasonInvalidInput)
	m.SubmissionRejected(ReasonNoPoint)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SubmissionsRejected.WithLabelValues(ReasonInvalidInput)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SubmissionsRejected.WithLabelValues(ReasonNoPoint)))
}

// TestNilMetrics verifies a nil receiver is safe to call.
func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.WorkoutCreated("running", 1)
		m.SubmissionRejected(ReasonStorage)
		m.ObserveRequest("GET", "/", 200, time.Millisecond)
	})
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := NewTest()
	m.WorkoutCreated("cycling", 1)
	m.ObserveRequest("POST", "/api/v1/workouts", 201, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `mapty_workouts_created_total{kind="cycling"} 1`)
	assert.Contains(t, string(body), `mapty_http_request_duration_seconds_count{method="POST",route="/api/v1/workouts",status="201"} 1`)
}
