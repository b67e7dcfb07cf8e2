package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordFlowTransition(t *testing.T) {
	before := testutil.ToFloat64(flowTransitionsTotal.WithLabelValues("idle", "initiating"))

	RecordFlowTransition("idle", "initiating")

	assert.Equal(t, before+1, testutil.ToFloat64(flowTransitionsTotal.WithLabelValues("idle", "initiating")))
}

func TestRecordAttempt(t *testing.T) {
	before := testutil.ToFloat64(attemptsTotal.WithLabelValues("released"))

	RecordAttempt("released", 42*time.Second)

	assert.Equal(t, before+1, testutil.ToFloat64(attemptsTotal.WithLabelValues("released")))
	assert.Equal(t, 1, testutil.CollectAndCount(attemptDurationSeconds))
}

func TestRecordInitiation(t *testing.T) {
	before := testutil.ToFloat64(initiationsTotal.WithLabelValues("created"))

	RecordInitiation("created", 300*time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(initiationsTotal.WithLabelValues("created")))
}

func TestRecordPollAndError_EmptyLabels(t *testing.T) {
	beforePoll := testutil.ToFloat64(statusPollsTotal.WithLabelValues("unknown"))
	beforeErr := testutil.ToFloat64(errorsTotal.WithLabelValues("unknown", "unknown"))

	RecordPoll("")
	RecordError("", "")

	assert.Equal(t, beforePoll+1, testutil.ToFloat64(statusPollsTotal.WithLabelValues("unknown")))
	assert.Equal(t, beforeErr+1, testutil.ToFloat64(errorsTotal.WithLabelValues("unknown", "unknown")))
}
