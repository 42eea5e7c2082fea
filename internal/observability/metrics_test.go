package observability

import (
	"testing"
	"time"

	"github.com/simforge/extctl/internal/testutil/testlog"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)

	RegisterMetrics()
	RegisterMetrics()

	RecordCommand("get_time", 12*time.Millisecond, true)
	RecordCommand("run_for", 3*time.Millisecond, false)
	RecordHandshake(true)
	RecordConnection(false)
}
