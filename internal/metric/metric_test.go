package metric

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"calgrid/internal/layout"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatal(err)
	}
	return m.GetCounter().GetValue()
}

func TestObserveDay(t *testing.T) {
	before := counterValue(t, DroppedEvents)
	ObserveDay(layout.DayLayout{Groups: []int{2, 1}, Dropped: 3})
	if got := counterValue(t, DroppedEvents) - before; got != 3 {
		t.Errorf("dropped counter grew by %v, want 3", got)
	}

	var m dto.Metric
	if err := GroupColumns.Write(&m); err != nil {
		t.Fatal(err)
	}
	if m.GetHistogram().GetSampleCount() < 2 {
		t.Errorf("histogram has %d samples, want at least 2", m.GetHistogram().GetSampleCount())
	}
}

func TestResult(t *testing.T) {
	if Result(nil) != "ok" || Result(errors.New("x")) != "error" {
		t.Error("unexpected result labels")
	}
}
