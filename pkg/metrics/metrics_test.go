package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew_RegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.DispatchTotal.WithLabelValues("CONFIRM_ORDER", "SUCCESS").Inc()
	m.OutboxDeadTotal.Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("采集指标失败: %v", err)
	}
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{"integration_dispatch_total", "outbox_dead_total"} {
		if !names[want] {
			t.Errorf("缺少指标%s", want)
		}
	}
}

func TestNew_IndependentRegistries(t *testing.T) {
	a := NewNop()
	b := NewNop()

	a.BulkItemsTotal.WithLabelValues("confirm", "success").Inc()
	a.BulkItemsTotal.WithLabelValues("confirm", "success").Inc()

	if v := testutil.ToFloat64(a.BulkItemsTotal.WithLabelValues("confirm", "success")); v != 2 {
		t.Errorf("期望2，实际%f", v)
	}
	if v := testutil.ToFloat64(b.BulkItemsTotal.WithLabelValues("confirm", "success")); v != 0 {
		t.Errorf("不同Registry之间不应共享计数，实际%f", v)
	}
}

func TestResult(t *testing.T) {
	if Result(nil) != "success" {
		t.Error("nil应为success")
	}
	if Result(errors.New("x")) != "failure" {
		t.Error("非nil应为failure")
	}
}
