package corestate

import (
	"testing"

	"github.com/sharedcode/multipathd"
)

func numericRetry(n int) multipath.NoPathRetry {
	return multipath.NoPathRetry{Kind: multipath.NoPathRetryNumeric, N: n}
}

func TestEvaluateFailAlwaysOff(t *testing.T) {
	m := multipath.NewMap("W", "mpatha")
	m.NoPathRetry = multipath.NoPathRetry{Kind: multipath.NoPathRetryFail}
	if got := Evaluate(m, 3, 5); got != QueueOff {
		t.Fatalf("got %v, want QueueOff", got)
	}
}

func TestEvaluateQueueAlwaysOn(t *testing.T) {
	m := multipath.NewMap("W", "mpatha")
	m.NoPathRetry = multipath.NoPathRetry{Kind: multipath.NoPathRetryQueue}
	if got := Evaluate(m, 0, 5); got != QueueOn {
		t.Fatalf("got %v, want QueueOn", got)
	}
}

func TestEvaluateNumericEntersRecovery(t *testing.T) {
	m := multipath.NewMap("W", "mpatha")
	m.NoPathRetry = numericRetry(3)

	got := Evaluate(m, 0, 5)
	if got != QueueNoChange {
		t.Fatalf("got %v, want QueueNoChange on entering recovery", got)
	}
	if !m.InRecovery {
		t.Fatal("expected InRecovery = true")
	}
	if m.RetryTick != 16 {
		t.Fatalf("retry_tick = %d, want 3*5+1=16", m.RetryTick)
	}
	if m.Stats.QueueingTimeouts != 1 {
		t.Fatalf("QueueingTimeouts = %d, want 1", m.Stats.QueueingTimeouts)
	}
}

func TestEvaluateNumericActiveNotInRecovery(t *testing.T) {
	m := multipath.NewMap("W", "mpatha")
	m.NoPathRetry = numericRetry(3)

	if got := Evaluate(m, 2, 5); got != QueueOn {
		t.Fatalf("got %v, want QueueOn", got)
	}
	if m.InRecovery {
		t.Fatal("should not enter recovery while active > 0")
	}
}

func TestEvaluateRecoversToNormal(t *testing.T) {
	m := multipath.NewMap("W", "mpatha")
	m.NoPathRetry = numericRetry(3)
	m.InRecovery = true
	m.RetryTick = 10

	got := Evaluate(m, 2, 5)
	if got != QueueOn {
		t.Fatalf("got %v, want QueueOn", got)
	}
	if m.InRecovery {
		t.Fatal("expected InRecovery = false after recovery")
	}
	if m.RetryTick != 0 {
		t.Fatalf("retry_tick = %d, want 0", m.RetryTick)
	}
}

func TestTickExhaustion(t *testing.T) {
	m := multipath.NewMap("W", "mpatha")
	m.NoPathRetry = numericRetry(1)
	m.InRecovery = true
	m.RetryTick = 2

	exhausted, action := Tick(m)
	if exhausted || action != QueueNoChange {
		t.Fatalf("tick 1: got exhausted=%v action=%v", exhausted, action)
	}
	if m.RetryTick != 1 {
		t.Fatalf("retry_tick after first tick = %d, want 1", m.RetryTick)
	}

	exhausted, action = Tick(m)
	if !exhausted || action != QueueOff {
		t.Fatalf("tick 2: got exhausted=%v action=%v, want true/QueueOff", exhausted, action)
	}
	if m.InRecovery {
		t.Fatal("expected recovery to end on exhaustion")
	}
}

func TestTickNoOpWhenNotInRecovery(t *testing.T) {
	m := multipath.NewMap("W", "mpatha")
	exhausted, action := Tick(m)
	if exhausted || action != QueueNoChange {
		t.Fatalf("got exhausted=%v action=%v, want no-op", exhausted, action)
	}
}
