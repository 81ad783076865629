// Package corestate implements the map state machine (C7): recovery
// mode transitions, adoption of newly discovered paths, and the
// three-stage kernel-sync procedure, all under one global reader/writer
// lock per spec.md section 5.
//
// Grounded on teacher common/two_phase_commit_transaction.go's staged
// phase/lock/commit shape for the sync-with-kernel procedure, and on
// transaction/transaction.go's minimal state-flag session for the
// recovery state machine's in_recovery/retry_tick bookkeeping.
package corestate

import (
	"log/slog"

	"github.com/sharedcode/multipathd"
)

// QueueAction is the kernel-facing side effect a recovery transition
// demands: toggling device-mapper's queue_if_no_path flag for the map's
// table. The kernel-collaborator boundary (Kerneler) applies it.
type QueueAction int

const (
	QueueNoChange QueueAction = iota
	QueueOn
	QueueOff
)

// Evaluate runs the transition table from spec.md section 4.7 for m
// given its current active path count and the checkint tunable (used to
// size retry_tick), mutating m's InRecovery/RetryTick/Stats fields and
// returning the queue_if_no_path action the caller must apply to the
// kernel table. Call this whenever a map's active path count changes.
func Evaluate(m *multipath.Map, active, checkint int) QueueAction {
	switch m.NoPathRetry.Kind {
	case multipath.NoPathRetryFail:
		return QueueOff
	case multipath.NoPathRetryQueue:
		return QueueOn
	case multipath.NoPathRetryNumeric:
		// fall through to the recovery-sensitive rules below
	default:
		return QueueNoChange
	}

	switch {
	case active > 0 && !m.InRecovery:
		return QueueOn

	case !m.InRecovery && active == 0:
		m.InRecovery = true
		m.RetryTick = m.NoPathRetry.N*checkint + 1
		m.Stats.QueueingTimeouts++
		slog.Warn("map entering recovery mode", "alias", m.Alias,
			"no_path_retry", m.NoPathRetry.N, "retry_tick", m.RetryTick)
		return QueueNoChange

	case m.InRecovery && active > 0:
		m.InRecovery = false
		m.RetryTick = 0
		slog.Info("map recovered to normal mode", "alias", m.Alias)
		return QueueOn
	}

	return QueueNoChange
}

// Tick decrements m's retry_tick by one, evaluated *before* comparing
// against zero so the first retry after entering recovery is not
// pre-empted (spec.md section 4.7's "+1 is intentional" note). Returns
// true and QueueOff once retry_tick reaches zero, signaling that
// queue_if_no_path must be handed to the kernel as off and outstanding
// I/O will fail.
func Tick(m *multipath.Map) (exhausted bool, action QueueAction) {
	if !m.InRecovery || m.RetryTick <= 0 {
		return false, QueueNoChange
	}
	m.RetryTick--
	if m.RetryTick == 0 {
		m.InRecovery = false
		slog.Warn("map retry_tick exhausted, failing queued I/O", "alias", m.Alias)
		return true, QueueOff
	}
	return false, QueueNoChange
}
