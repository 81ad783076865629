// Package multipath defines the core domain types, errors, and small
// shared helpers used across the multipathd control-plane packages:
// the Path/PathGroup/Map data model, the UUID wrapper, the error
// taxonomy, and the ordered-vector container that the grouping and
// core-state packages build on.
//
// Concrete subsystems live in sibling packages: bindings (alias/WWID
// persistence), checker and prio (pluggable health/priority
// registries), config (layered tunable resolution), grouping (path
// partitioning policies), corestate (the map state machine), control
// (the unix control socket and event loop), and reservation
// (persistent-reservation fan-out). cmd/multipathd wires all of them
// into a daemon.
//
// This package is a foundation other components build upon; it is not
// meant to be used directly by end users.
package multipath

// Timeout model
//
// Blocking operations (checker probes, prioritizer calls, kernel ioctls,
// control-socket lock acquisition) are bounded by two timers:
//  1. The caller-provided context deadline/cancellation, which propagates
//     across subsystems.
//  2. An operation-specific maximum duration (checker timeout, uxsock_timeout,
//     no_path_retry-derived retry window) used as an internal safety limit.
//
// The effective deadline is the earlier of the context deadline and the
// operation's own maximum. Retry/failover classification (retry.go,
// failover.go) is errno-based so it composes with either timer.
