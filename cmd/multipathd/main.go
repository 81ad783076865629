// Command multipathd is the daemon entry point: it wires the bindings
// store, the checker/prio plugin registries, the core-state machine, the
// unix control socket, the persistent-reservation coordinator, and the
// supplemental status/metrics HTTP endpoints into a running process.
// There is no cmd/ package in the teacher repo (SharedCode/sop is a
// library, not a daemon), so this file's shape follows doc.go's own
// description of how the sibling packages compose plus logger.go's
// ConfigureLogging convention, rather than any single teacher file.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/sharedcode/multipathd"
	"github.com/sharedcode/multipathd/bindings"
	_ "github.com/sharedcode/multipathd/checker"
	"github.com/sharedcode/multipathd/control"
	"github.com/sharedcode/multipathd/corestate"
	"github.com/sharedcode/multipathd/metrics"
	_ "github.com/sharedcode/multipathd/prio"
	"github.com/sharedcode/multipathd/reservation"
	"github.com/sharedcode/multipathd/statusapi"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
)

var (
	socketPath   = flag.String("socket", "/var/run/multipathd.sock", "control socket path")
	pidFilePath  = flag.String("pidfile", "/var/run/multipathd.pid", "pid file path")
	bindingsFile = flag.String("bindings-file", "/etc/multipath/bindings", "bindings file path")
	aliasPrefix  = flag.String("alias-prefix", "mpath", "auto-generated alias prefix")
	prkeysFile   = flag.String("prkeys-file", "/etc/multipath/prkeys", "persistent reservation key file path")
	statusAddr   = flag.String("status-addr", "127.0.0.1:8081", "status API bind address")
	metricsAddr  = flag.String("metrics-addr", "127.0.0.1:9283", "Prometheus metrics bind address")
	lockDeadline = flag.Duration("lock-deadline", 5*time.Second, "control socket realtime lock-acquisition deadline")
)

func main() {
	flag.Parse()
	multipath.ConfigureLogging()

	if err := writePidFile(*pidFilePath); err != nil {
		slog.Error("failed to write pid file", "path", *pidFilePath, "err", err)
		os.Exit(1)
	}
	defer removePidFile(*pidFilePath)

	bindingsStore := bindings.New(*bindingsFile, *aliasPrefix)
	state := corestate.New(dmKernel{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if conflicts, err := bindingsStore.CheckAndRepair(ctx, nil); err != nil {
		slog.Error("bindings file repair failed", "err", err)
	} else if len(conflicts) > 0 {
		slog.Warn("bindings file had conflicting aliases", "aliases", conflicts)
	}

	prkeysStore := reservation.New(*prkeysFile)
	coordinator := reservation.NewCoordinator(&stateMapResolver{state: state}, prkeysStore)

	table := buildCommandTable(state, coordinator)
	ctlServer := control.NewServer(table, state, *lockDeadline)
	listener, err := ctlServer.Listen(*socketPath)
	if err != nil {
		slog.Error("failed to bind control socket", "path", *socketPath, "err", err)
		os.Exit(1)
	}
	go ctlServer.Serve(ctx, listener)
	defer ctlServer.Close()

	statusSrv := statusapi.NewServer(state, *statusAddr)
	go func() {
		if err := statusSrv.Serve(); err != nil {
			slog.Error("status API server stopped", "err", err)
		}
	}()

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	metricsSrv := newMetricsServer(*metricsAddr, registry)
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server stopped", "err", err)
		}
	}()
	go runMetricsRefreshLoop(ctx, state, collector)

	notifyReady()
	stopWatchdog := startWatchdogPinger(ctx)
	defer stopWatchdog()

	runSignalLoop(ctx, cancel, ctlServer)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = statusSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
}

// runMetricsRefreshLoop periodically snapshots every map's stats into
// collector. A dedicated poll loop is simpler than hooking every state
// mutation site (Sync, recovery.Evaluate/Tick) with metrics calls
// directly, at the cost of a few seconds of staleness, acceptable for a
// Prometheus scrape interval.
func runMetricsRefreshLoop(ctx context.Context, state *corestate.State, collector *metrics.Collector) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			state.RLock()
			state.Maps.ForEach(func(_ int, m *multipath.Map) bool {
				collector.ObserveMap(m.Alias, m.ActivePathCount(), m.InRecovery,
					m.Stats.QueueingTimeouts, m.Stats.MapFailures)
				return true
			})
			state.RUnlock()
		case <-ctx.Done():
			return
		}
	}
}

func newMetricsServer(addr string, registry *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}

func notifyReady() {
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		slog.Debug("sd_notify READY failed (not running under systemd?)", "err", err)
	}
}

// startWatchdogPinger pings systemd's watchdog at half the configured
// interval, per sd_watchdog_enabled(3)'s documented contract, and
// returns a func that stops the pinger.
func startWatchdogPinger(ctx context.Context) func() {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return func() {}
	}

	ticker := time.NewTicker(interval / 2)
	done := make(chan struct{})
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog); err != nil {
					slog.Warn("watchdog ping failed", "err", err)
				}
			case <-ctx.Done():
				return
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}

// runSignalLoop blocks until a terminating signal arrives on
// ctlServer.Signals (spec.md section 9's redesign note: signals as
// channel values, not handlers mutating flags), handling HUP/USR1 as
// configuration-reload triggers along the way.
func runSignalLoop(ctx context.Context, cancel context.CancelFunc, ctlServer *control.Server) {
	for {
		select {
		case sig := <-ctlServer.Signals:
			switch sig {
			case syscall.SIGHUP, syscall.SIGUSR1:
				slog.Info("reload requested", "signal", sig)
			case syscall.SIGINT, syscall.SIGTERM:
				slog.Info("shutting down", "signal", sig)
				cancel()
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
