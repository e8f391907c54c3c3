package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"chat-server/contract"
	"github.com/shirou/gopsutil/process"
)

// HealthMonitoringWorker periodically logs technical metrics for the
// server process (CPU, RSS) together with live chat figures (open
// connections, rooms). Purely observational: it never touches room
// state and a failed probe only skips one tick.
type HealthMonitoringWorker struct {
	log      *slog.Logger
	interval time.Duration
	conns    contract.ConnTracker
	registry contract.IRoomRegistry
}

func NewHealthMonitoringWorker(
	log *slog.Logger,
	interval time.Duration,
	conns contract.ConnTracker,
	registry contract.IRoomRegistry,
) *HealthMonitoringWorker {
	return &HealthMonitoringWorker{
		log:      log,
		interval: interval,
		conns:    conns,
		registry: registry,
	}
}

func (w *HealthMonitoringWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping health monitoring")
			return nil
		case <-ticker.C:
			cpu, err := p.CPUPercent()
			if err != nil {
				w.log.Error("Error while finding process cpu usage", "err", err)
				continue
			}
			memInfo, err := p.MemoryInfo()
			if err != nil {
				w.log.Error("Error while finding process memory usage", "err", err)
				continue
			}
			w.log.Info("Server health",
				"cpu_percent", cpu,
				"rss_bytes", memInfo.RSS,
				"connections", w.conns.ActiveConnections(),
				"rooms", w.registry.Count(),
			)
		}
	}
}
