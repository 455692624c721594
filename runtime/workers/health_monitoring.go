package workers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"chat-relay/domain/event"

	"github.com/shirou/gopsutil/process"
)

// HealthMonitoringWorker samples the relay's own process at a fixed interval.
type HealthMonitoringWorker struct {
	log            *slog.Logger
	telemetryChan  chan<- event.Event
	metricInterval time.Duration
	pid            int32
}

func NewHealthMonitoringWorker(
	log *slog.Logger,
	telemetryChan chan<- event.Event,
	metricInterval time.Duration,
) *HealthMonitoringWorker {
	return &HealthMonitoringWorker{
		log:            log,
		telemetryChan:  telemetryChan,
		metricInterval: metricInterval,
		pid:            int32(os.Getpid()),
	}
}

func (w *HealthMonitoringWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(w.pid)
	if err != nil {
		return fmt.Errorf("unable to track process %d: %w", w.pid, err)
	}

	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping health sampling")
			return nil
		case <-ticker.C:
			stats, err := sample(p)
			if err != nil {
				w.log.Warn("Unable to sample process", "pid", w.pid, "err", err)
				continue
			}
			select {
			case w.telemetryChan <- event.New(event.ProcessStatsType, stats):
			default:
				w.log.Debug("Telemetry channel full, process stats lost")
			}
		}
	}
}

// sample retrieves technical metrics (Memory, CPU, and OS Status) for the given process.
func sample(p *process.Process) (event.ProcessStats, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return event.ProcessStats{}, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return event.ProcessStats{}, err
	}
	status, err := p.Status()
	if err != nil {
		return event.ProcessStats{}, err
	}
	return event.ProcessStats{
		PID:        p.Pid,
		Status:     toStatus(status),
		CPUPercent: cpuPercent,
		RSSBytes:   memInfo.RSS,
	}, nil
}

func toStatus(status string) string {
	switch status {
	case "R":
		return "running"
	case "S":
		return "sleeping"
	case "D":
		return "waiting"
	case "T":
		return "stopped"
	case "Z":
		return "zombie"
	case "I":
		return "idle"
	default:
		return status
	}
}
