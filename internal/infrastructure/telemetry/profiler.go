package telemetry

import (
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/grafana/pyroscope-go"
	"go.uber.org/zap"
)

// ProfilerConfig holds Pyroscope configuration
type ProfilerConfig struct {
	Enabled         bool
	ServerAddress   string // e.g. http://pyroscope:4040
	ApplicationName string
	// Tags are attached to every profile; HOSTNAME and POD_NAME are added
	// from the environment when set.
	Tags map[string]string
	// Contention enables mutex and block profiles. They add runtime
	// overhead proportional to the sampling rate.
	Contention     bool
	ContentionRate int // 5 when zero
}

// Profiler owns a running Pyroscope session
type Profiler struct {
	profiler *pyroscope.Profiler
	logger   *zap.Logger
	enabled  bool
	once     sync.Once
}

// NewProfiler starts continuous profiling. A disabled config yields a
// profiler whose Stop is a no-op.
func NewProfiler(cfg ProfilerConfig, logger *zap.Logger) (*Profiler, error) {
	p := &Profiler{logger: logger}
	if !cfg.Enabled {
		logger.Info("Continuous profiling disabled")
		return p, nil
	}
	if cfg.ServerAddress == "" || cfg.ApplicationName == "" {
		return nil, fmt.Errorf("profiler requires server address and application name")
	}

	types := []pyroscope.ProfileType{
		pyroscope.ProfileCPU,
		pyroscope.ProfileAllocObjects,
		pyroscope.ProfileAllocSpace,
		pyroscope.ProfileInuseObjects,
		pyroscope.ProfileInuseSpace,
		pyroscope.ProfileGoroutines,
	}
	if cfg.Contention {
		rate := cfg.ContentionRate
		if rate <= 0 {
			rate = 5
		}
		runtime.SetMutexProfileFraction(rate)
		runtime.SetBlockProfileRate(rate)
		types = append(types,
			pyroscope.ProfileMutexCount,
			pyroscope.ProfileMutexDuration,
			pyroscope.ProfileBlockCount,
			pyroscope.ProfileBlockDuration,
		)
	}

	prof, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.ApplicationName,
		ServerAddress:   cfg.ServerAddress,
		Logger:          pyroscopeLogger{logger.Named("pyroscope").Sugar()},
		Tags:            profileTags(cfg.Tags),
		ProfileTypes:    types,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start pyroscope profiler: %w", err)
	}
	p.profiler = prof
	p.enabled = true

	logger.Info("Pyroscope profiler started",
		zap.String("server_address", cfg.ServerAddress),
		zap.String("application_name", cfg.ApplicationName),
		zap.Bool("contention", cfg.Contention),
	)
	return p, nil
}

func profileTags(extra map[string]string) map[string]string {
	tags := make(map[string]string, len(extra)+2)
	for k, v := range extra {
		tags[k] = v
	}
	if host := os.Getenv("HOSTNAME"); host != "" {
		tags["hostname"] = host
	}
	if pod := os.Getenv("POD_NAME"); pod != "" {
		tags["pod"] = pod
	}
	return tags
}

// IsEnabled reports whether profiles are being uploaded
func (p *Profiler) IsEnabled() bool {
	return p.enabled
}

// Stop flushes pending profiles. Safe to call more than once; the
// pyroscope client takes no context, so it relies on its own upload timeout.
func (p *Profiler) Stop() error {
	var err error
	p.once.Do(func() {
		if p.profiler == nil {
			return
		}
		if err = p.profiler.Stop(); err != nil {
			err = fmt.Errorf("failed to stop profiler: %w", err)
			return
		}
		p.logger.Info("Pyroscope profiler stopped")
	})
	return err
}

type pyroscopeLogger struct {
	*zap.SugaredLogger
}
