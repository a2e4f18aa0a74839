package pyroscope

import (
	"context"
	"sort"
	"strings"

	"github.com/flexprice/billing/internal/config"
	"github.com/flexprice/billing/internal/logger"
	"github.com/grafana/pyroscope-go"
	"go.uber.org/fx"
)

var profileTypes = map[string]pyroscope.ProfileType{
	"cpu":            pyroscope.ProfileCPU,
	"inuse_objects":  pyroscope.ProfileInuseObjects,
	"alloc_objects":  pyroscope.ProfileAllocObjects,
	"inuse_space":    pyroscope.ProfileInuseSpace,
	"alloc_space":    pyroscope.ProfileAllocSpace,
	"goroutines":     pyroscope.ProfileGoroutines,
	"mutex_count":    pyroscope.ProfileMutexCount,
	"mutex_duration": pyroscope.ProfileMutexDuration,
	"block_count":    pyroscope.ProfileBlockCount,
	"block_duration": pyroscope.ProfileBlockDuration,
}

// Profiler pushes continuous profiles of the billing server. Lock waits on customer rows show up
// under the mutex and block profiles.
type Profiler struct {
	cfg      config.PyroscopeConfig
	logger   *logger.Logger
	profiler *pyroscope.Profiler
}

func Module() fx.Option {
	return fx.Options(
		fx.Provide(NewProfiler),
		fx.Invoke(registerHooks),
	)
}

func NewProfiler(cfg *config.Configuration, logger *logger.Logger) *Profiler {
	return &Profiler{cfg: cfg.Pyroscope, logger: logger}
}

func registerHooks(lc fx.Lifecycle, p *Profiler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return p.Start()
		},
		OnStop: func(ctx context.Context) error {
			return p.Stop()
		},
	})
}

func (p *Profiler) Enabled() bool {
	return p.cfg.Enabled
}

func (p *Profiler) Start() error {
	if !p.cfg.Enabled {
		p.logger.Debug("pyroscope profiling is disabled")
		return nil
	}

	cfg := pyroscope.Config{
		ApplicationName:   p.cfg.ApplicationName,
		ServerAddress:     p.cfg.ServerAddress,
		BasicAuthUser:     p.cfg.BasicAuthUser,
		BasicAuthPassword: p.cfg.BasicAuthPass,
		ProfileTypes:      p.ProfileTypes(),
		SampleRate:        p.cfg.SampleRate,
		DisableGCRuns:     p.cfg.DisableGCRuns,
		Logger:            p,
	}

	profiler, err := pyroscope.Start(cfg)
	if err != nil {
		p.logger.Errorw("failed to start pyroscope", "error", err)
		return err
	}
	p.profiler = profiler

	p.logger.Infow("pyroscope profiling started",
		"application_name", p.cfg.ApplicationName,
		"server_address", p.cfg.ServerAddress,
		"sample_rate", p.cfg.SampleRate,
	)
	return nil
}

func (p *Profiler) Stop() error {
	if p.profiler == nil {
		return nil
	}
	err := p.profiler.Stop()
	p.profiler = nil
	return err
}

// ProfileTypes maps the configured names onto pyroscope profile types. Unknown names are
// logged and skipped. An empty list selects CPU, memory and goroutine profiles.
func (p *Profiler) ProfileTypes() []pyroscope.ProfileType {
	if len(p.cfg.ProfileTypes) == 0 {
		return []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileGoroutines,
		}
	}

	var out []pyroscope.ProfileType
	for _, name := range p.cfg.ProfileTypes {
		t, ok := profileTypes[strings.ToLower(name)]
		if !ok {
			p.logger.Warnw("unknown pyroscope profile type", "type", name)
			continue
		}
		out = append(out, t)
	}
	return out
}

// TagWrapper runs fn with the given labels attached to its samples
func (p *Profiler) TagWrapper(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	if !p.cfg.Enabled {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(LabelPairs(labels)...), fn)
}

// LabelPairs flattens labels into key, value pairs in key order
func LabelPairs(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, k, labels[k])
	}
	return pairs
}

func (p *Profiler) Debugf(format string, args ...interface{}) {
	p.logger.Debugf("[pyroscope] "+format, args...)
}

func (p *Profiler) Infof(format string, args ...interface{}) {
	p.logger.Infof("[pyroscope] "+format, args...)
}

func (p *Profiler) Errorf(format string, args ...interface{}) {
	p.logger.Errorf("[pyroscope] "+format, args...)
}
