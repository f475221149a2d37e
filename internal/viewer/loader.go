package viewer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jask/crystalgen/internal/metrics"
)

// Readiness of the rendering library.
type Readiness int

const (
	Unloaded Readiness = iota
	Loading
	Ready
	LoadingFailed
)

func (r Readiness) String() string {
	switch r {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case LoadingFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (r Readiness) terminal() bool { return r == Ready || r == LoadingFailed }

const defaultLoadTimeout = 30 * time.Second

// Loader acquires the rendering library at most once per process. Concurrent
// Load calls share the single attempt and observe the same terminal state.
type Loader struct {
	// Detect reports whether the library is already usable. Optional.
	Detect func() bool
	// Acquire fetches the library. Called at most once.
	Acquire func(ctx context.Context) error
	Timeout time.Duration
	Metrics *metrics.Recorder
	Logger  *slog.Logger

	initOnce  sync.Once
	closeOnce sync.Once
	group     singleflight.Group

	mu    sync.Mutex
	state Readiness
	err   error
	done  chan struct{}
}

// DefaultLoader is the process-wide loader. Set Detect and Acquire before the
// first Load.
var DefaultLoader = &Loader{}

func NewLoader(detect func() bool, acquire func(ctx context.Context) error) *Loader {
	return &Loader{Detect: detect, Acquire: acquire}
}

func (l *Loader) init() {
	l.initOnce.Do(func() { l.done = make(chan struct{}) })
}

// Load returns the terminal readiness, running the acquisition if nobody has.
// The attempt is detached from ctx cancellation so a caller giving up does not
// fail the load for everyone else.
func (l *Loader) Load(ctx context.Context) (Readiness, error) {
	l.init()
	l.mu.Lock()
	if l.state.terminal() {
		state, err := l.state, l.err
		l.mu.Unlock()
		return state, err
	}
	l.state = Loading
	l.mu.Unlock()

	ch := l.group.DoChan("load", func() (any, error) {
		l.attempt(context.WithoutCancel(ctx))
		return nil, nil
	})
	select {
	case <-ch:
	case <-ctx.Done():
		return Loading, ctx.Err()
	}
	return l.State()
}

func (l *Loader) attempt(ctx context.Context) {
	l.mu.Lock()
	if l.state.terminal() {
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()

	if l.Detect != nil && l.Detect() {
		l.logger().Debug("viewer library already present")
		l.finish(nil)
		return
	}
	if l.Acquire == nil {
		l.finish(ErrNoAcquirer)
		return
	}

	timeout := l.Timeout
	if timeout <= 0 {
		timeout = defaultLoadTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := l.Acquire(ctx)
	if err == nil && l.Detect != nil && !l.Detect() {
		err = errors.New("library fetched but not usable")
	}
	l.logger().Info("viewer library load finished", "ok", err == nil, "elapsed", time.Since(start))
	l.finish(err)
}

func (l *Loader) finish(err error) {
	l.mu.Lock()
	if err != nil {
		l.state = LoadingFailed
		l.err = &LoadError{Err: err}
		l.logger().Warn("viewer library unavailable", "error", err)
	} else {
		l.state = Ready
		l.err = nil
	}
	l.mu.Unlock()
	l.Metrics.LibraryLoad(err)
	l.closeOnce.Do(func() { close(l.done) })
}

// State returns the current readiness and, when failed, the *LoadError.
func (l *Loader) State() (Readiness, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state, l.err
}

// Done is closed once the loader reaches Ready or LoadingFailed.
func (l *Loader) Done() <-chan struct{} {
	l.init()
	return l.done
}

func (l *Loader) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}
