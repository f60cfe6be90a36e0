// Package signals turns OS termination signals into an [events.Exit] for the
// event loop.
//
// The first termination signal sets the process-wide interrupted flag and
// sends one Exit event. Any later termination signal terminates the process
// on the spot, so a hung event loop never makes the daemon unkillable.
package signals

import (
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"

	"tools.zach/dev/shotd/internal/events"
)

// ForcedExitCode is the process exit code used when a second termination
// signal arrives before clean shutdown has finished.
const ForcedExitCode = 1

var (
	// ErrNoSignals is returned by [Monitor.Start] when the signal set is empty.
	ErrNoSignals = errors.New("signals: no termination signals to register")
	// ErrAlreadyStarted is returned by a second call to [Monitor.Start].
	ErrAlreadyStarted = errors.New("signals: monitor already started")
)

// interrupted is set once, by the monitor goroutine, when the first
// termination signal arrives. It is never cleared.
var interrupted atomic.Bool

// Interrupted reports whether a termination signal has been received. The
// daemon itself reacts to the Exit event instead; this is for callers that
// only observe the process.
func Interrupted() bool {
	return interrupted.Load()
}

// ///////////////////////////////////////////////
// Monitor
// ///////////////////////////////////////////////

// Monitor listens for termination signals on a dedicated goroutine.
type Monitor struct {
	sender  *events.Sender
	signals []os.Signal
	logger  *slog.Logger

	// notify and stop default to [signal.Notify] and [signal.Stop].
	notify func(c chan<- os.Signal, sig ...os.Signal)
	stop   func(c chan<- os.Signal)
	// exit defaults to [os.Exit].
	exit func(code int)

	ch       chan os.Signal
	started  atomic.Bool
	stopOnce sync.Once
	done     chan struct{}
}

// Option configures a [Monitor].
type Option func(*Monitor)

// WithSignals overrides the platform termination signal set.
func WithSignals(sig ...os.Signal) Option {
	return func(m *Monitor) { m.signals = sig }
}

// WithNotify replaces the signal registration functions. Tests use it to
// deliver signals without touching the real process.
func WithNotify(notify func(chan<- os.Signal, ...os.Signal), stop func(chan<- os.Signal)) Option {
	return func(m *Monitor) {
		m.notify = notify
		m.stop = stop
	}
}

// WithExit replaces the function used for the forced exit.
func WithExit(exit func(int)) Option {
	return func(m *Monitor) { m.exit = exit }
}

// WithLogger sets the logger. The default is [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) { m.logger = l }
}

// New creates a Monitor that sends to q. It attaches its own sender right
// away so the queue cannot close before the monitor has run.
func New(q *events.Queue, opts ...Option) *Monitor {
	m := &Monitor{
		sender:  q.Sender(),
		signals: terminationSignals(),
		logger:  slog.Default(),
		notify:  signal.Notify,
		stop:    signal.Stop,
		exit:    os.Exit,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start registers for the termination signals and starts the monitor
// goroutine. An error here means shutdown could not be wired and must be
// treated as fatal.
func (m *Monitor) Start() error {
	if len(m.signals) == 0 {
		return ErrNoSignals
	}
	if !m.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	// Buffered so a second signal is not lost while the first is handled.
	m.ch = make(chan os.Signal, 2)
	m.notify(m.ch, m.signals...)

	go m.run()
	return nil
}

// Stop deregisters the signal channel and waits for the monitor goroutine to
// finish. Signals received afterwards get the default OS behavior. Stop is
// safe to call more than once and before [Monitor.Start].
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		if !m.started.Load() {
			m.sender.Release()
			close(m.done)
			return
		}
		m.stop(m.ch)
		close(m.ch)
	})
	<-m.done
}

// run waits for the first signal, sends Exit, then stays armed as the
// forced-exit fallback until [Monitor.Stop] closes the channel.
func (m *Monitor) run() {
	defer close(m.done)

	sig, ok := <-m.ch
	if !ok {
		m.sender.Release()
		return
	}

	interrupted.Store(true)
	m.logger.Info("received shutdown signal", "signal", sig.String())
	if err := m.sender.Send(events.Exit{}); err != nil {
		m.logger.Debug("exit event not delivered", "error", err)
	}
	m.sender.Release()

	if sig, ok := <-m.ch; ok {
		m.logger.Warn("second shutdown signal, forcing exit", "signal", sig.String())
		m.exit(ForcedExitCode)
	}
}
