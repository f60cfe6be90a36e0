// Package loop runs the single consumer of the event queue. It dispatches
// each new screenshot to an [action.Handler] and stops on the first Exit.
package loop

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"tools.zach/dev/shotd/internal/action"
	"tools.zach/dev/shotd/internal/events"
)

// ///////////////////////////////////////////////
// State
// ///////////////////////////////////////////////

// State is the lifecycle of a [Loop]. It moves from Running to Stopped
// exactly once.
type State int32

const (
	Running State = iota
	Stopped
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Reason records why [Loop.Run] returned.
type Reason int

const (
	// ReasonNone means Run returned without consuming anything because the
	// loop was already stopped.
	ReasonNone Reason = iota
	// ReasonExit means an Exit event was received.
	ReasonExit
	// ReasonClosed means every producer went away without sending Exit.
	ReasonClosed
	// ReasonCanceled means the context passed to Run was canceled.
	ReasonCanceled
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonExit:
		return "exit"
	case ReasonClosed:
		return "closed"
	case ReasonCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("Reason(%d)", int(r))
	}
}

// Stats summarizes one [Loop.Run].
type Stats struct {
	Dispatched int
	Failed     int
	Reason     Reason
}

// ///////////////////////////////////////////////
// Loop
// ///////////////////////////////////////////////

// Loop consumes events from a queue until it stops.
type Loop struct {
	queue   *events.Queue
	handler action.Handler
	logger  *slog.Logger
	newID   func() string

	state atomic.Int32
	mu    sync.Mutex // serializes Run
}

// Option configures a [Loop].
type Option func(*Loop)

// WithLogger sets the loop's logger. Handlers receive a child of it tagged
// with the dispatch id.
func WithLogger(l *slog.Logger) Option {
	return func(lp *Loop) { lp.logger = l }
}

// WithIDFunc replaces the dispatch id generator.
func WithIDFunc(fn func() string) Option {
	return func(lp *Loop) { lp.newID = fn }
}

// New returns a Loop in the Running state that reads from q and hands new
// screenshots to h.
func New(q *events.Queue, h action.Handler, opts ...Option) *Loop {
	lp := &Loop{
		queue:   q,
		handler: h,
		logger:  slog.Default(),
		newID:   uuid.NewString,
	}
	for _, o := range opts {
		o(lp)
	}
	lp.state.Store(int32(Running))
	return lp
}

// State reports the loop's current state.
func (lp *Loop) State() State {
	return State(lp.state.Load())
}

// Run blocks receiving events until an Exit arrives, the queue closes, or
// ctx is canceled. Pending events behind an Exit are not processed. When
// Run returns the loop is Stopped and the queue's receiving side is closed.
func (lp *Loop) Run(ctx context.Context) Stats {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	var stats Stats
	if lp.State() == Stopped {
		return stats
	}

	stopCancel := context.AfterFunc(ctx, lp.queue.CloseReceiver)
	defer stopCancel()

	lp.logger.Debug("event loop running")
	for {
		ev, ok := lp.queue.Recv()
		if !ok {
			if ctx.Err() != nil {
				stats.Reason = ReasonCanceled
			} else {
				stats.Reason = ReasonClosed
			}
			break
		}

		if _, isExit := ev.(events.Exit); isExit {
			stats.Reason = ReasonExit
			break
		}
		if shot, isShot := ev.(events.NewScreenshot); isShot {
			stats.Dispatched++
			if err := lp.dispatch(ctx, shot.Path); err != nil {
				stats.Failed++
			}
		}
	}

	lp.state.Store(int32(Stopped))
	lp.queue.CloseReceiver()
	lp.logger.Info("event loop stopped",
		"reason", stats.Reason.String(),
		"dispatched", stats.Dispatched,
		"failed", stats.Failed,
	)
	return stats
}

// dispatch runs the handler for one screenshot. Handler errors and panics
// are logged and returned so the caller can count them; they never stop
// the loop.
func (lp *Loop) dispatch(ctx context.Context, path string) (err error) {
	id := lp.newID()
	ctx = action.WithDispatch(ctx, id, lp.logger)
	log := action.Logger(ctx)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
			log.Error("screenshot handler panicked", "path", path, "panic", fmt.Sprint(r))
		}
	}()

	start := time.Now()
	if err = lp.handler.Handle(ctx, path); err != nil {
		log.Error("screenshot handler failed", "path", path, "error", err)
		return err
	}
	log.Debug("screenshot handled", "path", path, "duration", time.Since(start).String())
	return nil
}
