// Package events defines the daemon's event type and the single ordered
// channel that carries events from producers to the event loop.
//
// [Event] is a closed set: only [NewScreenshot] and [Exit] implement it.
// Events are plain values handed over through a [Queue]; a producer keeps no
// reference to an event once it has been sent.
package events

import "fmt"

// ///////////////////////////////////////////////
// Event
// ///////////////////////////////////////////////

// Event is a message from a producer to the event loop.
type Event interface {
	isEvent()
}

// NewScreenshot reports a newly created file in the watched directory.
type NewScreenshot struct {
	// Path is the absolute path of the file. It existed when the event was
	// built but may be gone again by the time it is dispatched.
	Path string
}

// Exit asks the event loop to stop after the current dispatch.
type Exit struct{}

func (NewScreenshot) isEvent() {}
func (Exit) isEvent()          {}

// String implements [fmt.Stringer].
func (e NewScreenshot) String() string { return fmt.Sprintf("NewScreenshot(%s)", e.Path) }

// String implements [fmt.Stringer].
func (Exit) String() string { return "Exit" }
