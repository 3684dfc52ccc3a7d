// Package interaction dispatches pointer events from a window to widgets
// and a camera style, and notifies observers of what they do.
package interaction

import (
	"sort"
	"sync"
)

// EventID names an event observers can subscribe to
type EventID int

const (
	NoEvent EventID = iota
	AnyEvent
	LeftButtonPressEvent
	LeftButtonReleaseEvent
	MouseMoveEvent
	MouseWheelForwardEvent
	MouseWheelBackwardEvent
	StartInteractionEvent
	InteractionEvent
	EndInteractionEvent
	RenderEvent
	ExitEvent
)

var eventNames = map[EventID]string{
	NoEvent:                 "NoEvent",
	AnyEvent:                "AnyEvent",
	LeftButtonPressEvent:    "LeftButtonPressEvent",
	LeftButtonReleaseEvent:  "LeftButtonReleaseEvent",
	MouseMoveEvent:          "MouseMoveEvent",
	MouseWheelForwardEvent:  "MouseWheelForwardEvent",
	MouseWheelBackwardEvent: "MouseWheelBackwardEvent",
	StartInteractionEvent:   "StartInteractionEvent",
	InteractionEvent:        "InteractionEvent",
	EndInteractionEvent:     "EndInteractionEvent",
	RenderEvent:             "RenderEvent",
	ExitEvent:               "ExitEvent",
}

func (e EventID) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return "UnknownEvent"
}

// Command is notified of events it observes. caller is the object that
// invoked the event.
type Command interface {
	Execute(caller any, event EventID, callData any)
}

// CommandFunc adapts a function to the Command interface
type CommandFunc func(caller any, event EventID, callData any)

// Execute calls f
func (f CommandFunc) Execute(caller any, event EventID, callData any) {
	f(caller, event, callData)
}

type observer struct {
	tag      uint64
	event    EventID
	command  Command
	priority float64
}

// Object keeps observers and invokes them. It is meant to be embedded; the
// embedding value is passed to commands as the caller once SetOwner is
// called.
type Object struct {
	mu        sync.Mutex
	owner     any
	nextTag   uint64
	observers []observer
}

// SetOwner sets the caller passed to commands
func (o *Object) SetOwner(owner any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.owner = owner
}

// AddObserver registers cmd for event and returns a tag for RemoveObserver
func (o *Object) AddObserver(event EventID, cmd Command) uint64 {
	return o.AddObserverWithPriority(event, cmd, 0)
}

// AddObserverWithPriority registers cmd for event. Higher priorities run
// first; equal priorities run in registration order.
func (o *Object) AddObserverWithPriority(event EventID, cmd Command, priority float64) uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.nextTag++
	o.observers = append(o.observers, observer{tag: o.nextTag, event: event, command: cmd, priority: priority})
	sort.SliceStable(o.observers, func(i, j int) bool {
		return o.observers[i].priority > o.observers[j].priority
	})
	return o.nextTag
}

// RemoveObserver unregisters the observer with the given tag
func (o *Object) RemoveObserver(tag uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, obs := range o.observers {
		if obs.tag == tag {
			o.observers = append(o.observers[:i], o.observers[i+1:]...)
			return
		}
	}
}

// RemoveAllObservers unregisters every observer
func (o *Object) RemoveAllObservers() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observers = nil
}

// HasObserver reports whether anything observes event
func (o *Object) HasObserver(event EventID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, obs := range o.observers {
		if obs.event == event || obs.event == AnyEvent {
			return true
		}
	}
	return false
}

// InvokeEvent runs the commands observing event in priority order. Commands
// may add or remove observers while running.
func (o *Object) InvokeEvent(event EventID, callData any) {
	o.mu.Lock()
	owner := o.owner
	matched := make([]Command, 0, len(o.observers))
	for _, obs := range o.observers {
		if obs.event == event || obs.event == AnyEvent {
			matched = append(matched, obs.command)
		}
	}
	o.mu.Unlock()

	for _, cmd := range matched {
		cmd.Execute(owner, event, callData)
	}
}
