package event

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Type string

// MemberCheckedIn is dispatched after a check-in row is durably committed.
// The DDS acceptance hook consumes it; nothing in the check-in path depends
// on the handlers succeeding.
const MemberCheckedIn Type = "member.checked_in"

// CheckinData is the MemberCheckedIn payload.
type CheckinData struct {
	MemberID  uuid.UUID
	Direction string
	KioskID   string
	Method    string
}

type Event struct {
	Timestamp time.Time
	Data      any
	Type      Type
}

func New(t Type, data any) Event {
	return Event{Type: t, Timestamp: time.Now(), Data: data}
}

type HandlerFunc func(Event)

// Bus is a minimal in-process pub/sub. Publish dispatches synchronously in
// subscription order; handlers own their error handling and must not panic
// the publisher's request.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[Type][]HandlerFunc
}

func NewBus() *Bus {
	return &Bus{subscribers: make(map[Type][]HandlerFunc)}
}

func (b *Bus) SubscribeFunc(t Type, handler HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[t] = append(b.subscribers[t], handler)
}

func (b *Bus) Publish(t Type, evt Event) {
	b.mu.RLock()
	handlers := make([]HandlerFunc, len(b.subscribers[t]))
	copy(handlers, b.subscribers[t])
	b.mu.RUnlock()
	for _, h := range handlers {
		h(evt)
	}
}
