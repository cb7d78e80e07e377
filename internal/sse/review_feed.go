package sse

import (
	"context"
	"sync"

	"coa-registry/internal/models"
)

// ReviewFeed fans workflow events out to connected staff dashboards. Staff
// subscribers see everything; event subscribers see only events for one
// signing event.
type ReviewFeed struct {
	staffClients     []chan models.WorkflowEvent
	staffClientMutex sync.RWMutex

	// key: eventID
	eventClients     map[string][]chan models.WorkflowEvent
	eventClientMutex sync.RWMutex
}

func NewReviewFeed() *ReviewFeed {
	return &ReviewFeed{
		eventClients: make(map[string][]chan models.WorkflowEvent),
	}
}

// SubscribeStaff adds a client receiving every workflow event
func (f *ReviewFeed) SubscribeStaff(ctx context.Context) chan models.WorkflowEvent {
	clientChan := make(chan models.WorkflowEvent, 10)

	f.staffClientMutex.Lock()
	f.staffClients = append(f.staffClients, clientChan)
	f.staffClientMutex.Unlock()

	go func() {
		<-ctx.Done()
		f.removeStaffClient(clientChan)
	}()

	return clientChan
}

// SubscribeToEvent adds a client receiving workflow events for one event
func (f *ReviewFeed) SubscribeToEvent(ctx context.Context, eventID string) chan models.WorkflowEvent {
	clientChan := make(chan models.WorkflowEvent, 10)

	f.eventClientMutex.Lock()
	f.eventClients[eventID] = append(f.eventClients[eventID], clientChan)
	f.eventClientMutex.Unlock()

	go func() {
		<-ctx.Done()
		f.removeEventClient(eventID, clientChan)
	}()

	return clientChan
}

// Emit broadcasts an event without blocking on slow clients
func (f *ReviewFeed) Emit(event models.WorkflowEvent) {
	f.staffClientMutex.RLock()
	for _, clientChan := range f.staffClients {
		select {
		case clientChan <- event:
		default:
			// buffer full, drop for this client
		}
	}
	f.staffClientMutex.RUnlock()

	if event.EventID == "" {
		return
	}

	f.eventClientMutex.RLock()
	for _, clientChan := range f.eventClients[event.EventID] {
		select {
		case clientChan <- event:
		default:
		}
	}
	f.eventClientMutex.RUnlock()
}

// Publish lets the feed stand in for the Kafka producer when Kafka is disabled.
func (f *ReviewFeed) Publish(_ context.Context, event models.WorkflowEvent) error {
	f.Emit(event)
	return nil
}

func (f *ReviewFeed) removeStaffClient(clientChan chan models.WorkflowEvent) {
	f.staffClientMutex.Lock()
	defer f.staffClientMutex.Unlock()

	for i, ch := range f.staffClients {
		if ch == clientChan {
			f.staffClients = append(f.staffClients[:i], f.staffClients[i+1:]...)
			close(clientChan)
			break
		}
	}
}

func (f *ReviewFeed) removeEventClient(eventID string, clientChan chan models.WorkflowEvent) {
	f.eventClientMutex.Lock()
	defer f.eventClientMutex.Unlock()

	clients := f.eventClients[eventID]
	for i, ch := range clients {
		if ch == clientChan {
			f.eventClients[eventID] = append(clients[:i], clients[i+1:]...)
			close(clientChan)
			break
		}
	}

	if len(f.eventClients[eventID]) == 0 {
		delete(f.eventClients, eventID)
	}
}

func (f *ReviewFeed) StaffClientCount() int {
	f.staffClientMutex.RLock()
	defer f.staffClientMutex.RUnlock()
	return len(f.staffClients)
}

func (f *ReviewFeed) EventClientCount(eventID string) int {
	f.eventClientMutex.RLock()
	defer f.eventClientMutex.RUnlock()
	return len(f.eventClients[eventID])
}
