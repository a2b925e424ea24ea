package service

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

// BatchError is returned by Pipeline.FetchTickets when some events failed.
// The other events were stored.
type BatchError struct {
	Result *BatchResult
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%d of %d events failed: %v", len(e.Result.Failed), e.Result.Events, e.Result.Err)
}

// Unwrap ...
func (e *BatchError) Unwrap() error { return e.Result.Err }

// Pipeline runs event list updates and ticket batches as scheduler jobs.
type Pipeline struct {
	events  Events
	tickets Tickets

	mu   sync.RWMutex
	last *BatchResult
}

// NewPipeline creates a new instance.
func NewPipeline(events Events, tickets Tickets) *Pipeline {
	return &Pipeline{events: events, tickets: tickets}
}

// UpdateEvents refreshes the event list.
func (p *Pipeline) UpdateEvents(ctx context.Context) error {
	return p.events.UpdateEventList(ctx)
}

// FetchTickets fetches the tickets of the current event list.
func (p *Pipeline) FetchTickets(ctx context.Context) error {
	events := p.events.EventList()
	if len(events) == 0 {
		log.WithField("service", "vnintegration-pipeline").Info("No events to fetch tickets for")
	}
	result := p.tickets.FetchTicketsForAllEvents(ctx, events)

	p.mu.Lock()
	p.last = result
	p.mu.Unlock()

	if result.Err != nil {
		if len(result.Failed) == 0 {
			return result.Err
		}
		return &BatchError{Result: result}
	}
	return nil
}

// LastBatch returns the result of the latest ticket batch, nil before the first.
func (p *Pipeline) LastBatch() *BatchResult {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}

// Events returns the event list service.
func (p *Pipeline) Events() Events {
	return p.events
}

// Stop stops the underlying services.
func (p *Pipeline) Stop() {
	p.events.Stop()
	p.tickets.Stop()
}
