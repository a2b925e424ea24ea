package model

import (
	"time"

	"github.com/visualtk/vnintegration/internal/scheduler"
)

// FetchResponse describes a completed manual fetch.
type FetchResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	RunID   string   `json:"runId,omitempty"`
	Events  int      `json:"events"`
	Files   []string `json:"files"`
	Failed  []string `json:"failed,omitempty"`
	Elapsed string   `json:"elapsed,omitempty"`
}

// StatusResponse describes the state of the service.
type StatusResponse struct {
	Version          string             `json:"version"`
	Events           int                `json:"events"`
	EventsUpdatedAt  *time.Time         `json:"eventsUpdatedAt,omitempty"`
	LatestTicketDate *time.Time         `json:"latestTicketDate,omitempty"`
	LastBatch        *FetchResponse     `json:"lastBatch,omitempty"`
	Tasks            []scheduler.Status `json:"tasks"`
}

// Constants for FetchResponse.Status
const (
	StatusOK      = "ok"
	StatusPartial = "partial"
)
