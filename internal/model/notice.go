package model

import "time"

// Notice is published after the service stored data.
type Notice struct {
	Topic            string    `json:"topic"`
	RunID            string    `json:"runId,omitempty"`
	EventID          string    `json:"eventId,omitempty"`
	File             string    `json:"file,omitempty"`
	Digest           string    `json:"digest,omitempty"`
	Size             int       `json:"size,omitempty"`
	Count            int       `json:"count"`
	LatestTicketDate time.Time `json:"latestTicketDate,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}
