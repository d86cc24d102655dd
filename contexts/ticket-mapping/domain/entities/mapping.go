package entities

import "time"

// Mapping links a producer-side source ticket to the consumer's local
// execution identifier, for reconciliation.
type Mapping struct {
	SourceTicket string
	SlaveTicket  string
	Symbol       string
	Size         string
	UpdatedAt    time.Time
}
