package sms

import "context"

// Delivery statuses reported per recipient.
const (
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
)

// Recipient is the per-number outcome of a send.
type Recipient struct {
	Number    string `json:"number"`
	Status    string `json:"status"`
	MessageID string `json:"messageId,omitempty"`
	Cost      string `json:"cost,omitempty"`
	ErrorCode string `json:"errorCode,omitempty"`
}

// Gateway dispatches a text message to a set of phone numbers. Delivery is
// best effort: callers must never roll back committed state on failure.
type Gateway interface {
	Send(ctx context.Context, message string, recipients []string) ([]Recipient, error)
}

// DeliveredCount tallies successful outcomes.
func DeliveredCount(outcomes []Recipient) int {
	count := 0
	for _, r := range outcomes {
		if r.Status == StatusDelivered {
			count++
		}
	}
	return count
}
