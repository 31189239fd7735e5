package sms

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// LogGateway is the no-credentials stand-in: it records every send and
// reports all recipients as delivered, keeping local runs and demos fully
// functional without a provider account.
type LogGateway struct{}

// NewLogGateway builds the logging gateway.
func NewLogGateway() *LogGateway {
	return &LogGateway{}
}

// Send logs the message and fabricates delivered outcomes.
func (g *LogGateway) Send(_ context.Context, message string, recipients []string) ([]Recipient, error) {
	log.Info().
		Int("recipients", len(recipients)).
		Str("message", message).
		Msg("sms gateway not configured, logging send instead")

	outcomes := make([]Recipient, 0, len(recipients))
	for _, number := range recipients {
		outcomes = append(outcomes, Recipient{
			Number:    number,
			Status:    StatusDelivered,
			MessageID: "local-" + uuid.NewString(),
		})
	}
	return outcomes, nil
}
