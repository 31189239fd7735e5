package alert

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/kasaops/kasa-backend/internal/model/user"
	"github.com/kasaops/kasa-backend/internal/service/registry"
	"github.com/kasaops/kasa-backend/internal/service/sms"
)

// Message length ceilings keep alerts inside a single SMS segment after
// the branded prefix is added.
const (
	MaxDirectMessageLen   = 160
	MaxLocationMessageLen = 140
)

// Service formats branded alerts and dispatches them through the SMS
// gateway.
type Service struct {
	registry *registry.Service
	gateway  sms.Gateway
}

// NewService wires the alert dispatcher.
func NewService(reg *registry.Service, gateway sms.Gateway) *Service {
	return &Service{registry: reg, gateway: gateway}
}

// SendDirect sends a branded alert to an explicit recipient list.
func (s *Service) SendDirect(ctx context.Context, message string, recipients []string) ([]sms.Recipient, error) {
	formatted := "[KASA ALERT] " + message
	return s.gateway.Send(ctx, formatted, recipients)
}

// LocationResult summarizes a location-wide dispatch.
type LocationResult struct {
	Location   string          `json:"location"`
	SentCount  int             `json:"sentCount"`
	Recipients []sms.Recipient `json:"recipients,omitempty"`
}

// SendToLocation fans a branded alert out to every registered user whose
// location matches, excluding excludePhone when non-empty. A location with
// no users is not an error; the result simply reports zero sent.
func (s *Service) SendToLocation(ctx context.Context, location, message, excludePhone string) (LocationResult, error) {
	users := s.registry.FindByLocation(ctx, location)

	numbers := make([]string, 0, len(users))
	for _, u := range users {
		if excludePhone != "" && u.Phone == excludePhone {
			continue
		}
		numbers = append(numbers, u.Phone)
	}

	result := LocationResult{Location: location}
	if len(numbers) == 0 {
		log.Warn().Str("location", location).Msg("no registered users for location alert")
		return result, nil
	}

	formatted := fmt.Sprintf("[KASA LOCATION ALERT - %s] %s", strings.ToUpper(location), message)
	outcomes, err := s.gateway.Send(ctx, formatted, numbers)
	if err != nil {
		return result, fmt.Errorf("location alert: %w", err)
	}

	result.SentCount = sms.DeliveredCount(outcomes)
	result.Recipients = outcomes
	return result, nil
}

// EmergencyMessage renders the fan-out text for a confirmed emergency.
func EmergencyMessage(emergencyType string, reporter user.User) string {
	return fmt.Sprintf(
		"EMERGENCY ALERT: %s reported in %s. From: %s (%s). Stay alert and safe!",
		emergencyType, reporter.Location, reporter.Name, reporter.Phone,
	)
}
