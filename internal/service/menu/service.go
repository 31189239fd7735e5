package menu

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kasaops/kasa-backend/internal/model/report"
	"github.com/kasaops/kasa-backend/internal/model/ussd"
	"github.com/kasaops/kasa-backend/internal/service/alert"
	"github.com/kasaops/kasa-backend/internal/service/location"
	"github.com/kasaops/kasa-backend/internal/service/registry"
	"github.com/kasaops/kasa-backend/internal/service/reportlog"
	"github.com/kasaops/kasa-backend/internal/service/session"
)

const lockStripes = 64

// Service is the USSD menu state machine. Handle never surfaces an error
// to the gateway; every internal failure degrades to a terminal
// system-error reply with the session cleared.
type Service struct {
	sessions session.Store
	registry *registry.Service
	reports  *reportlog.Service
	alerts   *alert.Service
	locator  location.Resolver

	// Striped per-session locks make each request's read-modify-write
	// span a critical section without serializing unrelated sessions.
	locks [lockStripes]sync.Mutex
}

// NewService wires the state machine to its collaborators.
func NewService(
	sessions session.Store,
	reg *registry.Service,
	reports *reportlog.Service,
	alerts *alert.Service,
	locator location.Resolver,
) *Service {
	return &Service{
		sessions: sessions,
		registry: reg,
		reports:  reports,
		alerts:   alerts,
		locator:  locator,
	}
}

func (s *Service) sessionLock(sessionID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(sessionID))
	return &s.locks[h.Sum32()%lockStripes]
}

// Handle processes one gateway callback and returns the CON/END reply.
//
// Dispatch priority: an active wizard flow wins over everything; then the
// root sentinel; then depth-based menu routing; anything else ends the
// session.
func (s *Service) Handle(ctx context.Context, sessionID, text, phone string) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("session", sessionID).Msg("ussd dispatch panicked")
			s.clear(ctx, sessionID)
			reply = systemErrorScreen()
		}
	}()

	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	state, _, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		log.Error().Err(err).Str("session", sessionID).Msg("session load failed")
		s.clear(ctx, sessionID)
		return systemErrorScreen()
	}

	if state.Flow == ussd.FlowRegistration {
		return s.handleRegistration(ctx, sessionID, phone, text, state)
	}

	if text == "" || text == ussd.RootSentinel {
		s.clear(ctx, sessionID)
		return mainMenuScreen()
	}

	segments := strings.Split(text, ussd.Separator)
	switch len(segments) {
	case 1:
		return s.handleTopLevel(ctx, sessionID, phone, segments[0])
	case 2:
		return s.handleEmergencyType(ctx, sessionID, segments)
	case 3:
		return s.handleEmergencyConfirm(ctx, sessionID, phone, segments)
	}

	s.clear(ctx, sessionID)
	return sessionEndedScreen()
}

func (s *Service) handleTopLevel(ctx context.Context, sessionID, phone, choice string) string {
	switch choice {
	case "1":
		return emergencyMenuScreen()
	case "2":
		if existing, ok := s.registry.FindByPhone(ctx, phone); ok {
			return alreadyRegisteredScreen(existing)
		}
		state := ussd.SessionState{
			Flow: ussd.FlowRegistration,
			Step: ussd.StepName,
		}
		if err := s.sessions.Set(ctx, sessionID, state); err != nil {
			log.Error().Err(err).Str("session", sessionID).Msg("session save failed")
			s.clear(ctx, sessionID)
			return systemErrorScreen()
		}
		return namePromptScreen()
	case "3":
		return statusScreen(s.registry.Count(ctx))
	case "4":
		return helpScreen()
	}
	return invalidOptionScreen()
}

func (s *Service) handleEmergencyType(ctx context.Context, sessionID string, segments []string) string {
	if segments[0] == "1" {
		if _, ok := emergencyTypes[segments[1]]; ok {
			return confirmationScreen(emergencyTypes[segments[1]])
		}
		if segments[1] == ussd.RootSentinel {
			s.clear(ctx, sessionID)
			return mainMenuScreen()
		}
		return invalidEmergencyTypeScreen()
	}

	// Back out of the help screen.
	if segments[0] == "4" && segments[1] == ussd.RootSentinel {
		s.clear(ctx, sessionID)
		return mainMenuScreen()
	}

	s.clear(ctx, sessionID)
	return sessionEndedScreen()
}

func (s *Service) handleEmergencyConfirm(ctx context.Context, sessionID, phone string, segments []string) string {
	emergencyType, known := emergencyTypes[segments[1]]
	if segments[0] != "1" || !known {
		s.clear(ctx, sessionID)
		return sessionEndedScreen()
	}

	switch segments[2] {
	case "1":
		return s.submitEmergency(ctx, sessionID, phone, emergencyType)
	case "2":
		s.clear(ctx, sessionID)
		return alertCancelledScreen()
	case ussd.RootSentinel:
		s.clear(ctx, sessionID)
		return mainMenuScreen()
	}

	s.clear(ctx, sessionID)
	return sessionEndedScreen()
}

// submitEmergency performs the confirmed-submission side effects: resolve
// a location, append the report, fan out to local users, clear the
// session. Fan-out is best effort and never alters the already-created
// report.
func (s *Service) submitEmergency(ctx context.Context, sessionID, phone, emergencyType string) string {
	loc := s.locator.Resolve(phone)

	referenceID, err := s.reports.Create(ctx, report.EmergencyReport{
		SessionID: sessionID,
		Phone:     phone,
		Type:      emergencyType,
		Timestamp: time.Now().UTC(),
		Location:  loc,
	})
	if err != nil {
		// The acknowledgement still goes out; the derived id is shown so
		// the caller has something to quote to responders.
		referenceID = reportlog.ReferenceID(sessionID)
		log.Error().Err(err).Str("session", sessionID).Msg("report creation failed")
	}

	notified := -1
	if reporter, ok := s.registry.FindByPhone(ctx, phone); ok {
		message := alert.EmergencyMessage(emergencyType, reporter)
		result, err := s.alerts.SendToLocation(ctx, reporter.Location, message, reporter.Phone)
		if err != nil {
			log.Error().Err(err).Str("location", reporter.Location).Msg("emergency fan-out failed")
		} else if result.SentCount > 0 {
			notified = result.SentCount
		}
	}

	s.clear(ctx, sessionID)

	reply := fmt.Sprintf("%s alert sent!\nReference: %s\nLocation: %s",
		emergencyType, referenceID, loc.SMSString())
	if notified >= 0 {
		reply += fmt.Sprintf("\n%d local users notified", notified)
	}
	reply += "\nStay safe!"
	return ussd.End(reply)
}

// handleRegistration advances the wizard using the most recent input
// segment; the flow tracks its own step and ignores path depth.
func (s *Service) handleRegistration(ctx context.Context, sessionID, phone, text string, state ussd.SessionState) string {
	segments := strings.Split(text, ussd.Separator)
	input := strings.TrimSpace(segments[len(segments)-1])

	switch state.Step {
	case ussd.StepName:
		if input == "" {
			return nameRepromptScreen()
		}
		state.Name = input
		state.Step = ussd.StepLocation
		if err := s.sessions.Set(ctx, sessionID, state); err != nil {
			log.Error().Err(err).Str("session", sessionID).Msg("session save failed")
			s.clear(ctx, sessionID)
			return systemErrorScreen()
		}
		return locationPromptScreen(state.Name)

	case ussd.StepLocation:
		if input == "" {
			return locationRepromptScreen()
		}
		state.Location = input
		state.Step = ussd.StepConfirmation
		if err := s.sessions.Set(ctx, sessionID, state); err != nil {
			log.Error().Err(err).Str("session", sessionID).Msg("session save failed")
			s.clear(ctx, sessionID)
			return systemErrorScreen()
		}
		return registrationConfirmScreen(state.Name, state.Location)

	case ussd.StepConfirmation:
		return s.handleRegistrationConfirm(ctx, sessionID, phone, input, state)
	}

	s.clear(ctx, sessionID)
	return registrationErrorScreen()
}

func (s *Service) handleRegistrationConfirm(ctx context.Context, sessionID, phone, input string, state ussd.SessionState) string {
	switch input {
	case "1":
		if state.Name == "" || state.Location == "" {
			// Confirmation with nothing captured means the stored state
			// is corrupt; end the session rather than guess.
			s.clear(ctx, sessionID)
			return systemErrorScreen()
		}

		_, err := s.registry.Register(ctx, phone, state.Name, state.Location)
		if err != nil {
			s.clear(ctx, sessionID)
			if existing, ok := s.registry.FindByPhone(ctx, phone); ok {
				return alreadyRegisteredScreen(existing)
			}
			log.Error().Err(err).Str("phone", phone).Msg("registration commit failed")
			return systemErrorScreen()
		}

		s.clear(ctx, sessionID)
		return registrationSuccessScreen(state.Name, state.Location, phone)

	case "2":
		s.clear(ctx, sessionID)
		return registrationCancelledScreen()

	case ussd.RootSentinel:
		s.clear(ctx, sessionID)
		return mainMenuScreen()
	}

	// Unrecognized input re-displays the confirmation unchanged.
	return registrationConfirmScreen(state.Name, state.Location)
}

func (s *Service) clear(ctx context.Context, sessionID string) {
	if err := s.sessions.Clear(ctx, sessionID); err != nil {
		log.Error().Err(err).Str("session", sessionID).Msg("session clear failed")
	}
}
