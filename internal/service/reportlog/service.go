package reportlog

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kasaops/kasa-backend/internal/model/report"
)

var ErrDuplicateReference = errors.New("reference id already exists")

// referenceNamespace scopes reference-id derivation to this service.
var referenceNamespace = uuid.MustParse("8f7a1f0e-2d4b-4c93-9a6e-5b1d0c3f7e21")

// Service is the append-only emergency report log. Reports are never
// mutated after creation; status transitions belong to the responder
// dashboard, which is out of scope here.
type Service struct {
	mu      sync.RWMutex
	reports []report.EmergencyReport
	byRef   map[string]struct{}
	subs    map[chan report.EmergencyReport]struct{}
}

// NewService bootstraps an empty report log.
func NewService() *Service {
	return &Service{
		byRef: make(map[string]struct{}),
		subs:  make(map[chan report.EmergencyReport]struct{}),
	}
}

// ReferenceID derives the reference id for a session. A UUIDv5 of the full
// session id keeps derivation deterministic without the prefix collisions
// a raw session-id slice would have.
func ReferenceID(sessionID string) string {
	return "EMR-" + uuid.NewSHA1(referenceNamespace, []byte(sessionID)).String()[:8]
}

// Create appends a report, deriving its reference id from the session id.
// A colliding reference id is rejected rather than overwritten.
func (s *Service) Create(_ context.Context, rep report.EmergencyReport) (string, error) {
	rep.ReferenceID = ReferenceID(rep.SessionID)
	if rep.Status == "" {
		rep.Status = report.StatusPending
	}
	if rep.Timestamp.IsZero() {
		rep.Timestamp = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byRef[rep.ReferenceID]; ok {
		return "", ErrDuplicateReference
	}
	s.byRef[rep.ReferenceID] = struct{}{}
	s.reports = append(s.reports, rep)

	for sub := range s.subs {
		select {
		case sub <- rep:
		default:
			// Slow subscriber, drop the frame rather than block creation.
		}
	}

	return rep.ReferenceID, nil
}

// List returns all reports in creation order.
func (s *Service) List(_ context.Context) []report.EmergencyReport {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]report.EmergencyReport, len(s.reports))
	copy(out, s.reports)
	return out
}

// Count returns the number of stored reports.
func (s *Service) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}

// Subscribe returns a channel receiving every report created after the
// call, plus a cancel func that must be invoked when done.
func (s *Service) Subscribe() (<-chan report.EmergencyReport, func()) {
	ch := make(chan report.EmergencyReport, 8)

	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		delete(s.subs, ch)
		s.mu.Unlock()
	}
	return ch, cancel
}
