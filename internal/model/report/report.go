package report

import (
	"fmt"
	"strings"
	"time"
)

// Status tracks the lifecycle of an emergency report. Reports are created
// pending; transitions are handled by the responder dashboard, not this
// service.
type Status string

const (
	StatusPending    Status = "pending"
	StatusResolved   Status = "resolved"
	StatusFalseAlarm Status = "false_alarm"
)

// Location is an approximate position descriptor derived for a phone
// number, standing in for a real cell-tower lookup.
type Location struct {
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
	Address         string   `json:"address,omitempty"`
	Landmark        string   `json:"landmark,omitempty"`
	CellTowerID     string   `json:"cellTowerId,omitempty"`
	NetworkProvider string   `json:"networkProvider,omitempty"`
}

// SMSString renders the location for inclusion in alert and reply text.
func (l Location) SMSString() string {
	parts := make([]string, 0, 3)
	if l.Address != "" {
		parts = append(parts, l.Address)
	}
	if l.Landmark != "" {
		parts = append(parts, l.Landmark)
	}
	if l.Latitude != nil && l.Longitude != nil {
		parts = append(parts, fmt.Sprintf("GPS:%g,%g", *l.Latitude, *l.Longitude))
	}
	if len(parts) == 0 {
		return "Location: Being determined"
	}
	return strings.Join(parts, " | ")
}

// EmergencyReport is an immutable record of one confirmed submission.
type EmergencyReport struct {
	ReferenceID string    `json:"referenceId"`
	SessionID   string    `json:"sessionId"`
	Phone       string    `json:"phone"`
	Type        string    `json:"emergencyType"`
	Timestamp   time.Time `json:"timestamp"`
	Location    Location  `json:"location"`
	Status      Status    `json:"status"`
}
