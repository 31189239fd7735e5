package user

import "time"

// User is a registered alert recipient, keyed by phone number.
type User struct {
	Phone        string    `json:"phone"`
	Name         string    `json:"name"`
	Location     string    `json:"location"`
	RegisteredAt time.Time `json:"registeredAt"`
}
