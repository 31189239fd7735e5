package ussd

const (
	// Separator delimits accumulated menu choices in the text field. The
	// gateway resends the entire path on every keystroke.
	Separator = "*"

	// RootSentinel returns the user to the menu root.
	RootSentinel = "0"
)

// Request is one gateway callback, sent per keystroke.
type Request struct {
	SessionID   string
	ServiceCode string
	PhoneNumber string
	Text        string
}

// Continue builds a reply that keeps the session open; the gateway will
// prompt for further input.
func Continue(text string) string {
	return "CON " + text
}

// End builds a terminal reply; the gateway displays it and discards the
// session.
func End(text string) string {
	return "END " + text
}
