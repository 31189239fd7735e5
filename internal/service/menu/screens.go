package menu

import (
	"fmt"
	"time"

	"github.com/kasaops/kasa-backend/internal/model/user"
	"github.com/kasaops/kasa-backend/internal/model/ussd"
)

// emergencyTypes maps the second-level menu digit to its label. Order in
// emergencyTypeDigits drives the screen layout.
var emergencyTypes = map[string]string{
	"1": "Fire Emergency",
	"2": "Medical Emergency",
	"3": "Security Alert",
	"4": "Natural Disaster",
}

var emergencyTypeDigits = []string{"1", "2", "3", "4"}

func mainMenuScreen() string {
	return ussd.Continue("Welcome to KASA - Local Alert System\n" +
		"1. Send Emergency Alert\n" +
		"2. Register User\n" +
		"3. View System Status\n" +
		"4. Help\n" +
		"0. Exit")
}

func emergencyMenuScreen() string {
	text := "Select Emergency Type:\n"
	for _, digit := range emergencyTypeDigits {
		text += fmt.Sprintf("%s. %s\n", digit, emergencyTypes[digit])
	}
	text += "0. Back to Main Menu"
	return ussd.Continue(text)
}

func confirmationScreen(emergencyType string) string {
	return ussd.Continue(fmt.Sprintf(
		"Confirm sending %s?\n1. Yes, Send Alert\n2. No, Cancel\n0. Main Menu",
		emergencyType,
	))
}

func helpScreen() string {
	return ussd.Continue("KASA Help:\n" +
		"- Dial this code to send alerts\n" +
		"- Alerts are sent to registered contacts\n" +
		"- For emergencies, call 999\n" +
		"0. Back to Main Menu")
}

func statusScreen(userCount int) string {
	return ussd.End(fmt.Sprintf("KASA System Status:\n"+
		"SMS Service: Online\n"+
		"Alert System: Active\n"+
		"Registered Users: %d\n"+
		"System is operational.", userCount))
}

func namePromptScreen() string {
	return ussd.Continue("Enter your full name:")
}

func nameRepromptScreen() string {
	return ussd.Continue("Please enter your full name:")
}

func locationPromptScreen(name string) string {
	return ussd.Continue(fmt.Sprintf("Hello %s!\nEnter your location/area:", name))
}

func locationRepromptScreen() string {
	return ussd.Continue("Please enter your location/area:")
}

func registrationConfirmScreen(name, location string) string {
	return ussd.Continue(fmt.Sprintf(
		"Confirm registration:\nName: %s\nLocation: %s\n1. Confirm\n2. Cancel\n0. Main Menu",
		name, location,
	))
}

func registrationSuccessScreen(name, location, phone string) string {
	return ussd.End(fmt.Sprintf("Registration successful!\n"+
		"Name: %s\nLocation: %s\nPhone: %s\n"+
		"You can now receive location alerts!", name, location, phone))
}

func alreadyRegisteredScreen(u user.User) string {
	return ussd.End(fmt.Sprintf("You are already registered!\n"+
		"Name: %s\nLocation: %s\nRegistered: %s",
		u.Name, u.Location, u.RegisteredAt.Format(time.DateOnly)))
}

func invalidOptionScreen() string {
	return ussd.End("Invalid option. Please try again.")
}

func invalidEmergencyTypeScreen() string {
	return ussd.End("Invalid emergency type.")
}

func alertCancelledScreen() string {
	return ussd.End("Alert cancelled. Stay safe!")
}

func registrationCancelledScreen() string {
	return ussd.End("Registration cancelled.")
}

func registrationErrorScreen() string {
	return ussd.End("Registration error. Please try again.")
}

func sessionEndedScreen() string {
	return ussd.End("Session ended. Dial again to restart.")
}

func systemErrorScreen() string {
	return ussd.End("System error. Please try again later.")
}
