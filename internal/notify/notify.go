// Package notify renders the human-readable messages pushed to the event sink.
package notify

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"outside/internal/models"
)

// LoadedMessage is pushed once a feed completes its first poll
const LoadedMessage = "Air client loaded"

// Arrival renders an airport feed notification, e.g. "Landed: Flight AA 1234 from Boston"
func Arrival(leg *models.Leg) string {
	if !leg.Inbound {
		return fmt.Sprintf("Departed: Flight %s to %s", leg.FlightDesignator(), leg.Destination.DisplayName())
	}
	return fmt.Sprintf("Landed: Flight %s from %s", leg.FlightDesignator(), leg.Origin.DisplayName())
}

// Sighting returns the live feed formatter for an observer at home, rendering e.g.
// "That's flight AAL123 from Boston - an Airbus A321."
func Sighting(home string) func(leg *models.Leg) string {
	return func(leg *models.Leg) string {
		var where string
		if leg.Origin.Code != "" && strings.EqualFold(leg.Origin.Code, home) {
			where = "to " + leg.Destination.DisplayName()
		} else {
			where = "from " + leg.Origin.DisplayName()
		}

		msg := fmt.Sprintf("That's flight %s %s", leg.FlightDesignator(), where)
		if leg.AircraftType != "" {
			msg += " - " + WithArticle(leg.AircraftType)
		}
		return msg + "."
	}
}

// WithArticle prefixes word with "a" or "an" by its first letter
func WithArticle(word string) string {
	r, _ := utf8.DecodeRuneInString(word)
	if strings.ContainsRune("aeiou", unicode.ToLower(r)) {
		return "an " + word
	}
	return "a " + word
}

// Render prefixes a sink message for terminal output: "[15:04][AIR] msg"
func Render(now time.Time, msg string) string {
	return fmt.Sprintf("[%s][AIR] %s", now.Format("15:04"), msg)
}
