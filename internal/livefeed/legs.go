package livefeed

import (
	"strings"
	"time"

	"outside/internal/models"
)

// Legs converts the flights inside box into legs seen at seenAt. Every leg's scheduled time is
// seenAt, so a sighting is due the moment it is reconciled.
func Legs(flights []Flight, box BoundingBox, home string, refs *models.ReferenceTables, seenAt time.Time) []models.Leg {
	legs := make([]models.Leg, 0, len(flights))
	for i := range flights {
		f := &flights[i]
		if !box.Contains(f.Latitude, f.Longitude) {
			continue
		}

		status := models.StatusAirborne
		if f.OnGround {
			status = models.StatusLanded
		}

		legs = append(legs, models.Leg{
			ID:           f.Key(),
			Callsign:     strings.TrimSpace(f.Callsign),
			Origin:       models.AirportRef{Code: f.From, Name: refs.AirportName(f.From)},
			Destination:  models.AirportRef{Code: f.To, Name: refs.AirportName(f.To)},
			Status:       status,
			Scheduled:    seenAt,
			Inbound:      f.To != "" && strings.EqualFold(f.To, home),
			TailNumber:   f.Registration,
			AircraftType: refs.AircraftName(f.AircraftType),
		})
	}
	return legs
}
