package models

// Airport is one row of the airport reference table
type Airport struct {
	IATA  string // Primary key - 3 letter IATA code
	Label string // Display name, e.g. "Philadelphia"
}

// AircraftType is one aircraft model from the aircraft family reference file
type AircraftType struct {
	ID     string // Primary key - type designator as sent by the live feed, e.g. B738
	Name   string // Display name, e.g. "Boeing 737-800"
	Family string // Family display name, e.g. "Boeing 737"
}

// ReferenceTables holds the read-only lookup tables loaded once at startup
type ReferenceTables struct {
	airports map[string]string
	aircraft map[string]string
}

// NewReferenceTables builds lookup tables from reference rows.
// Later rows win on duplicate keys.
func NewReferenceTables(airports []*Airport, aircraft []*AircraftType) *ReferenceTables {
	t := &ReferenceTables{
		airports: make(map[string]string, len(airports)),
		aircraft: make(map[string]string, len(aircraft)),
	}
	for _, a := range airports {
		if a.IATA != "" && a.Label != "" {
			t.airports[a.IATA] = a.Label
		}
	}
	for _, a := range aircraft {
		if a.ID != "" && a.Name != "" {
			t.aircraft[a.ID] = a.Name
		}
	}
	return t
}

// AirportName returns the display name for an airport code, or the code itself on a miss
func (t *ReferenceTables) AirportName(code string) string {
	if t != nil {
		if name, ok := t.airports[code]; ok {
			return name
		}
	}
	return code
}

// AircraftName returns the display name for an aircraft type code, or the code itself on a miss
func (t *ReferenceTables) AircraftName(code string) string {
	if t != nil {
		if name, ok := t.aircraft[code]; ok {
			return name
		}
	}
	return code
}

// Len returns the number of airports and aircraft types loaded
func (t *ReferenceTables) Len() (airports, aircraft int) {
	if t == nil {
		return 0, 0
	}
	return len(t.airports), len(t.aircraft)
}
