package classify

import (
	"strings"

	"skywatch/internal/track"
)

// Classification is the derived identity of a flight: nationality,
// operational role, and the regions its route touches. It drives both
// bilateral proximity pairing and the threat combiner's conflict-zone
// component.
type Classification struct {
	FlightID          string     `json:"flight_id"`
	Country           string     `json:"country"`
	Alliance          string     `json:"alliance"`
	Role              track.Role `json:"role"`
	OriginRegion      string     `json:"origin_region"`
	DestinationRegion string     `json:"destination_region"`
	ConflictZone      bool       `json:"conflict_zone"`
	EasternOrigin     bool       `json:"eastern_origin"`
}

// callsignCountries maps military callsign prefixes to countries.
var callsignCountries = map[string]string{
	"RCH":   "USA", // Air Mobility Command
	"RRR":   "UK",  // Royal Air Force
	"ASCOT": "UK",
	"IAM":   "Italy",
	"GAF":   "Germany",
	"CTM":   "France",
	"FAF":   "France",
	"RFF":   "Russia",
	"RSD":   "Russia",
	"IRGC":  "Iran",
	"NATO":  "NATO",
	"FORTE": "USA", // RQ-4 Global Hawk missions
	"LAGR":  "USA",
}

// alliances maps countries to their alignment bloc.
var alliances = map[string]string{
	"USA":     "NATO",
	"UK":      "NATO",
	"France":  "NATO",
	"Germany": "NATO",
	"Italy":   "NATO",
	"Turkey":  "NATO",
	"Greece":  "NATO",
	"NATO":    "NATO",
	"Russia":  "CSTO",
	"Belarus": "CSTO",
	"Iran":    "Eastern",
	"Syria":   "Eastern",
}

// roleTypes maps ICAO aircraft type designators to operational roles.
var roleTypes = map[string]track.Role{
	// Tankers
	"KC135": track.RoleTanker,
	"K35R":  track.RoleTanker,
	"KC46":  track.RoleTanker,
	"A332":  track.RoleTanker, // MRTT when military
	"A3ST":  track.RoleTanker,
	// ISR
	"RC135": track.RoleISR,
	"R135":  track.RoleISR,
	"P8":    track.RoleISR,
	"P8A":   track.RoleISR,
	"E3CF":  track.RoleISR,
	"E3TF":  track.RoleISR,
	"E8":    track.RoleISR,
	"Q4":    track.RoleISR,
	"RQ4":   track.RoleISR,
	"GLEX":  track.RoleISR, // ARTEMIS sensing platform
	"U2":    track.RoleISR,
	// Fighters
	"F15":  track.RoleFighter,
	"F16":  track.RoleFighter,
	"F18":  track.RoleFighter,
	"F35":  track.RoleFighter,
	"EUFI": track.RoleFighter,
	"RFAL": track.RoleFighter,
	"SU27": track.RoleFighter,
	"SU30": track.RoleFighter,
	"SU35": track.RoleFighter,
	"MG31": track.RoleFighter,
	// Transports
	"C17":  track.RoleTransport,
	"C130": track.RoleTransport,
	"C30J": track.RoleTransport,
	"A400": track.RoleTransport,
	"A124": track.RoleTransport,
	"IL76": track.RoleTransport,
}

// regionPrefixes maps two-letter ICAO airport code prefixes to the
// regions the analysis cares about. Codes outside this table map to "".
var regionPrefixes = map[string]string{
	"OS": "Syria",
	"LL": "Israel/Gaza",
	"OL": "Lebanon",
	"LC": "Cyprus",
	"LT": "Turkey",
	"UU": "Russia",
	"UR": "Russia",
	"UM": "Belarus",
	"OI": "Iran",
	"OR": "Iraq",
	"OJ": "Jordan",
	"HE": "Egypt",
}

// conflictRegions is the fixed conflict-zone list.
var conflictRegions = map[string]bool{
	"Syria":       true,
	"Israel/Gaza": true,
	"Lebanon":     true,
	"Iraq":        true,
}

// easternCountries is the eastern-origin set.
var easternCountries = map[string]bool{
	"Russia":  true,
	"Iran":    true,
	"Belarus": true,
	"Syria":   true,
}

// Classify derives country, alliance, role, and route regions for one
// flight. Pure lookup; unknown inputs degrade to the flight's declared
// country and the "other"/"civilian" roles.
func Classify(f *track.Flight) Classification {
	c := Classification{
		FlightID: f.ID,
		Country:  f.Country,
		Role:     track.RoleCivilian,
	}

	callsign := strings.ToUpper(strings.TrimSpace(f.Callsign))
	for prefix, country := range callsignCountries {
		if strings.HasPrefix(callsign, prefix) {
			c.Country = country
			break
		}
	}

	if f.Military {
		c.Role = track.RoleOther
		acType := strings.ToUpper(strings.TrimSpace(f.AircraftType))
		if role, ok := roleTypes[acType]; ok {
			c.Role = role
		}
	}

	c.OriginRegion = RegionFor(f.Origin)
	c.DestinationRegion = RegionFor(f.Destination)
	c.ConflictZone = conflictRegions[c.OriginRegion] || conflictRegions[c.DestinationRegion]
	c.EasternOrigin = easternCountries[c.Country] || easternCountries[c.OriginRegion]

	if c.Alliance == "" {
		c.Alliance = alliances[c.Country]
	}
	if c.Alliance == "" {
		c.Alliance = "unaligned"
	}

	return c
}

// RegionFor maps an ICAO airport code to its region, or "" when unknown.
func RegionFor(icao string) string {
	code := strings.ToUpper(strings.TrimSpace(icao))
	if len(code) < 2 {
		return ""
	}
	if region, ok := regionPrefixes[code[:2]]; ok {
		return region
	}
	return ""
}

// IsConflictRegion reports whether a region is on the conflict-zone list.
func IsConflictRegion(region string) bool {
	return conflictRegions[region]
}
