package finance

import "time"

// exchangeLocation returns the location trading dates are read in: the named exchange zone
// when available, the reported UTC offset otherwise, New York as a last resort.
func exchangeLocation(gmtOffset int, name string) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	if gmtOffset != 0 {
		return time.FixedZone("exchange", gmtOffset)
	}
	return getEasternTime()
}

// getEasternTime returns America/New_York location, falling back to fixed EST if tzdata is missing.
func getEasternTime() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.FixedZone("EST", -5*3600)
	}
	return loc
}
