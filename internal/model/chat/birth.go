package chat

import "strings"

// BirthDetails holds the free-form birth metadata supplied by the client.
// Fields arrive either combined (Date, Time) or split (Day..Minute); nothing
// is validated here, numeric ranges are enforced at the tool boundary.
type BirthDetails struct {
	Name   string `json:"name,omitempty"`
	Date   string `json:"date,omitempty"` // DD/MM/YYYY
	Time   string `json:"time,omitempty"` // HH:mm
	Place  string `json:"place,omitempty"`
	Day    string `json:"day,omitempty"`
	Month  string `json:"month,omitempty"`
	Year   string `json:"year,omitempty"`
	Hour   string `json:"hour,omitempty"`
	Minute string `json:"minute,omitempty"`
}

// Merge overlays non-empty fields of other onto a copy of b, last write wins.
func (b *BirthDetails) Merge(other *BirthDetails) *BirthDetails {
	if other == nil {
		return b
	}
	merged := BirthDetails{}
	if b != nil {
		merged = *b
	}
	overlay := func(dst *string, src string) {
		if strings.TrimSpace(src) != "" {
			*dst = src
		}
	}
	overlay(&merged.Name, other.Name)
	overlay(&merged.Date, other.Date)
	overlay(&merged.Time, other.Time)
	overlay(&merged.Place, other.Place)
	overlay(&merged.Day, other.Day)
	overlay(&merged.Month, other.Month)
	overlay(&merged.Year, other.Year)
	overlay(&merged.Hour, other.Hour)
	overlay(&merged.Minute, other.Minute)
	return &merged
}

// DateLabel returns the combined date field or one assembled from the split
// fields, falling back to "Unknown" for the analytics row.
func (b *BirthDetails) DateLabel() string {
	if b == nil {
		return "Unknown"
	}
	if b.Date != "" {
		return b.Date
	}
	if b.Day != "" || b.Month != "" || b.Year != "" {
		return b.Day + "/" + b.Month + "/" + b.Year
	}
	return "Unknown"
}

// TimeLabel mirrors DateLabel for the time-of-birth column.
func (b *BirthDetails) TimeLabel() string {
	if b == nil {
		return "Unknown"
	}
	if b.Time != "" {
		return b.Time
	}
	if b.Hour != "" || b.Minute != "" {
		return b.Hour + ":" + b.Minute
	}
	return "Unknown"
}

// NameLabel returns the user name or "Unknown".
func (b *BirthDetails) NameLabel() string {
	if b == nil || strings.TrimSpace(b.Name) == "" {
		return "Unknown"
	}
	return b.Name
}

// PlaceLabel returns the birth place or "Unknown".
func (b *BirthDetails) PlaceLabel() string {
	if b == nil || strings.TrimSpace(b.Place) == "" {
		return "Unknown"
	}
	return b.Place
}
