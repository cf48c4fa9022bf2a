package chat

import "time"

// Session captures a client-identified conversation plus optional birth
// metadata. The id is supplied by the caller; the first write creates the
// record.
type Session struct {
	ID           string        `json:"id"`
	CreatedAt    time.Time     `json:"createdAt"`
	BirthDetails *BirthDetails `json:"birthDetails,omitempty"`
	Turns        []Turn        `json:"turns,omitempty"`
}
