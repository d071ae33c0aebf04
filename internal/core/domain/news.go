package domain

import "time"

// Information is one news item published by the school. Read and Acknowledged
// mutate through a vendor round-trip; the adapter returns the merged object.
// Ref is the opaque vendor handle needed for that round-trip.
type Information struct {
	ID           string
	Title        string
	Date         time.Time
	Content      string
	Author       string
	Category     string
	Attachments  []Attachment
	Read         bool
	Acknowledged bool
	Ref          string
}
