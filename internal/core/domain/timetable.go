package domain

import "time"

// TimetableClassType distinguishes lessons from other planned slots.
type TimetableClassType string

const (
	ClassLesson    TimetableClassType = "lesson"
	ClassActivity  TimetableClassType = "activity"
	ClassDetention TimetableClassType = "detention"
)

// TimetableClass is one slot of the weekly schedule.
type TimetableClass struct {
	ID              string
	Type            TimetableClassType
	Subject         string
	Title           string
	Start           time.Time
	End             time.Time
	Room            string
	Building        string
	Teacher         string
	Group           string
	BackgroundColor string
	Online          bool
	StatusText      string
	Source          string
	URL             string
}

// Timetable is one week of classes, in vendor order.
type Timetable []TimetableClass
