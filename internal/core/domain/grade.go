package domain

import (
	"math"
	"time"
)

// GradeValue is one numeric slot of a grade. A disabled slot carries no
// meaningful value and must never be read by consumers; NaN likewise marks a
// value the vendor did not provide as a number.
type GradeValue struct {
	Value    float64
	Disabled bool
}

// Defined reports whether the slot holds a usable finite number.
func (v GradeValue) Defined() bool {
	return !v.Disabled && !math.IsNaN(v.Value) && !math.IsInf(v.Value, 0)
}

// DisabledValue returns a slot explicitly marked as unusable.
func DisabledValue() GradeValue {
	return GradeValue{Value: math.NaN(), Disabled: true}
}

// Grade is a single mark as reported by a vendor, normalized across services.
type Grade struct {
	ID          string
	SubjectName string
	SubjectID   string
	Description string
	Timestamp   time.Time

	Coefficient float64
	IsBonus     bool
	IsOptional  bool

	OutOf   GradeValue
	Student GradeValue
	Average GradeValue
	Min     GradeValue
	Max     GradeValue
}

// SubjectKey is the grouping key used when averaging per subject: the vendor
// subject ID when present, the display name otherwise.
func (g Grade) SubjectKey() string {
	if g.SubjectID != "" {
		return g.SubjectID
	}
	return g.SubjectName
}
