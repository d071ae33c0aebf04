// Package local serves accounts scraped from university portals (IUT
// Lannion CAS). The grade report is captured at login time and stored with
// the account, so the adapter is sessionless: it never implements
// SessionReloader and works entirely from the stored payload.
package local

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/papillon/aggregator/internal/core/domain"
)

const gradeOutOf = 20

type Adapter struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Adapter {
	return &Adapter{log: log}
}

func (a *Adapter) Service() domain.Service { return domain.ServiceLocal }

// Grades rebuilds the grade list from the stored report. Resources iterate
// in sorted key order so repeated calls yield the same sequence.
func (a *Adapter) Grades(ctx context.Context, account *domain.Account, session any) ([]domain.Grade, error) {
	auth, ok := account.Authentication.(domain.LocalAuth)
	if !ok {
		return nil, fmt.Errorf("local grades: %w", domain.ErrServiceUnauthenticated)
	}
	if auth.GradeReport == nil {
		return nil, nil
	}

	keys := make([]string, 0, len(auth.GradeReport.Resources))
	for key := range auth.GradeReport.Resources {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var grades []domain.Grade
	for _, key := range keys {
		resource := auth.GradeReport.Resources[key]
		subject := resource.Title
		if subject == "" {
			subject = key
		} else {
			subject = resource.Title + " > " + key
		}

		for i, eval := range resource.Evaluations {
			grades = append(grades, domain.Grade{
				ID:          fmt.Sprintf("%s-%d", key, i),
				SubjectName: subject,
				SubjectID:   key,
				Description: eval.Description,
				Timestamp:   eval.Date,
				Coefficient: eval.Coefficient,
				OutOf:       domain.GradeValue{Value: gradeOutOf},
				Student:     reportValue(eval.Value),
				Average:     reportValue(eval.Average),
				Min:         reportValue(eval.Min),
				Max:         reportValue(eval.Max),
			})
		}
	}
	return grades, nil
}

// reportValue maps an optional scraped mark to a grade slot. The portal
// renders absent marks as "~", stored as nil.
func reportValue(v *float64) domain.GradeValue {
	if v == nil {
		return domain.DisabledValue()
	}
	return domain.GradeValue{Value: *v}
}
