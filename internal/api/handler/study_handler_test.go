package handler

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/papillon/aggregator/internal/core/domain"
	"github.com/papillon/aggregator/internal/core/ports"
	"github.com/papillon/aggregator/internal/core/service"
)

// fakeSchoolAdapter is a sessionless primary adapter serving canned school
// data.
type fakeSchoolAdapter struct {
	homework []domain.Homework
	menu     *domain.Menu
	grades   []domain.Grade
}

func (f *fakeSchoolAdapter) Service() domain.Service { return domain.ServiceLocal }

func (f *fakeSchoolAdapter) HomeworkForWeek(ctx context.Context, account *domain.Account, session any, week int) ([]domain.Homework, error) {
	return f.homework, nil
}

func (f *fakeSchoolAdapter) SetHomeworkDone(ctx context.Context, account *domain.Account, session any, homework domain.Homework, done bool) (*domain.Homework, error) {
	updated := homework
	updated.Done = done
	return &updated, nil
}

func (f *fakeSchoolAdapter) Menu(ctx context.Context, account *domain.Account, session any, date time.Time) (*domain.Menu, error) {
	return f.menu, nil
}

func (f *fakeSchoolAdapter) Grades(ctx context.Context, account *domain.Account, session any) ([]domain.Grade, error) {
	return f.grades, nil
}

func newStudyHandler(adapter ports.Adapter, accounts ...*domain.Account) *StudyHandler {
	log := zerolog.Nop()
	repo := newStubAccountRepo(accounts...)
	registry := ports.Registry{adapter.Service(): adapter}
	reloads := service.NewReloadOrchestrator(registry, repo, log)
	return NewStudyHandler(service.NewDispatcher(registry, repo, reloads, log))
}

func studentAccount() *domain.Account {
	return &domain.Account{
		LocalID:        "primary-1",
		Service:        domain.ServiceLocal,
		Authentication: domain.LocalAuth{},
	}
}

func defined(v float64) domain.GradeValue { return domain.GradeValue{Value: v} }

func TestStudyHandler_Homework(t *testing.T) {
	e := newTestEcho()
	adapter := &fakeSchoolAdapter{homework: []domain.Homework{
		{ID: "hw-1", Subject: "Maths", Content: "Exercices 4 et 5", Due: time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), ReturnType: domain.ReturnTypePaper},
		{ID: "hw-2", Subject: "Histoire", Content: "Relire le chapitre", Exam: true},
	}}
	handler := newStudyHandler(adapter, studentAccount())

	req := httptest.NewRequest(http.MethodGet, "/v1/accounts/primary-1/homework?week=11", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("primary-1")

	if err := handler.Homework(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(resp))
	}
	if resp[0]["id"] != "hw-1" || resp[0]["return_type"] != "paper" {
		t.Fatalf("unexpected first assignment: %+v", resp[0])
	}
	if resp[1]["exam"] != true {
		t.Fatalf("exam flag lost: %+v", resp[1])
	}
}

func TestStudyHandler_Homework_InvalidWeek(t *testing.T) {
	e := newTestEcho()
	handler := newStudyHandler(&fakeSchoolAdapter{}, studentAccount())

	req := httptest.NewRequest(http.MethodGet, "/v1/accounts/primary-1/homework?week=abc", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("primary-1")

	err := handler.Homework(c)
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestStudyHandler_ToggleHomework(t *testing.T) {
	e := newTestEcho()
	handler := newStudyHandler(&fakeSchoolAdapter{}, studentAccount())

	body := strings.NewReader(`{"homework":{"id":"hw-1","subject":"Maths"},"done":true}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/accounts/primary-1/homework/toggle", body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("primary-1")

	if err := handler.ToggleHomework(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["id"] != "hw-1" || resp["done"] != true {
		t.Fatalf("unexpected toggle result: %+v", resp)
	}
}

func TestStudyHandler_Menu_NoMenuPublished(t *testing.T) {
	e := newTestEcho()
	handler := newStudyHandler(&fakeSchoolAdapter{menu: nil}, studentAccount())

	req := httptest.NewRequest(http.MethodGet, "/v1/accounts/primary-1/menu?date=2026-03-09", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("primary-1")

	if err := handler.Menu(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestStudyHandler_Menu_InvalidDate(t *testing.T) {
	e := newTestEcho()
	handler := newStudyHandler(&fakeSchoolAdapter{}, studentAccount())

	req := httptest.NewRequest(http.MethodGet, "/v1/accounts/primary-1/menu?date=09/03/2026", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("primary-1")

	err := handler.Menu(c)
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestStudyHandler_Grades_DisabledSlotsAreNull(t *testing.T) {
	e := newTestEcho()
	adapter := &fakeSchoolAdapter{grades: []domain.Grade{{
		ID:          "g-1",
		SubjectName: "Physique",
		Coefficient: 1,
		OutOf:       defined(20),
		Student:     defined(14.5),
		Average:     domain.DisabledValue(),
		Min:         domain.DisabledValue(),
		Max:         domain.DisabledValue(),
	}}}
	handler := newStudyHandler(adapter, studentAccount())

	req := httptest.NewRequest(http.MethodGet, "/v1/accounts/primary-1/grades", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("primary-1")

	if err := handler.Grades(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp) != 1 {
		t.Fatalf("expected one grade, got %d", len(resp))
	}
	student := resp[0]["student"].(map[string]any)
	if student["value"] != 14.5 || student["disabled"] != false {
		t.Fatalf("unexpected student slot: %+v", student)
	}
	average := resp[0]["average"].(map[string]any)
	if average["value"] != nil || average["disabled"] != true {
		t.Fatalf("disabled slot not mapped to null: %+v", average)
	}
}

func TestStudyHandler_Averages(t *testing.T) {
	e := newTestEcho()
	adapter := &fakeSchoolAdapter{grades: []domain.Grade{
		{ID: "g-1", SubjectName: "Maths", SubjectID: "MATH", Coefficient: 1, OutOf: defined(20), Student: defined(10), Average: domain.DisabledValue(), Min: domain.DisabledValue(), Max: domain.DisabledValue()},
		{ID: "g-2", SubjectName: "Maths", SubjectID: "MATH", Coefficient: 1, OutOf: defined(20), Student: defined(14), Average: domain.DisabledValue(), Min: domain.DisabledValue(), Max: domain.DisabledValue()},
		{ID: "g-3", SubjectName: "Anglais", SubjectID: "ENG", Coefficient: 1, OutOf: defined(20), Student: defined(16), Average: domain.DisabledValue(), Min: domain.DisabledValue(), Max: domain.DisabledValue()},
	}}
	handler := newStudyHandler(adapter, studentAccount())

	req := httptest.NewRequest(http.MethodGet, "/v1/accounts/primary-1/averages", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("primary-1")

	if err := handler.Averages(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp struct {
		Target   string `json:"target"`
		Overall  *float64
		Subjects []struct {
			SubjectKey  string   `json:"subject_key"`
			SubjectName string   `json:"subject_name"`
			Average     *float64 `json:"average"`
		}
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Target != "student" {
		t.Fatalf("expected default target student, got %q", resp.Target)
	}
	if len(resp.Subjects) != 2 {
		t.Fatalf("expected 2 subjects, got %d", len(resp.Subjects))
	}
	byKey := make(map[string]*float64)
	for _, s := range resp.Subjects {
		byKey[s.SubjectKey] = s.Average
	}
	if byKey["MATH"] == nil || math.Abs(*byKey["MATH"]-12) > 1e-9 {
		t.Fatalf("unexpected maths average: %v", byKey["MATH"])
	}
	if byKey["ENG"] == nil || math.Abs(*byKey["ENG"]-16) > 1e-9 {
		t.Fatalf("unexpected english average: %v", byKey["ENG"])
	}
	if resp.Overall == nil || math.Abs(*resp.Overall-14) > 1e-9 {
		t.Fatalf("unexpected overall average: %v", resp.Overall)
	}
}

func TestStudyHandler_Averages_NoGrades(t *testing.T) {
	e := newTestEcho()
	handler := newStudyHandler(&fakeSchoolAdapter{}, studentAccount())

	req := httptest.NewRequest(http.MethodGet, "/v1/accounts/primary-1/averages", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("primary-1")

	if err := handler.Averages(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["overall"] != nil {
		t.Fatalf("expected null overall, got %v", resp["overall"])
	}
}
