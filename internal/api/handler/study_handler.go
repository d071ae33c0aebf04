package handler

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/papillon/aggregator/internal/core/domain"
	"github.com/papillon/aggregator/internal/core/grades"
	"github.com/papillon/aggregator/internal/core/service"
)

// StudyHandler exposes the school-life operations of a primary account:
// homework, news, menu, timetable, grades and computed averages.
type StudyHandler struct {
	dispatch *service.Dispatcher
}

func NewStudyHandler(dispatch *service.Dispatcher) *StudyHandler {
	return &StudyHandler{dispatch: dispatch}
}

type attachmentPayload struct {
	Type string `json:"type"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type homeworkPayload struct {
	ID          string              `json:"id"`
	Subject     string              `json:"subject"`
	Content     string              `json:"content"`
	Due         time.Time           `json:"due"`
	Done        bool                `json:"done"`
	Attachments []attachmentPayload `json:"attachments,omitempty"`
	ReturnType  string              `json:"return_type,omitempty"`
	Exam        bool                `json:"exam"`
}

type toggleHomeworkRequest struct {
	Homework homeworkPayload `json:"homework" validate:"required"`
	Done     bool            `json:"done"`
}

type informationPayload struct {
	ID           string              `json:"id"`
	Title        string              `json:"title"`
	Date         time.Time           `json:"date"`
	Content      string              `json:"content"`
	Author       string              `json:"author,omitempty"`
	Category     string              `json:"category,omitempty"`
	Attachments  []attachmentPayload `json:"attachments,omitempty"`
	Read         bool                `json:"read"`
	Acknowledged bool                `json:"acknowledged"`
	Ref          string              `json:"ref,omitempty"`
}

type acknowledgeNewsRequest struct {
	Information informationPayload `json:"information" validate:"required"`
}

type mealResponse struct {
	Entry   []foodItemResponse `json:"entry,omitempty"`
	Main    []foodItemResponse `json:"main,omitempty"`
	Side    []foodItemResponse `json:"side,omitempty"`
	Dessert []foodItemResponse `json:"dessert,omitempty"`
}

type foodItemResponse struct {
	Name      string   `json:"name"`
	Allergens []string `json:"allergens,omitempty"`
}

type menuResponse struct {
	Date   time.Time     `json:"date"`
	Lunch  *mealResponse `json:"lunch,omitempty"`
	Dinner *mealResponse `json:"dinner,omitempty"`
}

type timetableClassResponse struct {
	ID              string    `json:"id"`
	Type            string    `json:"type"`
	Subject         string    `json:"subject,omitempty"`
	Title           string    `json:"title,omitempty"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	Room            string    `json:"room,omitempty"`
	Building        string    `json:"building,omitempty"`
	Teacher         string    `json:"teacher,omitempty"`
	Group           string    `json:"group,omitempty"`
	BackgroundColor string    `json:"background_color,omitempty"`
	Online          bool      `json:"online"`
	StatusText      string    `json:"status_text,omitempty"`
	Source          string    `json:"source,omitempty"`
	URL             string    `json:"url,omitempty"`
}

type gradeValueResponse struct {
	Value    *float64 `json:"value"`
	Disabled bool     `json:"disabled"`
}

type gradeResponse struct {
	ID          string             `json:"id"`
	SubjectName string             `json:"subject_name"`
	SubjectID   string             `json:"subject_id,omitempty"`
	Description string             `json:"description,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
	Coefficient float64            `json:"coefficient"`
	IsBonus     bool               `json:"is_bonus"`
	IsOptional  bool               `json:"is_optional"`
	OutOf       gradeValueResponse `json:"out_of"`
	Student     gradeValueResponse `json:"student"`
	Average     gradeValueResponse `json:"average"`
	Min         gradeValueResponse `json:"min"`
	Max         gradeValueResponse `json:"max"`
}

type subjectAverageResponse struct {
	SubjectKey  string   `json:"subject_key"`
	SubjectName string   `json:"subject_name"`
	Average     *float64 `json:"average"`
}

type averagesResponse struct {
	Target   string                   `json:"target"`
	Overall  *float64                 `json:"overall"`
	Subjects []subjectAverageResponse `json:"subjects"`
	History  []grades.HistoryPoint    `json:"history,omitempty"`
}

// Homework returns the assignments of one week. The week query parameter is
// the vendor week number; 0 or absent means the current week.
func (h *StudyHandler) Homework(c echo.Context) error {
	week, err := weekParam(c)
	if err != nil {
		return err
	}

	items, err := h.dispatch.Homework(c.Request().Context(), c.Param("id"), week)
	if err != nil {
		return err
	}

	out := make([]homeworkPayload, 0, len(items))
	for _, item := range items {
		out = append(out, toHomeworkPayload(item))
	}
	return c.JSON(http.StatusOK, out)
}

// ToggleHomework flips the done flag through the vendor and returns the
// merged assignment.
func (h *StudyHandler) ToggleHomework(c echo.Context) error {
	var req toggleHomeworkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if req.Homework.ID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "homework id is required")
	}

	updated, err := h.dispatch.ToggleHomework(c.Request().Context(), c.Param("id"), fromHomeworkPayload(req.Homework), req.Done)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toHomeworkPayload(*updated))
}

// News returns the school news feed.
func (h *StudyHandler) News(c echo.Context) error {
	items, err := h.dispatch.News(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}

	out := make([]informationPayload, 0, len(items))
	for _, item := range items {
		out = append(out, toInformationPayload(item))
	}
	return c.JSON(http.StatusOK, out)
}

// AcknowledgeNews round-trips a read acknowledgement through the vendor.
func (h *StudyHandler) AcknowledgeNews(c echo.Context) error {
	var req acknowledgeNewsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if req.Information.ID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "information id is required")
	}

	updated, err := h.dispatch.AcknowledgeNews(c.Request().Context(), c.Param("id"), fromInformationPayload(req.Information))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toInformationPayload(*updated))
}

// Menu returns the canteen menu for a date. 204 means the service publishes
// no menu for that day.
func (h *StudyHandler) Menu(c echo.Context) error {
	date := time.Now()
	if raw := c.QueryParam("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		}
		date = parsed
	}

	menu, err := h.dispatch.Menu(c.Request().Context(), c.Param("id"), date)
	if err != nil {
		return err
	}
	if menu == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, toMenuResponse(*menu))
}

// Timetable returns the week schedule.
func (h *StudyHandler) Timetable(c echo.Context) error {
	week, err := weekParam(c)
	if err != nil {
		return err
	}

	timetable, err := h.dispatch.Timetable(c.Request().Context(), c.Param("id"), week)
	if err != nil {
		return err
	}

	out := make([]timetableClassResponse, 0, len(timetable))
	for _, class := range timetable {
		out = append(out, timetableClassResponse{
			ID:              class.ID,
			Type:            string(class.Type),
			Subject:         class.Subject,
			Title:           class.Title,
			Start:           class.Start,
			End:             class.End,
			Room:            class.Room,
			Building:        class.Building,
			Teacher:         class.Teacher,
			Group:           class.Group,
			BackgroundColor: class.BackgroundColor,
			Online:          class.Online,
			StatusText:      class.StatusText,
			Source:          class.Source,
			URL:             class.URL,
		})
	}
	return c.JSON(http.StatusOK, out)
}

// Grades returns the raw grade snapshot.
func (h *StudyHandler) Grades(c echo.Context) error {
	list, err := h.dispatch.Grades(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}

	out := make([]gradeResponse, 0, len(list))
	for _, g := range list {
		out = append(out, toGradeResponse(g))
	}
	return c.JSON(http.StatusOK, out)
}

// Averages computes per-subject and overall averages from the current grade
// snapshot. The target query parameter selects which slot is averaged
// (student, average, min, max); math_mode=true drops optional grades that
// only hurt.
func (h *StudyHandler) Averages(c echo.Context) error {
	list, err := h.dispatch.Grades(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}

	target := grades.ParseTarget(c.QueryParam("target"))
	mathMode := c.QueryParam("math_mode") == "true"

	bySubject := make(map[string][]domain.Grade)
	names := make(map[string]string)
	keys := make([]string, 0)
	for _, g := range list {
		key := g.SubjectKey()
		if _, seen := bySubject[key]; !seen {
			keys = append(keys, key)
			names[key] = g.SubjectName
		}
		bySubject[key] = append(bySubject[key], g)
	}
	sort.Strings(keys)

	subjects := make([]subjectAverageResponse, 0, len(keys))
	for _, key := range keys {
		avg := grades.SubjectAverage(bySubject[key], target, mathMode)
		subjects = append(subjects, subjectAverageResponse{
			SubjectKey:  key,
			SubjectName: names[key],
			Average:     averageValue(avg),
		})
	}

	overall := grades.OverallAverage(list, target, mathMode)
	resp := averagesResponse{
		Target:   string(target),
		Overall:  averageValue(overall),
		Subjects: subjects,
	}
	if c.QueryParam("history") == "true" {
		resp.History = grades.AveragesHistory(list, target, nil, mathMode)
	}
	return c.JSON(http.StatusOK, resp)
}

func weekParam(c echo.Context) (int, error) {
	raw := c.QueryParam("week")
	if raw == "" {
		return 0, nil
	}
	week, err := strconv.Atoi(raw)
	if err != nil || week < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid week")
	}
	return week, nil
}

// averageValue hides the engine's sentinel behind a JSON null.
func averageValue(v float64) *float64 {
	if v == grades.Undefined {
		return nil
	}
	return &v
}

func toHomeworkPayload(h domain.Homework) homeworkPayload {
	return homeworkPayload{
		ID:          h.ID,
		Subject:     h.Subject,
		Content:     h.Content,
		Due:         h.Due,
		Done:        h.Done,
		Attachments: toAttachmentPayloads(h.Attachments),
		ReturnType:  string(h.ReturnType),
		Exam:        h.Exam,
	}
}

func fromHomeworkPayload(p homeworkPayload) domain.Homework {
	attachments := make([]domain.Attachment, 0, len(p.Attachments))
	for _, a := range p.Attachments {
		attachments = append(attachments, domain.Attachment{
			Type: domain.AttachmentType(a.Type),
			Name: a.Name,
			URL:  a.URL,
		})
	}
	return domain.Homework{
		ID:          p.ID,
		Subject:     p.Subject,
		Content:     p.Content,
		Due:         p.Due,
		Done:        p.Done,
		Attachments: attachments,
		ReturnType:  domain.HomeworkReturnType(p.ReturnType),
		Exam:        p.Exam,
	}
}

func toInformationPayload(info domain.Information) informationPayload {
	return informationPayload{
		ID:           info.ID,
		Title:        info.Title,
		Date:         info.Date,
		Content:      info.Content,
		Author:       info.Author,
		Category:     info.Category,
		Attachments:  toAttachmentPayloads(info.Attachments),
		Read:         info.Read,
		Acknowledged: info.Acknowledged,
		Ref:          info.Ref,
	}
}

func fromInformationPayload(p informationPayload) domain.Information {
	attachments := make([]domain.Attachment, 0, len(p.Attachments))
	for _, a := range p.Attachments {
		attachments = append(attachments, domain.Attachment{
			Type: domain.AttachmentType(a.Type),
			Name: a.Name,
			URL:  a.URL,
		})
	}
	return domain.Information{
		ID:           p.ID,
		Title:        p.Title,
		Date:         p.Date,
		Content:      p.Content,
		Author:       p.Author,
		Category:     p.Category,
		Attachments:  attachments,
		Read:         p.Read,
		Acknowledged: p.Acknowledged,
		Ref:          p.Ref,
	}
}

func toAttachmentPayloads(attachments []domain.Attachment) []attachmentPayload {
	if len(attachments) == 0 {
		return nil
	}
	out := make([]attachmentPayload, 0, len(attachments))
	for _, a := range attachments {
		out = append(out, attachmentPayload{Type: string(a.Type), Name: a.Name, URL: a.URL})
	}
	return out
}

func toMenuResponse(menu domain.Menu) menuResponse {
	return menuResponse{
		Date:   menu.Date,
		Lunch:  toMealResponse(menu.Lunch),
		Dinner: toMealResponse(menu.Dinner),
	}
}

func toMealResponse(meal *domain.Meal) *mealResponse {
	if meal == nil {
		return nil
	}
	return &mealResponse{
		Entry:   toFoodItems(meal.Entry),
		Main:    toFoodItems(meal.Main),
		Side:    toFoodItems(meal.Side),
		Dessert: toFoodItems(meal.Dessert),
	}
}

func toFoodItems(items []domain.FoodItem) []foodItemResponse {
	if len(items) == 0 {
		return nil
	}
	out := make([]foodItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, foodItemResponse{Name: item.Name, Allergens: item.Allergens})
	}
	return out
}

func toGradeResponse(g domain.Grade) gradeResponse {
	return gradeResponse{
		ID:          g.ID,
		SubjectName: g.SubjectName,
		SubjectID:   g.SubjectID,
		Description: g.Description,
		Timestamp:   g.Timestamp,
		Coefficient: g.Coefficient,
		IsBonus:     g.IsBonus,
		IsOptional:  g.IsOptional,
		OutOf:       toGradeValueResponse(g.OutOf),
		Student:     toGradeValueResponse(g.Student),
		Average:     toGradeValueResponse(g.Average),
		Min:         toGradeValueResponse(g.Min),
		Max:         toGradeValueResponse(g.Max),
	}
}

// toGradeValueResponse maps undefined slots to JSON null; NaN is not
// representable in JSON.
func toGradeValueResponse(v domain.GradeValue) gradeValueResponse {
	if !v.Defined() {
		return gradeValueResponse{Value: nil, Disabled: true}
	}
	value := v.Value
	return gradeValueResponse{Value: &value, Disabled: false}
}
