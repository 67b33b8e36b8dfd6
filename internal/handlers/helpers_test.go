package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"curequeue-server/internal/homevisit"
	"curequeue-server/internal/models"
	"curequeue-server/internal/reviews"
	"curequeue-server/internal/scheduler"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type apiResponse struct {
	Status  int                    `json:"status"`
	Message string                 `json:"msg"`
	Data    map[string]interface{} `json:"data"`
}

// withActor stands in for AuthMiddleware.
func withActor(actor *models.Actor) gin.HandlerFunc {
	return func(c *gin.Context) {
		if actor != nil {
			c.Set("userID", actor.ID)
			c.Set("userRole", actor.Role)
		}
		c.Next()
	}
}

func newTestEngine(actor *models.Actor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(withActor(actor))
	return r
}

func perform(t *testing.T, r http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var req *http.Request
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp apiResponse
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
	}
	return w, resp
}

type stubScheduler struct {
	mu sync.Mutex

	result *scheduler.BookingResult
	appt   *models.Appointment
	queue  []models.Appointment
	today  string
	err    error

	calls     []string
	patientID string
	doctorID  string
	date      string
	actor     models.Actor
	minutes   int
	id        string
}

func (s *stubScheduler) record(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, name)
}

func (s *stubScheduler) BookAppointment(ctx context.Context, patientID, doctorID, date, reason string) (*scheduler.BookingResult, error) {
	s.record("book")
	s.patientID, s.doctorID, s.date = patientID, doctorID, date
	return s.result, s.err
}

func (s *stubScheduler) BookOfflineAppointment(ctx context.Context, actor models.Actor, doctorID, patientName, phone, reason string) (*scheduler.BookingResult, error) {
	s.record("book-offline")
	s.actor, s.doctorID = actor, doctorID
	return s.result, s.err
}

func (s *stubScheduler) CompleteAppointment(ctx context.Context, id string, actor models.Actor) (*models.Appointment, error) {
	s.record("complete")
	s.id, s.actor = id, actor
	return s.appt, s.err
}

func (s *stubScheduler) CancelAppointment(ctx context.Context, id string, actor models.Actor) (*models.Appointment, error) {
	s.record("cancel")
	s.id, s.actor = id, actor
	return s.appt, s.err
}

func (s *stubScheduler) SetWaitingTime(ctx context.Context, id string, minutes int, actor models.Actor) (*models.Appointment, error) {
	s.record("waiting-time")
	s.id, s.minutes, s.actor = id, minutes, actor
	return s.appt, s.err
}

func (s *stubScheduler) ListDoctorQueue(ctx context.Context, doctorID, date string) ([]models.Appointment, error) {
	s.record("list")
	s.doctorID, s.date = doctorID, date
	return s.queue, s.err
}

func (s *stubScheduler) Today() string { return s.today }

type stubHomeVisits struct {
	visit  *models.HomeVisit
	visits []models.HomeVisit
	err    error

	calls []string
	input homevisit.CreateInput
	id    string
	eta   *int
	param string
}

func (s *stubHomeVisits) Create(ctx context.Context, actor models.Actor, in homevisit.CreateInput) (*models.HomeVisit, error) {
	s.calls = append(s.calls, "create")
	s.input = in
	return s.visit, s.err
}

func (s *stubHomeVisits) ListAll(ctx context.Context, actor models.Actor) ([]models.HomeVisit, error) {
	s.calls = append(s.calls, "list-all")
	return s.visits, s.err
}

func (s *stubHomeVisits) ListForDoctor(ctx context.Context, actor models.Actor, doctorID string) ([]models.HomeVisit, error) {
	s.calls = append(s.calls, "list-doctor")
	s.param = doctorID
	return s.visits, s.err
}

func (s *stubHomeVisits) ListForPatient(ctx context.Context, actor models.Actor, patientID string) ([]models.HomeVisit, error) {
	s.calls = append(s.calls, "list-patient")
	s.param = patientID
	return s.visits, s.err
}

func (s *stubHomeVisits) Accept(ctx context.Context, actor models.Actor, id string, etaMinutes *int) (*models.HomeVisit, error) {
	s.calls = append(s.calls, "accept")
	s.id, s.eta = id, etaMinutes
	return s.visit, s.err
}

func (s *stubHomeVisits) Reject(ctx context.Context, actor models.Actor, id string) (*models.HomeVisit, error) {
	s.calls = append(s.calls, "reject")
	s.id = id
	return s.visit, s.err
}

func (s *stubHomeVisits) Complete(ctx context.Context, actor models.Actor, id string) (*models.HomeVisit, error) {
	s.calls = append(s.calls, "complete")
	s.id = id
	return s.visit, s.err
}

func (s *stubHomeVisits) Cancel(ctx context.Context, actor models.Actor, id string) (*models.HomeVisit, error) {
	s.calls = append(s.calls, "cancel")
	s.id = id
	return s.visit, s.err
}

type stubReviews struct {
	review      *models.Review
	list        []models.Review
	ratings     []reviews.DoctorRating
	err         error
	input       reviews.AddInput
	doctorID    string
	invalidated int
}

func (s *stubReviews) AddReview(ctx context.Context, actor models.Actor, in reviews.AddInput) (*models.Review, error) {
	s.input = in
	return s.review, s.err
}

func (s *stubReviews) ListDoctorReviews(ctx context.Context, actor models.Actor, doctorID string) ([]models.Review, error) {
	s.doctorID = doctorID
	return s.list, s.err
}

func (s *stubReviews) DoctorRatings(ctx context.Context) ([]reviews.DoctorRating, error) {
	return s.ratings, s.err
}

func (s *stubReviews) InvalidateRatings(ctx context.Context) {
	s.invalidated++
}
