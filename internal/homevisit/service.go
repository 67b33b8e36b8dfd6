package homevisit

import (
	"context"
	"strings"
	"time"

	"curequeue-server/internal/apperrors"
	"curequeue-server/internal/metrics"
	"curequeue-server/internal/models"
	"curequeue-server/internal/notify"

	"github.com/rs/zerolog"
)

// Notifier queues an email without waiting for delivery.
type Notifier interface {
	Dispatch(n notify.Notification) bool
}

// CreateInput is a patient's home visit request.
type CreateInput struct {
	DoctorID      string
	Address       string
	Reason        string
	Date          time.Time
	Latitude      *float64
	Longitude     *float64
	PreferredTime *time.Time
	Notes         string
}

type Service struct {
	store    Store
	notifier Notifier
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

func NewService(store Store, notifier Notifier, m *metrics.Metrics, logger zerolog.Logger) *Service {
	return &Service{store: store, notifier: notifier, metrics: m, logger: logger}
}

// Create records a Pending request from the calling patient.
func (s *Service) Create(ctx context.Context, actor models.Actor, in CreateInput) (*models.HomeVisit, error) {
	if actor.Role != models.RolePatient {
		return nil, apperrors.Forbidden("Only patients can request home visits")
	}
	address := strings.TrimSpace(in.Address)
	reason := strings.TrimSpace(in.Reason)
	if in.DoctorID == "" || address == "" || reason == "" || in.Date.IsZero() {
		return nil, apperrors.InvalidInput("Missing required fields")
	}

	doctor, err := s.store.FindUser(ctx, in.DoctorID)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, apperrors.NotFound("Doctor not found")
		}
		return nil, apperrors.Unexpected("Failed to load doctor", err)
	}
	if doctor.Role != models.RoleDoctor {
		return nil, apperrors.NotFound("Doctor not found")
	}

	visit := &models.HomeVisit{
		PatientID:     actor.ID,
		DoctorID:      in.DoctorID,
		Address:       address,
		Reason:        reason,
		Date:          in.Date,
		Latitude:      in.Latitude,
		Longitude:     in.Longitude,
		PreferredTime: in.PreferredTime,
		Notes:         strings.TrimSpace(in.Notes),
		Status:        models.HomeVisitPending,
	}
	if err := s.store.Create(ctx, visit); err != nil {
		return nil, apperrors.Unexpected("Failed to create home visit request", err)
	}
	visit.Doctor = doctor

	s.logger.Info().Str("home_visit_id", visit.ID).Str("doctor_id", visit.DoctorID).Msg("home visit requested")
	return visit, nil
}

// ListAll returns every request. Admin only.
func (s *Service) ListAll(ctx context.Context, actor models.Actor) ([]models.HomeVisit, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("Access denied")
	}
	return s.list(ctx, Filter{})
}

// ListForDoctor returns the requests addressed to doctorID.
func (s *Service) ListForDoctor(ctx context.Context, actor models.Actor, doctorID string) ([]models.HomeVisit, error) {
	if !actor.IsAdmin() && actor.ID != doctorID {
		return nil, apperrors.Forbidden("Access denied")
	}
	return s.list(ctx, Filter{DoctorID: doctorID})
}

// ListForPatient returns the requests made by patientID.
func (s *Service) ListForPatient(ctx context.Context, actor models.Actor, patientID string) ([]models.HomeVisit, error) {
	if !actor.IsAdmin() && actor.ID != patientID {
		return nil, apperrors.Forbidden("Access denied")
	}
	return s.list(ctx, Filter{PatientID: patientID})
}

func (s *Service) list(ctx context.Context, filter Filter) ([]models.HomeVisit, error) {
	visits, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, apperrors.Unexpected("Failed to load home visits", err)
	}
	return visits, nil
}

// Accept moves a Pending request to Accepted. etaMinutes is optional.
func (s *Service) Accept(ctx context.Context, actor models.Actor, id string, etaMinutes *int) (*models.HomeVisit, error) {
	if etaMinutes != nil && *etaMinutes < 0 {
		return nil, apperrors.InvalidInput("etaMinutes must not be negative")
	}
	updates := map[string]interface{}{}
	if etaMinutes != nil {
		updates["eta_minutes"] = *etaMinutes
	}
	visit, err := s.doctorTransition(ctx, actor, id, models.HomeVisitAccepted, updates)
	if err != nil {
		return nil, err
	}
	visit.ETAMinutes = etaMinutes
	s.notifyPatient(visit, notify.KindHomeVisitAccepted)
	return visit, nil
}

// Reject moves a Pending request to Rejected.
func (s *Service) Reject(ctx context.Context, actor models.Actor, id string) (*models.HomeVisit, error) {
	visit, err := s.doctorTransition(ctx, actor, id, models.HomeVisitRejected, nil)
	if err != nil {
		return nil, err
	}
	s.notifyPatient(visit, notify.KindHomeVisitRejected)
	return visit, nil
}

// Complete moves an Accepted visit to Completed.
func (s *Service) Complete(ctx context.Context, actor models.Actor, id string) (*models.HomeVisit, error) {
	visit, err := s.doctorTransition(ctx, actor, id, models.HomeVisitCompleted, nil)
	if err != nil {
		return nil, err
	}
	s.notifyPatient(visit, notify.KindHomeVisitCompleted)
	return visit, nil
}

// Cancel withdraws a Pending or Accepted visit on behalf of the requesting
// patient or an admin.
func (s *Service) Cancel(ctx context.Context, actor models.Actor, id string) (*models.HomeVisit, error) {
	visit, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && actor.ID != visit.PatientID {
		return nil, apperrors.Forbidden("Access denied")
	}
	if visit.Status == models.HomeVisitCompleted {
		return nil, apperrors.InvalidInput("Cannot cancel a completed visit")
	}
	if err := s.apply(ctx, visit, models.HomeVisitCancelled, nil); err != nil {
		return nil, err
	}
	return visit, nil
}

func (s *Service) doctorTransition(ctx context.Context, actor models.Actor, id string, to models.HomeVisitStatus, updates map[string]interface{}) (*models.HomeVisit, error) {
	visit, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && actor.ID != visit.DoctorID {
		return nil, apperrors.Forbidden("Access denied")
	}
	if err := s.apply(ctx, visit, to, updates); err != nil {
		return nil, err
	}
	return visit, nil
}

func (s *Service) apply(ctx context.Context, visit *models.HomeVisit, to models.HomeVisitStatus, updates map[string]interface{}) error {
	if !CanTransition(visit.Status, to) {
		return apperrors.Conflict("Home visit is already " + string(visit.Status))
	}

	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to

	changed, err := s.store.UpdateIfStatus(ctx, visit.ID, sources(to), updates)
	if err != nil {
		return apperrors.Unexpected("Failed to update home visit", err)
	}
	if !changed {
		return apperrors.Conflict("Home visit was changed by another request")
	}

	from := visit.Status
	visit.Status = to
	s.metrics.ObserveTransition("home_visit", string(to))
	s.logger.Info().Str("home_visit_id", visit.ID).Str("from", string(from)).Str("to", string(to)).Msg("home visit status changed")
	return nil
}

func (s *Service) get(ctx context.Context, id string) (*models.HomeVisit, error) {
	visit, err := s.store.Get(ctx, id)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, apperrors.NotFound("Home visit request not found")
		}
		return nil, apperrors.Unexpected("Failed to load home visit", err)
	}
	return visit, nil
}

// notifyPatient is best effort; a visit without a loaded patient is skipped.
func (s *Service) notifyPatient(visit *models.HomeVisit, kind notify.Kind) {
	if s.notifier == nil || visit.Patient == nil {
		return
	}
	doctorName := ""
	if visit.Doctor != nil {
		doctorName = visit.Doctor.FullName()
	}
	s.notifier.Dispatch(notify.Notification{
		Kind:   kind,
		To:     visit.Patient.Email,
		ToName: visit.Patient.FullName(),
		Data: notify.HomeVisitDetails{
			PatientName: visit.Patient.FullName(),
			DoctorName:  doctorName,
			Date:        visit.Date.Format("2006-01-02"),
			Address:     visit.Address,
		},
	})
}
