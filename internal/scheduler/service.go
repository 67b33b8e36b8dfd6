package scheduler

import (
	"context"
	"strings"
	"time"

	"curequeue-server/internal/apperrors"
	"curequeue-server/internal/metrics"
	"curequeue-server/internal/models"
	"curequeue-server/internal/notify"
	"curequeue-server/internal/realtime"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const DefaultServiceMinutes = 5

var tracer = otel.Tracer("curequeue-server/internal/scheduler")

// Notifier queues an email without waiting for delivery.
type Notifier interface {
	Dispatch(n notify.Notification) bool
}

// Publisher fans queue changes out to display clients.
type Publisher interface {
	Publish(ev realtime.QueueEvent)
}

// Options configures a Scheduler. Only Store is required.
type Options struct {
	Store          Store
	Clock          Clock
	Location       *time.Location
	ServiceMinutes int
	Notifier       Notifier
	Publisher      Publisher
	Metrics        *metrics.Metrics
	Logger         zerolog.Logger
}

// Scheduler assigns queue tokens, estimates waiting times and moves
// appointments through their lifecycle.
type Scheduler struct {
	store          Store
	clock          Clock
	loc            *time.Location
	serviceMinutes int
	notifier       Notifier
	publisher      Publisher
	metrics        *metrics.Metrics
	logger         zerolog.Logger
}

// BookingResult is returned by a successful booking.
type BookingResult struct {
	Appointment *models.Appointment
	LocalTime   string
	WaitingTime int
}

func New(opts Options) *Scheduler {
	s := &Scheduler{
		store:          opts.Store,
		clock:          opts.Clock,
		loc:            opts.Location,
		serviceMinutes: opts.ServiceMinutes,
		notifier:       opts.Notifier,
		publisher:      opts.Publisher,
		metrics:        opts.Metrics,
		logger:         opts.Logger,
	}
	if s.clock == nil {
		s.clock = SystemClock{}
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.serviceMinutes <= 0 {
		s.serviceMinutes = DefaultServiceMinutes
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	if s.publisher == nil {
		s.publisher = nopPublisher{}
	}
	return s
}

// Today returns the clinic's current civil date.
func (s *Scheduler) Today() string {
	date, _ := CivilNow(s.clock, s.loc)
	return date
}

// BookAppointment books the next place in doctorID's queue on date for a
// registered patient.
func (s *Scheduler) BookAppointment(ctx context.Context, patientID, doctorID, date, reason string) (*BookingResult, error) {
	if patientID == "" {
		return nil, apperrors.Unauthenticated("Authentication required")
	}
	return s.Book(ctx, OnlinePatient{ID: patientID}, doctorID, date, reason)
}

// BookOfflineAppointment registers a walk-in patient in today's queue. A
// doctor always books into their own queue; an admin must name the doctor.
func (s *Scheduler) BookOfflineAppointment(ctx context.Context, actor models.Actor, doctorID, patientName, phone, reason string) (*BookingResult, error) {
	switch actor.Role {
	case models.RoleDoctor:
		doctorID = actor.ID
	case models.RoleAdmin:
	default:
		return nil, apperrors.Forbidden("Only doctors can register walk-in patients")
	}

	patientName = strings.TrimSpace(patientName)
	if patientName == "" {
		return nil, apperrors.InvalidInput("patientName is required")
	}
	return s.Book(ctx, OfflinePatient{Name: patientName, Phone: strings.TrimSpace(phone)}, doctorID, s.Today(), reason)
}

// Book takes the next token for (doctorID, date) and inserts the appointment
// in the same transaction. The waiting time is the number of active
// appointments already queued times the per-patient service minutes.
// Tokens never repeat within a queue day, even after cancellations, while
// the waiting time counts only active appointments.
func (s *Scheduler) Book(ctx context.Context, booker Booker, doctorID, date, reason string) (result *BookingResult, err error) {
	ctx, span := tracer.Start(ctx, "scheduler.Book", trace.WithAttributes(
		attribute.String("doctor.id", doctorID),
		attribute.String("queue.date", date),
	))
	defer func() { endSpan(span, err) }()

	if doctorID == "" || date == "" {
		return nil, apperrors.InvalidInput("doctorId and date are required")
	}
	if _, perr := ParseDate(date); perr != nil {
		return nil, apperrors.InvalidInput("date must be formatted as YYYY-MM-DD")
	}

	today, localTime := CivilNow(s.clock, s.loc)
	if date < today {
		return nil, apperrors.InvalidInput("Appointment date must be today or later")
	}

	doctor, err := s.findUser(ctx, doctorID, "Doctor not found")
	if err != nil {
		return nil, err
	}
	if doctor.Role != models.RoleDoctor {
		return nil, apperrors.NotFound("Doctor not found")
	}

	var patient *models.User
	if online, ok := booker.(OnlinePatient); ok {
		patient, err = s.findUser(ctx, online.ID, "Patient not found")
		if err != nil {
			if apperrors.Is(err, apperrors.KindNotFound) {
				return nil, apperrors.Unauthenticated("User not found")
			}
			return nil, err
		}
	}

	appt := &models.Appointment{
		DoctorID: doctorID,
		Date:     date,
		Time:     localTime,
		Status:   models.StatusConfirmed,
		Reason:   strings.TrimSpace(reason),
	}
	booker.apply(appt)

	err = s.store.Transaction(ctx, func(tx Store) error {
		token, err := tx.NextToken(ctx, doctorID, date)
		if err != nil {
			return err
		}
		active, err := tx.CountActive(ctx, doctorID, date)
		if err != nil {
			return err
		}
		appt.Token = token
		appt.WaitingTime = active * s.serviceMinutes
		return tx.CreateAppointment(ctx, appt)
	})
	if err != nil {
		if models.IsDuplicate(err) {
			return nil, apperrors.Conflict("Queue is busy, please retry")
		}
		return nil, apperrors.Unexpected("Failed to book appointment", err)
	}

	kind := "online"
	if appt.IsOffline {
		kind = "offline"
	}
	s.metrics.ObserveBooking(kind)
	span.SetAttributes(attribute.Int("queue.token", appt.Token))

	s.logger.Info().
		Str("appointment_id", appt.ID).
		Str("doctor_id", doctorID).
		Str("date", date).
		Int("token", appt.Token).
		Int("waiting_time", appt.WaitingTime).
		Str("kind", kind).
		Msg("appointment booked")

	if patient != nil {
		s.notifier.Dispatch(notify.Notification{
			Kind:   notify.KindAppointmentConfirmed,
			To:     patient.Email,
			ToName: patient.FullName(),
			Data:   details(appt, patient.FullName(), doctor.FullName()),
		})
	}
	s.publish(realtime.EventBooked, appt)

	return &BookingResult{Appointment: appt, LocalTime: localTime, WaitingTime: appt.WaitingTime}, nil
}

// CompleteAppointment marks an active appointment completed. Other
// appointments in the queue keep their tokens and waiting times.
func (s *Scheduler) CompleteAppointment(ctx context.Context, id string, actor models.Actor) (appt *models.Appointment, err error) {
	ctx, span := tracer.Start(ctx, "scheduler.CompleteAppointment", trace.WithAttributes(attribute.String("appointment.id", id)))
	defer func() { endSpan(span, err) }()

	appt, err = s.getAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && actor.ID != appt.DoctorID {
		return nil, apperrors.Forbidden("Not authorized to complete this appointment")
	}
	if !appt.Status.CanMoveTo(models.StatusCompleted) {
		return nil, apperrors.Conflict("Appointment is already " + string(appt.Status))
	}

	if err := s.transition(ctx, appt, map[string]interface{}{"status": models.StatusCompleted}); err != nil {
		return nil, err
	}
	appt.Status = models.StatusCompleted

	s.metrics.ObserveTransition("appointment", string(models.StatusCompleted))
	s.publish(realtime.EventCompleted, appt)
	return appt, nil
}

// CancelAppointment cancels an active appointment on behalf of its doctor,
// its patient or an admin. The patient is always emailed; when the patient
// cancels, the doctor is told as well.
func (s *Scheduler) CancelAppointment(ctx context.Context, id string, actor models.Actor) (appt *models.Appointment, err error) {
	ctx, span := tracer.Start(ctx, "scheduler.CancelAppointment", trace.WithAttributes(attribute.String("appointment.id", id)))
	defer func() { endSpan(span, err) }()

	appt, err = s.getAppointment(ctx, id)
	if err != nil {
		return nil, err
	}

	isPatient := appt.HasPatient() && *appt.PatientID == actor.ID
	if !actor.IsAdmin() && actor.ID != appt.DoctorID && !isPatient {
		return nil, apperrors.Forbidden("Not authorized to cancel this appointment")
	}

	switch appt.Status {
	case models.StatusCompleted:
		return nil, apperrors.InvalidInput("Cannot cancel a completed appointment")
	case models.StatusCancelled:
		return nil, apperrors.Conflict("Appointment is already cancelled")
	}

	err = s.transition(ctx, appt, map[string]interface{}{
		"status":       models.StatusCancelled,
		"cancelled_by": actor.Role,
	})
	if err != nil {
		return nil, err
	}
	appt.Status = models.StatusCancelled
	appt.CancelledBy = actor.Role

	s.metrics.ObserveTransition("appointment", string(models.StatusCancelled))

	if isPatient {
		s.notifyPatient(ctx, appt, notify.KindCancelledByPatient)
		s.notifyDoctor(ctx, appt, notify.KindPatientCancelledNotice)
	} else {
		s.notifyPatient(ctx, appt, notify.KindCancelledByDoctor)
	}
	s.publish(realtime.EventCancelled, appt)
	return appt, nil
}

// SetWaitingTime overrides the estimate of an active appointment.
func (s *Scheduler) SetWaitingTime(ctx context.Context, id string, minutes int, actor models.Actor) (appt *models.Appointment, err error) {
	ctx, span := tracer.Start(ctx, "scheduler.SetWaitingTime", trace.WithAttributes(
		attribute.String("appointment.id", id),
		attribute.Int("waiting_time", minutes),
	))
	defer func() { endSpan(span, err) }()

	if minutes < 0 {
		return nil, apperrors.InvalidInput("waitingTime must be a non-negative number of minutes")
	}

	appt, err = s.getAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && actor.ID != appt.DoctorID {
		return nil, apperrors.Forbidden("Not authorized to update this appointment")
	}
	if !appt.Status.IsActive() {
		return nil, apperrors.Conflict("Appointment is already " + string(appt.Status))
	}

	if err := s.transition(ctx, appt, map[string]interface{}{"waiting_time": minutes}); err != nil {
		return nil, err
	}
	appt.WaitingTime = minutes

	s.notifyPatient(ctx, appt, notify.KindWaitingTimeUpdated)
	s.publish(realtime.EventWaitingTimeUpdated, appt)
	return appt, nil
}

// ListDoctorQueue returns the appointments of doctorID on date ordered by
// token. An empty date means the clinic's today.
func (s *Scheduler) ListDoctorQueue(ctx context.Context, doctorID, date string) ([]models.Appointment, error) {
	if doctorID == "" {
		return nil, apperrors.InvalidInput("doctorId is required")
	}
	if date == "" {
		date = s.Today()
	} else if _, err := ParseDate(date); err != nil {
		return nil, apperrors.InvalidInput("date must be formatted as YYYY-MM-DD")
	}

	appts, err := s.store.ListQueue(ctx, doctorID, date)
	if err != nil {
		return nil, apperrors.Unexpected("Failed to load queue", err)
	}
	return appts, nil
}

func (s *Scheduler) transition(ctx context.Context, appt *models.Appointment, updates map[string]interface{}) error {
	changed, err := s.store.UpdateIfStatus(ctx, appt.ID, models.ActiveStatuses, updates)
	if err != nil {
		return apperrors.Unexpected("Failed to update appointment", err)
	}
	if !changed {
		return apperrors.Conflict("Appointment is no longer active")
	}
	return nil
}

func (s *Scheduler) getAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("appointment id is required")
	}
	appt, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, apperrors.NotFound("Appointment not found")
		}
		return nil, apperrors.Unexpected("Failed to load appointment", err)
	}
	return appt, nil
}

func (s *Scheduler) findUser(ctx context.Context, id, notFound string) (*models.User, error) {
	user, err := s.store.FindUser(ctx, id)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, apperrors.NotFound(notFound)
		}
		return nil, apperrors.Unexpected("Failed to load user", err)
	}
	return user, nil
}

// notifyPatient emails the registered patient of appt. Lookup failures are
// logged and never fail the operation.
func (s *Scheduler) notifyPatient(ctx context.Context, appt *models.Appointment, kind notify.Kind) {
	if !appt.HasPatient() {
		return
	}
	patient, err := s.store.FindUser(ctx, *appt.PatientID)
	if err != nil {
		s.logger.Warn().Err(err).Str("appointment_id", appt.ID).Str("kind", string(kind)).Msg("skip notification, patient lookup failed")
		return
	}
	doctorName := ""
	if doctor, err := s.store.FindUser(ctx, appt.DoctorID); err == nil {
		doctorName = doctor.FullName()
	}

	s.notifier.Dispatch(notify.Notification{
		Kind:   kind,
		To:     patient.Email,
		ToName: patient.FullName(),
		Data:   details(appt, patient.FullName(), doctorName),
	})
}

func (s *Scheduler) notifyDoctor(ctx context.Context, appt *models.Appointment, kind notify.Kind) {
	doctor, err := s.store.FindUser(ctx, appt.DoctorID)
	if err != nil {
		s.logger.Warn().Err(err).Str("appointment_id", appt.ID).Str("kind", string(kind)).Msg("skip notification, doctor lookup failed")
		return
	}
	patientName := appt.PatientName
	if appt.HasPatient() {
		if patient, err := s.store.FindUser(ctx, *appt.PatientID); err == nil {
			patientName = patient.FullName()
		}
	}

	s.notifier.Dispatch(notify.Notification{
		Kind:   kind,
		To:     doctor.Email,
		ToName: doctor.FullName(),
		Data:   details(appt, patientName, doctor.FullName()),
	})
}

func (s *Scheduler) publish(eventType string, appt *models.Appointment) {
	s.publisher.Publish(realtime.QueueEvent{
		Type:          eventType,
		DoctorID:      appt.DoctorID,
		Date:          appt.Date,
		AppointmentID: appt.ID,
		Token:         appt.Token,
		Status:        string(appt.Status),
		WaitingTime:   appt.WaitingTime,
		OccurredAt:    s.clock.Now().UTC(),
	})
}

func details(appt *models.Appointment, patientName, doctorName string) notify.AppointmentDetails {
	return notify.AppointmentDetails{
		PatientName: patientName,
		DoctorName:  doctorName,
		Date:        appt.Date,
		Time:        appt.Time,
		Token:       appt.Token,
		WaitingTime: appt.WaitingTime,
		Status:      string(appt.Status),
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

type nopNotifier struct{}

func (nopNotifier) Dispatch(notify.Notification) bool { return false }

type nopPublisher struct{}

func (nopPublisher) Publish(realtime.QueueEvent) {}
