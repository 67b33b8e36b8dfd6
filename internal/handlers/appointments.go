package handlers

import (
	"context"

	"curequeue-server/internal/middleware"
	"curequeue-server/internal/models"
	"curequeue-server/internal/scheduler"
	"curequeue-server/internal/utils"

	"github.com/gin-gonic/gin"
)

// AppointmentService is the scheduling core used by the appointment routes.
type AppointmentService interface {
	BookAppointment(ctx context.Context, patientID, doctorID, date, reason string) (*scheduler.BookingResult, error)
	BookOfflineAppointment(ctx context.Context, actor models.Actor, doctorID, patientName, phone, reason string) (*scheduler.BookingResult, error)
	CompleteAppointment(ctx context.Context, id string, actor models.Actor) (*models.Appointment, error)
	CancelAppointment(ctx context.Context, id string, actor models.Actor) (*models.Appointment, error)
	SetWaitingTime(ctx context.Context, id string, minutes int, actor models.Actor) (*models.Appointment, error)
}

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	Scheduler AppointmentService
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(s AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{Scheduler: s}
}

// CreateAppointmentRequest represents the request body for booking an appointment.
type CreateAppointmentRequest struct {
	DoctorID string `json:"doctorId" binding:"required"`
	Date     string `json:"date" binding:"required"`
	Reason   string `json:"reason" binding:"max=255"`
}

// BookingResponse is returned after a successful booking.
type BookingResponse struct {
	Appointment     *models.Appointment `json:"appointment"`
	AppointmentTime string              `json:"appointmentTime"`
	WaitingTime     int                 `json:"waitingTime"`
}

// CreateAppointment books the calling patient into a doctor's queue.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		utils.Unauthorized(c, "Unauthorized: Patient not found from token")
		return
	}

	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	result, err := h.Scheduler.BookAppointment(c.Request.Context(), actor.ID, req.DoctorID, req.Date, req.Reason)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Created(c, "Appointment booked successfully", BookingResponse{
		Appointment:     result.Appointment,
		AppointmentTime: result.LocalTime,
		WaitingTime:     result.WaitingTime,
	})
}

// CreateOfflineAppointmentRequest registers a walk-in patient.
type CreateOfflineAppointmentRequest struct {
	DoctorID    string `json:"doctorId"`
	PatientName string `json:"patientName" binding:"required,max=150"`
	Phone       string `json:"phone" binding:"max=32"`
	Reason      string `json:"reason" binding:"max=255"`
}

// CreateOfflineAppointment adds a walk-in patient to today's queue.
func (h *AppointmentHandler) CreateOfflineAppointment(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req CreateOfflineAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	result, err := h.Scheduler.BookOfflineAppointment(c.Request.Context(), actor, req.DoctorID, req.PatientName, req.Phone, req.Reason)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Created(c, "Offline appointment booked successfully", BookingResponse{
		Appointment:     result.Appointment,
		AppointmentTime: result.LocalTime,
		WaitingTime:     result.WaitingTime,
	})
}

// CompleteAppointment marks an appointment as completed.
func (h *AppointmentHandler) CompleteAppointment(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	appt, err := h.Scheduler.CompleteAppointment(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Appointment marked as completed", appt)
}

// CancelAppointment cancels an appointment.
func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	appt, err := h.Scheduler.CancelAppointment(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Appointment cancelled successfully", appt)
}

// UpdateWaitingTimeRequest carries a doctor's new estimate in minutes.
type UpdateWaitingTimeRequest struct {
	WaitingTime *int `json:"waitingTime" binding:"required"`
}

// UpdateWaitingTime overrides the waiting time of an appointment.
func (h *AppointmentHandler) UpdateWaitingTime(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req UpdateWaitingTimeRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appt, err := h.Scheduler.SetWaitingTime(c.Request.Context(), c.Param("id"), *req.WaitingTime, actor)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Waiting time updated", appt)
}
