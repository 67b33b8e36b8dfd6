package handlers

import (
	"context"
	"time"

	"curequeue-server/internal/homevisit"
	"curequeue-server/internal/middleware"
	"curequeue-server/internal/models"
	"curequeue-server/internal/scheduler"
	"curequeue-server/internal/utils"

	"github.com/gin-gonic/gin"
)

// HomeVisitService manages home visit requests.
type HomeVisitService interface {
	Create(ctx context.Context, actor models.Actor, in homevisit.CreateInput) (*models.HomeVisit, error)
	ListAll(ctx context.Context, actor models.Actor) ([]models.HomeVisit, error)
	ListForDoctor(ctx context.Context, actor models.Actor, doctorID string) ([]models.HomeVisit, error)
	ListForPatient(ctx context.Context, actor models.Actor, patientID string) ([]models.HomeVisit, error)
	Accept(ctx context.Context, actor models.Actor, id string, etaMinutes *int) (*models.HomeVisit, error)
	Reject(ctx context.Context, actor models.Actor, id string) (*models.HomeVisit, error)
	Complete(ctx context.Context, actor models.Actor, id string) (*models.HomeVisit, error)
	Cancel(ctx context.Context, actor models.Actor, id string) (*models.HomeVisit, error)
}

// HomeVisitHandler handles home visit requests.
type HomeVisitHandler struct {
	Visits HomeVisitService
}

// NewHomeVisitHandler creates a new HomeVisitHandler.
func NewHomeVisitHandler(s HomeVisitService) *HomeVisitHandler {
	return &HomeVisitHandler{Visits: s}
}

// Location is an optional map position for the visit address.
type Location struct {
	Latitude  *float64 `json:"latitude" binding:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" binding:"omitempty,gte=-180,lte=180"`
}

// CreateHomeVisitRequest represents the request body for a home visit.
type CreateHomeVisitRequest struct {
	DoctorID      string     `json:"doctorId"`
	Address       string     `json:"address" binding:"max=255"`
	Reason        string     `json:"reason" binding:"max=255"`
	Date          string     `json:"date"`
	Location      *Location  `json:"location"`
	PreferredTime *time.Time `json:"preferredTime"`
	Notes         string     `json:"notes" binding:"max=2000"`
}

// parseVisitDate accepts a calendar date or a full RFC 3339 timestamp.
func parseVisitDate(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if t, err := time.Parse(scheduler.DateLayout, raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// CreateHomeVisit records a patient's request.
func (h *HomeVisitHandler) CreateHomeVisit(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req CreateHomeVisitRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	date, ok := parseVisitDate(req.Date)
	if !ok {
		utils.BadRequest(c, "Invalid date format")
		return
	}

	in := homevisit.CreateInput{
		DoctorID:      req.DoctorID,
		Address:       req.Address,
		Reason:        req.Reason,
		Date:          date,
		PreferredTime: req.PreferredTime,
		Notes:         req.Notes,
	}
	if req.Location != nil {
		in.Latitude = req.Location.Latitude
		in.Longitude = req.Location.Longitude
	}

	visit, err := h.Visits.Create(c.Request.Context(), actor, in)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Home Visit Request Submitted Successfully", visit)
}

// GetAllHomeVisits lists every request (admin).
func (h *HomeVisitHandler) GetAllHomeVisits(c *gin.Context) {
	h.respondList(c, func(ctx context.Context, actor models.Actor) ([]models.HomeVisit, error) {
		return h.Visits.ListAll(ctx, actor)
	})
}

// GetDoctorHomeVisits lists the requests addressed to a doctor.
func (h *HomeVisitHandler) GetDoctorHomeVisits(c *gin.Context) {
	h.respondList(c, func(ctx context.Context, actor models.Actor) ([]models.HomeVisit, error) {
		return h.Visits.ListForDoctor(ctx, actor, c.Param("doctorId"))
	})
}

// GetPatientHomeVisits lists the requests made by a patient.
func (h *HomeVisitHandler) GetPatientHomeVisits(c *gin.Context) {
	h.respondList(c, func(ctx context.Context, actor models.Actor) ([]models.HomeVisit, error) {
		return h.Visits.ListForPatient(ctx, actor, c.Param("patientId"))
	})
}

func (h *HomeVisitHandler) respondList(c *gin.Context, load func(context.Context, models.Actor) ([]models.HomeVisit, error)) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	visits, err := load(c.Request.Context(), actor)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Home visit requests fetched successfully", gin.H{"requests": visits})
}

// AcceptHomeVisitRequest optionally carries the doctor's arrival estimate.
type AcceptHomeVisitRequest struct {
	ETAMinutes *int `json:"etaMinutes"`
}

// AcceptHomeVisit accepts a pending request.
func (h *HomeVisitHandler) AcceptHomeVisit(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req AcceptHomeVisitRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequest(c, "Invalid request payload")
			return
		}
	}

	visit, err := h.Visits.Accept(c.Request.Context(), actor, c.Param("id"), req.ETAMinutes)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Home visit request accepted", visit)
}

// RejectHomeVisit rejects a pending request.
func (h *HomeVisitHandler) RejectHomeVisit(c *gin.Context) {
	h.respondTransition(c, h.Visits.Reject, "Home visit request rejected")
}

// CompleteHomeVisit marks an accepted visit as done.
func (h *HomeVisitHandler) CompleteHomeVisit(c *gin.Context) {
	h.respondTransition(c, h.Visits.Complete, "Home visit marked as completed")
}

// CancelHomeVisit cancels a pending or accepted request.
func (h *HomeVisitHandler) CancelHomeVisit(c *gin.Context) {
	h.respondTransition(c, h.Visits.Cancel, "Home visit request cancelled")
}

func (h *HomeVisitHandler) respondTransition(c *gin.Context, move func(context.Context, models.Actor, string) (*models.HomeVisit, error), msg string) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	visit, err := move(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, msg, visit)
}
