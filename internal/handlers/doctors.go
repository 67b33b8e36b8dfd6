package handlers

import (
	"context"

	"curequeue-server/internal/apperrors"
	"curequeue-server/internal/middleware"
	"curequeue-server/internal/models"
	"curequeue-server/internal/reviews"
	"curequeue-server/internal/scheduler"
	"curequeue-server/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// QueueLister reads a doctor's daily queue.
type QueueLister interface {
	ListDoctorQueue(ctx context.Context, doctorID, date string) ([]models.Appointment, error)
	Today() string
}

// RatingsService serves the public doctor directory.
type RatingsService interface {
	DoctorRatings(ctx context.Context) ([]reviews.DoctorRating, error)
	InvalidateRatings(ctx context.Context)
}

// DoctorHandler handles doctor dashboard requests.
type DoctorHandler struct {
	DB      *gorm.DB
	Queue   QueueLister
	Ratings RatingsService
}

// NewDoctorHandler creates a new DoctorHandler.
func NewDoctorHandler(db *gorm.DB, queue QueueLister, ratings RatingsService) *DoctorHandler {
	return &DoctorHandler{DB: db, Queue: queue, Ratings: ratings}
}

// DoctorQueueResponse is a doctor's queue for one day.
type DoctorQueueResponse struct {
	Date         string                 `json:"date"`
	Appointments []scheduler.QueueEntry `json:"appointments"`
}

// GetAppointments returns the caller's queue, or for admins the queue of the
// doctor named by the doctorId query parameter.
func (h *DoctorHandler) GetAppointments(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	doctorID := actor.ID
	if actor.IsAdmin() {
		doctorID = c.Query("doctorId")
		if doctorID == "" {
			utils.BadRequest(c, "doctorId query parameter is required")
			return
		}
	}

	date := c.Query("date")
	if date == "" {
		date = h.Queue.Today()
	}

	appts, err := h.Queue.ListDoctorQueue(c.Request.Context(), doctorID, date)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, "Appointments fetched successfully", DoctorQueueResponse{
		Date:         date,
		Appointments: scheduler.Entries(appts),
	})
}

// GetRatings lists every doctor with their average rating.
func (h *DoctorHandler) GetRatings(c *gin.Context) {
	doctors, err := h.Ratings.DoctorRatings(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Doctor ratings fetched successfully", gin.H{"doctors": doctors})
}

// UpdateHomeVisitFeeRequest sets or clears the caller's home visit fee.
type UpdateHomeVisitFeeRequest struct {
	HomeVisitFee *float64 `json:"homeVisitFee"`
}

// UpdateHomeVisitFee updates the logged-in doctor's fee. A null fee clears it.
func (h *DoctorHandler) UpdateHomeVisitFee(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req UpdateHomeVisitFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload")
		return
	}
	if req.HomeVisitFee != nil && *req.HomeVisitFee < 0 {
		utils.BadRequest(c, "Home visit fee must be a non-negative number")
		return
	}

	ctx := c.Request.Context()
	var doctor models.User
	if err := h.DB.WithContext(ctx).First(&doctor, "id = ? AND role = ?", actor.ID, models.RoleDoctor).Error; err != nil {
		if models.IsNotFound(err) {
			utils.NotFound(c, "Doctor not found")
			return
		}
		utils.RespondError(c, apperrors.Unexpected("Server error", err))
		return
	}

	if err := h.DB.WithContext(ctx).Model(&doctor).Update("home_visit_fee", req.HomeVisitFee).Error; err != nil {
		utils.RespondError(c, apperrors.Unexpected("Server error", err))
		return
	}
	h.Ratings.InvalidateRatings(ctx)

	utils.Success(c, "Home visit fee updated", gin.H{"homeVisitFee": req.HomeVisitFee})
}
