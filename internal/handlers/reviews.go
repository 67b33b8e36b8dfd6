package handlers

import (
	"context"

	"curequeue-server/internal/middleware"
	"curequeue-server/internal/models"
	"curequeue-server/internal/reviews"
	"curequeue-server/internal/utils"

	"github.com/gin-gonic/gin"
)

// ReviewService records and lists patient reviews.
type ReviewService interface {
	AddReview(ctx context.Context, actor models.Actor, in reviews.AddInput) (*models.Review, error)
	ListDoctorReviews(ctx context.Context, actor models.Actor, doctorID string) ([]models.Review, error)
}

// ReviewHandler handles review requests.
type ReviewHandler struct {
	Reviews ReviewService
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(s ReviewService) *ReviewHandler {
	return &ReviewHandler{Reviews: s}
}

// AddReviewRequest is a patient's rating of a completed visit.
type AddReviewRequest struct {
	AppointmentID string `json:"appointmentId" binding:"required"`
	DoctorID      string `json:"doctorId"`
	Rating        int    `json:"rating" binding:"required,min=1,max=5"`
	Comment       string `json:"comment" binding:"max=1000"`
}

// AddReview stores a review for one of the caller's appointments.
func (h *ReviewHandler) AddReview(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req AddReviewRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	review, err := h.Reviews.AddReview(c.Request.Context(), actor, reviews.AddInput{
		AppointmentID: req.AppointmentID,
		DoctorID:      req.DoctorID,
		Rating:        req.Rating,
		Comment:       req.Comment,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Review submitted successfully", review)
}

// GetDoctorReviews lists the reviews left for a doctor.
func (h *ReviewHandler) GetDoctorReviews(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	list, err := h.Reviews.ListDoctorReviews(c.Request.Context(), actor, c.Param("doctorId"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Reviews fetched successfully", gin.H{"reviews": list, "count": len(list)})
}
