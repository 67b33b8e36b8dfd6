package reviews

import (
	"context"
	"strings"

	"curequeue-server/internal/apperrors"
	"curequeue-server/internal/models"

	"github.com/rs/zerolog"
)

// DoctorRating is a doctor's public rating summary.
type DoctorRating struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	AverageRating *float64 `json:"averageRating"`
	TotalReviews  int      `json:"totalReviews"`
	HomeVisitFee  *float64 `json:"homeVisitFee"`
}

// AddInput is a review submitted by a patient.
type AddInput struct {
	AppointmentID string
	DoctorID      string
	Rating        int
	Comment       string
}

type Service struct {
	store  Store
	cache  RatingsCache
	logger zerolog.Logger
}

func NewService(store Store, cache RatingsCache, logger zerolog.Logger) *Service {
	if cache == nil {
		cache = NopCache{}
	}
	return &Service{store: store, cache: cache, logger: logger}
}

// AverageRating rounds sum/count half-up to one decimal. It returns nil
// when there are no reviews.
func AverageRating(sum, count int64) *float64 {
	if count <= 0 {
		return nil
	}
	tenths := (sum*20 + count) / (2 * count)
	avg := float64(tenths) / 10
	return &avg
}

// AddReview records the caller's review of one of their appointments.
func (s *Service) AddReview(ctx context.Context, actor models.Actor, in AddInput) (*models.Review, error) {
	if in.AppointmentID == "" {
		return nil, apperrors.InvalidInput("Appointment ID and rating are required")
	}
	if in.Rating < 1 || in.Rating > 5 {
		return nil, apperrors.InvalidInput("Rating must be between 1 and 5")
	}

	appt, err := s.store.GetAppointment(ctx, in.AppointmentID)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, apperrors.NotFound("Appointment not found")
		}
		return nil, apperrors.Unexpected("Server error while submitting review", err)
	}
	if !appt.HasPatient() || *appt.PatientID != actor.ID {
		return nil, apperrors.Forbidden("You can only review your own appointments")
	}
	if in.DoctorID != "" && in.DoctorID != appt.DoctorID {
		return nil, apperrors.InvalidInput("doctorId does not match the appointment")
	}

	exists, err := s.store.HasReview(ctx, appt.ID, actor.ID)
	if err != nil {
		return nil, apperrors.Unexpected("Server error while submitting review", err)
	}
	if exists {
		return nil, apperrors.Conflict("You have already reviewed this appointment")
	}

	review := &models.Review{
		UserID:        actor.ID,
		PatientID:     actor.ID,
		DoctorID:      appt.DoctorID,
		AppointmentID: appt.ID,
		Rating:        in.Rating,
		Comment:       strings.TrimSpace(in.Comment),
	}
	if err := s.store.Create(ctx, review); err != nil {
		if models.IsDuplicate(err) {
			return nil, apperrors.Conflict("You have already reviewed this appointment")
		}
		return nil, apperrors.Unexpected("Server error while submitting review", err)
	}

	s.cache.Invalidate(ctx)
	s.logger.Info().Str("review_id", review.ID).Str("doctor_id", review.DoctorID).Int("rating", review.Rating).Msg("review added")
	return review, nil
}

// ListDoctorReviews returns a doctor's reviews, newest first. Only the doctor
// and admins may read them.
func (s *Service) ListDoctorReviews(ctx context.Context, actor models.Actor, doctorID string) ([]models.Review, error) {
	if !actor.IsAdmin() && actor.ID != doctorID {
		return nil, apperrors.Forbidden("Access denied")
	}
	reviews, err := s.store.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, apperrors.Unexpected("Server error while fetching reviews", err)
	}
	return reviews, nil
}

// DoctorRatings lists every doctor with their average rating.
func (s *Service) DoctorRatings(ctx context.Context) ([]DoctorRating, error) {
	if cached, ok := s.cache.Get(ctx); ok {
		return cached, nil
	}

	doctors, err := s.store.ListDoctors(ctx)
	if err != nil {
		return nil, apperrors.Unexpected("Server error while fetching doctor ratings", err)
	}
	aggs, err := s.store.Aggregates(ctx)
	if err != nil {
		return nil, apperrors.Unexpected("Server error while fetching doctor ratings", err)
	}

	byDoctor := make(map[string]Aggregate, len(aggs))
	for _, a := range aggs {
		byDoctor[a.DoctorID] = a
	}

	ratings := make([]DoctorRating, 0, len(doctors))
	for _, d := range doctors {
		agg := byDoctor[d.ID]
		ratings = append(ratings, DoctorRating{
			ID:            d.ID,
			Name:          d.FullName(),
			Email:         d.Email,
			AverageRating: AverageRating(agg.RatingSum, agg.Total),
			TotalReviews:  int(agg.Total),
			HomeVisitFee:  d.HomeVisitFee,
		})
	}

	s.cache.Set(ctx, ratings)
	return ratings, nil
}

// InvalidateRatings drops cached ratings, e.g. after a fee change.
func (s *Service) InvalidateRatings(ctx context.Context) {
	s.cache.Invalidate(ctx)
}
