package routes

import (
	"net/http"

	"curequeue-server/internal/config"
	"curequeue-server/internal/handlers"
	"curequeue-server/internal/middleware"
	"curequeue-server/internal/models"
	"curequeue-server/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Services bundles the domain services the HTTP layer needs.
type Services struct {
	Scheduler interface {
		handlers.AppointmentService
		handlers.QueueLister
	}
	HomeVisits handlers.HomeVisitService
	Reviews    interface {
		handlers.ReviewService
		handlers.RatingsService
	}
	Hub      *realtime.Hub
	Gatherer prometheus.Gatherer
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, svc Services) {
	authHandler := handlers.NewAuthHandler(db, cfg, svc.Reviews)
	userHandler := handlers.NewUserHandler(db, svc.Reviews)
	appointmentHandler := handlers.NewAppointmentHandler(svc.Scheduler)
	doctorHandler := handlers.NewDoctorHandler(db, svc.Scheduler, svc.Reviews)
	homeVisitHandler := handlers.NewHomeVisitHandler(svc.HomeVisits)
	reviewHandler := handlers.NewReviewHandler(svc.Reviews)
	queueStreamHandler := handlers.NewQueueStreamHandler(svc.Hub, cfg.Origin)

	public := router.Group("/api")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}

		// Public doctor directory
		public.GET("/doctor/ratings", doctorHandler.GetRatings)
	}

	private := router.Group("/api")
	private.Use(middleware.AuthMiddleware(cfg))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
			authRoutesPrivate.PUT("/profile", authHandler.UpdateProfile)

			userRoutes := authRoutesPrivate.Group("/users")
			userRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
			{
				userRoutes.GET("", userHandler.ListUsers)
				userRoutes.PUT("/:id", userHandler.UpdateUser)
				userRoutes.DELETE("/:id", userHandler.DeleteUser)
			}
		}

		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.POST("", middleware.RoleAuthMiddleware(models.RolePatient), appointmentHandler.CreateAppointment)
			appointmentRoutes.POST("/offline", middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin), appointmentHandler.CreateOfflineAppointment)
			appointmentRoutes.PATCH("/:id/complete", middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin), appointmentHandler.CompleteAppointment)
			// Ownership is checked by the scheduler
			appointmentRoutes.PATCH("/:id/cancel", appointmentHandler.CancelAppointment)
			appointmentRoutes.POST("/:id/waiting-time", middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin), appointmentHandler.UpdateWaitingTime)
		}

		doctorRoutes := private.Group("/doctor")
		{
			doctorRoutes.GET("/appointments", middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin), doctorHandler.GetAppointments)
			doctorRoutes.PATCH("/home-visit-fee", middleware.RoleAuthMiddleware(models.RoleDoctor), doctorHandler.UpdateHomeVisitFee)
		}

		homeVisitRoutes := private.Group("/home-visits")
		{
			homeVisitRoutes.POST("", middleware.RoleAuthMiddleware(models.RolePatient), homeVisitHandler.CreateHomeVisit)
			homeVisitRoutes.GET("", middleware.RoleAuthMiddleware(models.RoleAdmin), homeVisitHandler.GetAllHomeVisits)
			homeVisitRoutes.GET("/doctor/:doctorId", homeVisitHandler.GetDoctorHomeVisits)
			homeVisitRoutes.GET("/patient/:patientId", homeVisitHandler.GetPatientHomeVisits)
			homeVisitRoutes.PUT("/:id/accept", homeVisitHandler.AcceptHomeVisit)
			homeVisitRoutes.PUT("/:id/reject", homeVisitHandler.RejectHomeVisit)
			homeVisitRoutes.PUT("/:id/complete", homeVisitHandler.CompleteHomeVisit)
			homeVisitRoutes.PUT("/:id/cancel", homeVisitHandler.CancelHomeVisit)
		}

		reviewRoutes := private.Group("/reviews")
		{
			reviewRoutes.POST("", reviewHandler.AddReview)
			reviewRoutes.POST("/add", reviewHandler.AddReview)
			reviewRoutes.GET("/doctor/:doctorId", reviewHandler.GetDoctorReviews)
		}
	}

	// Read-only live queue for display boards
	router.GET("/ws/queue", queueStreamHandler.Stream)

	gatherer := svc.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})
}
