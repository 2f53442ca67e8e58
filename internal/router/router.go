// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/heimly/heimly-backend/internal/cache"
	"github.com/heimly/heimly-backend/internal/config"
	"github.com/heimly/heimly-backend/internal/handlers"
	"github.com/heimly/heimly-backend/internal/middleware"
	"github.com/heimly/heimly-backend/internal/services"
	"github.com/heimly/heimly-backend/internal/store"
	"github.com/heimly/heimly-backend/internal/utils"
)

func Initialize(db *gorm.DB, tokens cache.TokenCache, cfg *config.Config) *gin.Engine {
	// Initialize services
	st := store.NewGorm(db)
	notificationService := services.NewNotificationService(cfg)
	storageService, _ := services.NewStorageService(cfg)

	identityService := services.NewIdentityService(st, tokens, notificationService)
	documentService := services.NewDocumentService(st, notificationService)
	verificationService := services.NewVerificationService(st, notificationService)
	listingService := services.NewListingService(st)
	auditService := services.NewAuditService(st)
	authService := services.NewAuthService(st, cfg, identityService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, identityService)
	ownerHandler := handlers.NewOwnerHandler(identityService, storageService)
	listingHandler := handlers.NewListingHandler(listingService, verificationService, identityService, storageService)
	staffHandler := handlers.NewStaffHandler(identityService, documentService, verificationService, auditService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Frontend.BaseURL))
	r.Use(middleware.GeneralRateLimit())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", middleware.AuthRequired(), authHandler.Logout)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.GET("/verify-email/:token", authHandler.VerifyEmail)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetProfile)
		}

		// Owner KYC routes
		owner := v1.Group("/owner")
		owner.Use(middleware.AuthRequired())
		{
			owner.GET("/profile", ownerHandler.GetProfile)
			owner.PUT("/profile", ownerHandler.UpdateProfile)
			owner.POST("/profile/id-document", middleware.UploadRateLimit(), ownerHandler.UploadIDDocument)
			owner.POST("/verify-email", middleware.OTPRateLimit(), ownerHandler.RequestEmailVerification)
			owner.POST("/verify-phone", middleware.OTPRateLimit(), ownerHandler.RequestPhoneOTP)
			owner.POST("/verify-phone/confirm", ownerHandler.VerifyPhoneOTP)
		}

		// Listing routes
		listings := v1.Group("/listings")
		{
			listings.GET("", middleware.OptionalAuth(), listingHandler.Search)
			listings.GET("/dashboard", middleware.AuthRequired(), listingHandler.Dashboard)
			listings.GET("/:id", middleware.OptionalAuth(), listingHandler.Get)

			protected := listings.Group("")
			protected.Use(middleware.AuthRequired())
			{
				protected.POST("", listingHandler.Create)
				protected.PUT("/:id", listingHandler.Update)
				protected.POST("/:id/archive", listingHandler.Archive)
				protected.POST("/:id/photos", middleware.UploadRateLimit(), listingHandler.UploadPhoto)
				protected.PUT("/:id/photos/:photoId/primary", listingHandler.SetPrimaryPhoto)
				protected.DELETE("/:id/photos/:photoId", listingHandler.DeletePhoto)
				protected.POST("/:id/documents", middleware.UploadRateLimit(), listingHandler.UploadDocument)
				protected.GET("/:id/checklist", listingHandler.Checklist)
				protected.POST("/:id/submit", listingHandler.Submit)
				protected.GET("/:id/requests", listingHandler.Requests)
			}
		}

		// Staff routes
		staff := v1.Group("/staff")
		staff.Use(middleware.AuthRequired(), middleware.StaffRequired())
		{
			staff.GET("/queue", staffHandler.ReviewQueue)

			identities := staff.Group("/identities")
			{
				identities.GET("", staffHandler.PendingIdentities)
				identities.PUT("/:id/approve", staffHandler.ApproveIdentity)
				identities.PUT("/:id/reject", staffHandler.RejectIdentity)
				identities.PUT("/:id/verify-email", staffHandler.VerifyEmailByAdmin)
				identities.PUT("/:id/verify-phone", staffHandler.VerifyPhoneByAdmin)
				identities.POST("/bulk", staffHandler.BulkIdentities)
			}

			staffListings := staff.Group("/listings")
			{
				staffListings.PUT("/:id/approve", staffHandler.ApproveListing)
				staffListings.PUT("/:id/reject", staffHandler.RejectListing)
				staffListings.POST("/bulk", staffHandler.BulkListings)
			}

			documents := staff.Group("/documents")
			{
				documents.PUT("/:id/approve", staffHandler.ApproveDocument)
				documents.PUT("/:id/reject", staffHandler.RejectDocument)
				documents.POST("/bulk", staffHandler.BulkDocuments)
			}

			staff.GET("/audit/:subjectType/:subjectId", staffHandler.AuditTrail)
		}
	}

	// Static file serving (for development)
	if cfg.Environment == "development" {
		r.Static("/uploads", cfg.Upload.LocalDir)
	}

	return r
}
