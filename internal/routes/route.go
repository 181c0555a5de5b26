package routes

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/joshua-takyi/airportcar/internal/container"
	"github.com/joshua-takyi/airportcar/internal/handlers"
	"github.com/joshua-takyi/airportcar/internal/middleware"
)

// SetupRoutes configures all routes with the dependency container
func SetupRoutes(ct *container.Container) *gin.Engine {
	cfg := ct.Config
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	secure := cfg.IsProduction()

	r := gin.New()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", middleware.EditModeHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
	}))

	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(ct.Logger))
	r.Use(middleware.ErrorHandler(ct.Logger))
	r.Use(gin.Recovery())

	// provider callbacks authenticate by signature, not session
	if ct.Payments != nil {
		r.POST("/api/v1/payments/webhook", handlers.PaymentWebhook(ct.Payments, ct.BookingService, ct.Logger))
	}

	v1 := r.Group("/api/v1")
	v1.Use(middleware.Authenticate(ct.TokenValidator, ct.UserService, secure, ct.Logger))
	{
		v1.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":  "OK",
				"service": "airportcar-api",
			})
		})

		v1.POST("/signup", handlers.Signup(ct.UserService))
		v1.POST("/login", handlers.Login(ct.UserService, secure))
		v1.POST("/logout", handlers.Logout(secure))

		v1.POST("/fare", handlers.CalculateFare(ct.BookingService, secure))
		v1.GET("/places/autocomplete", handlers.Autocomplete(ct.FareService))
		v1.GET("/cms", handlers.GetCMS(ct.CMSService))
	}

	bookings := v1.Group("/bookings")
	{
		bookings.POST("", handlers.CreateBooking(ct.BookingService))
		bookings.GET("/:id", handlers.GetBooking(ct.BookingService))
		bookings.GET("/:id/form", handlers.GetBookingForm(ct.BookingService))
		bookings.PUT("/:id", handlers.UpdateBooking(ct.BookingService))
		bookings.POST("/:id/cancel", handlers.CancelBooking(ct.BookingService))
		bookings.GET("/:id/receipt", handlers.DownloadReceipt(ct.BookingService, ct.ReceiptService))
		bookings.POST("/:id/feedback", handlers.SubmitFeedback(ct.BookingService, ct.FeedbackService))
	}

	me := v1.Group("/me")
	me.Use(middleware.RequireAuth())
	{
		me.GET("", handlers.Me(ct.UserService))
		me.PATCH("", handlers.UpdateMe(ct.UserService))
		me.GET("/bookings", handlers.MyBookings(ct.BookingService))
	}

	admin := v1.Group("/admin")
	admin.Use(middleware.RequireAdmin(cfg, ct.Logger))
	{
		admin.GET("/overview", handlers.AdminOverview(ct.AdminService))
		admin.GET("/feedback", handlers.AdminListFeedback(ct.AdminService))

		admin.GET("/bookings", handlers.AdminListBookings(ct.AdminService))
		admin.GET("/bookings/:id", handlers.AdminGetBooking(ct.AdminService))
		admin.PATCH("/bookings/:id", handlers.AdminUpdateBookingField(ct.AdminService))
		admin.DELETE("/bookings/:id", handlers.AdminDeleteBooking(ct.AdminService))
		admin.POST("/bookings/:id/status", handlers.AdminUpdateBookingStatus(ct.AdminService))
		admin.POST("/bookings/:id/driver", handlers.AdminAssignDriver(ct.AdminService))

		admin.GET("/drivers", handlers.AdminListDrivers(ct.DriverService))
		admin.POST("/drivers", handlers.AdminCreateDriver(ct.DriverService))
		admin.GET("/drivers/:id", handlers.AdminGetDriver(ct.DriverService))
		admin.PATCH("/drivers/:id", handlers.AdminUpdateDriverField(ct.DriverService))
		admin.DELETE("/drivers/:id", handlers.AdminDeleteDriver(ct.DriverService))
		admin.POST("/drivers/:id/status", handlers.AdminUpdateDriverStatus(ct.DriverService))

		admin.GET("/pricing", handlers.GetPricing(ct.SettingsService))
		admin.PUT("/pricing", handlers.UpdatePricing(ct.SettingsService))

		admin.PUT("/cms", handlers.UpdateCMSField(ct.CMSService))
		admin.PUT("/cms/pages/:key", handlers.UpdateCMSPage(ct.CMSService))
		admin.POST("/cms/images", handlers.UploadCMSImage(ct.CMSService))
	}

	return r
}
