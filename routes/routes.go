package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/nilsrambow/amrum-be/controllers"
	"github.com/nilsrambow/amrum-be/middleware"
)

// Controllers bundles the handlers mounted by SetupRouter.
type Controllers struct {
	Bookings    *controllers.BookingController
	Guests      *controllers.GuestController
	Pricing     *controllers.PricingController
	GuestAccess *controllers.GuestAccessController
	Auth        *controllers.AuthController
	Admin       *controllers.AdminController
}

// Options carries the middleware configuration.
type Options struct {
	CorsOrigins []string
	JWTSecret   string
	RateCounter middleware.Counter
	RateLimit   int
}

func SetupRouter(ctl Controllers, opts Options) *gin.Engine {
	controllers.RegisterValidators()

	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger())

	origins := opts.CorsOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	allowCredentials := true
	for _, origin := range origins {
		if origin == "*" {
			allowCredentials = false
			break
		}
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: allowCredentials,
		MaxAge:           12 * time.Hour,
	}))

	if opts.RateCounter != nil {
		r.Use(middleware.RateLimit(opts.RateCounter, opts.RateLimit, time.Minute))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.POST("/auth/login", ctl.Auth.Login)

		// magic-link access, authenticated by booking token
		guest := api.Group("/guest")
		{
			guest.GET("/booking", ctl.GuestAccess.GetBooking)
			guest.PUT("/booking/meter-readings", ctl.GuestAccess.SubmitMeterReadings)
		}

		staff := api.Group("", middleware.AdminAuth(opts.JWTSecret))

		bookings := staff.Group("/bookings")
		{
			bookings.GET("", ctl.Bookings.GetBookings)
			bookings.POST("", ctl.Bookings.CreateBooking)
			bookings.GET("/:id", ctl.Bookings.GetBooking)
			bookings.PATCH("/:id", ctl.Bookings.UpdateBooking)
			bookings.PUT("/:id/dates", ctl.Bookings.UpdateDates)
			bookings.POST("/:id/confirm", ctl.Bookings.ConfirmBooking)
			bookings.DELETE("/:id", ctl.Bookings.DeleteBooking)

			bookings.POST("/:id/meter-readings", ctl.Bookings.SaveMeterReadings)
			bookings.GET("/:id/meter-readings", ctl.Bookings.GetMeterReadings)
			bookings.POST("/:id/payments", ctl.Bookings.RegisterPayment)
			bookings.GET("/:id/payments", ctl.Bookings.ListPayments)

			bookings.POST("/:id/kurkarten/send", ctl.Bookings.SendKurkartenEmail)
			bookings.POST("/:id/pre-arrival/send", ctl.Bookings.SendPreArrivalEmail)
			bookings.POST("/:id/invoice/generate", ctl.Bookings.GenerateInvoice)
			bookings.POST("/:id/invoice/send", ctl.Bookings.SendInvoice)
			bookings.GET("/:id/invoice/preview", ctl.Bookings.PreviewInvoice)

			bookings.POST("/:id/token", ctl.Bookings.IssueToken)
			bookings.DELETE("/:id/token", ctl.Bookings.RevokeTokens)
			bookings.GET("/:id/communications", ctl.Bookings.Communications)
			bookings.POST("/:id/status/refresh", ctl.Bookings.RefreshStatus)
		}

		guests := staff.Group("/guests")
		{
			guests.GET("", ctl.Guests.GetGuests)
			guests.POST("", ctl.Guests.CreateGuest)
			guests.GET("/:id", ctl.Guests.GetGuestByID)
			guests.PATCH("/:id", ctl.Guests.UpdateGuest)
			guests.GET("/:id/bookings", ctl.Guests.GetGuestBookings)
		}

		pricing := staff.Group("/pricing")
		{
			pricing.POST("/:category", ctl.Pricing.CreatePrice)
			pricing.GET("/:category", ctl.Pricing.ListPrices)
		}

		alerts := staff.Group("/alerts")
		{
			alerts.GET("/emails", ctl.Admin.PendingEmails)
			alerts.GET("/actions", ctl.Admin.OutstandingActions)
		}

		dashboard := staff.Group("/dashboard")
		{
			dashboard.GET("/stats", ctl.Admin.Stats)
			dashboard.GET("/comparison", ctl.Admin.Comparison)
		}

		staff.POST("/admin/statuses/refresh", ctl.Admin.RefreshStatuses)
	}

	return r
}
