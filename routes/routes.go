package routes

import (
	"strings"
	"time"

	"snaplink/handlers"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterAuthRoutes registers sign-in endpoints.
func RegisterAuthRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/auth")
	{
		api.POST("/login", hb.LoginHandler)
		api.POST("/logout", hb.RequireAuth, hb.LogoutHandler)
	}
}

// RegisterBookingRoutes sets up the booking wizard endpoints.
func RegisterBookingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	bookingGroup := r.Group("/api/booking")
	bookingGroup.Use(hb.RequireAuth)
	{
		bookingGroup.POST("/wizard", hb.StartBookingHandler)
		bookingGroup.GET("/wizard/:sessionID", hb.GetBookingWizard)
		bookingGroup.PATCH("/wizard/:sessionID", hb.UpdateBookingWizard)
		bookingGroup.DELETE("/wizard/:sessionID", hb.AbandonBookingHandler)
		bookingGroup.PUT("/wizard/:sessionID/date", hb.SelectDateHandler)
		bookingGroup.PUT("/wizard/:sessionID/discount", hb.ApplyDiscountHandler)
		bookingGroup.DELETE("/wizard/:sessionID/discount", hb.ClearDiscountHandler)
		bookingGroup.POST("/wizard/:sessionID/next", hb.NextBookingStep)
		bookingGroup.POST("/wizard/:sessionID/prev", hb.PrevBookingStep)
		bookingGroup.POST("/wizard/:sessionID/retry/:resource", hb.RetryFetchHandler)
		bookingGroup.POST("/wizard/:sessionID/submit", hb.SubmitBookingHandler)
		bookingGroup.GET("/:code", hb.GetBookingHandler)
	}
}

// RegisterRegistrationRoutes sets up the public sign-up wizard.
func RegisterRegistrationRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/registration")
	{
		api.POST("", hb.StartRegistrationHandler)
		api.GET("/:sessionID", hb.GetRegistrationHandler)
		api.PATCH("/:sessionID", hb.UpdateRegistrationHandler)
		api.DELETE("/:sessionID", hb.AbandonRegistrationHandler)
		api.POST("/:sessionID/next", hb.NextRegistrationStep)
		api.POST("/:sessionID/prev", hb.PrevRegistrationStep)
		api.POST("/:sessionID/submit", hb.SubmitRegistrationHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/health", hb.HealthHandler)
}

// corsConfig builds the CORS policy from a comma-separated origin list. A
// wildcard allows every origin without credentials.
func corsConfig(allowedOrigins string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	var origins []string
	for _, o := range strings.Split(allowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle, allowedOrigins string) {
	r.Use(cors.New(corsConfig(allowedOrigins)))

	RegisterHealthRoute(r, hb)
	RegisterAuthRoutes(r, hb)
	RegisterBookingRoutes(r, hb)
	RegisterRegistrationRoutes(r, hb)
}
