// README: HTTP router registration.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"github.com/Peer-Ride/peer-ride-functions/internal/http/handlers"
	"github.com/Peer-Ride/peer-ride-functions/internal/http/middleware"
	"github.com/Peer-Ride/peer-ride-functions/internal/infra"
	"github.com/Peer-Ride/peer-ride-functions/internal/modules/captcha"
	"github.com/Peer-Ride/peer-ride-functions/internal/modules/signup"
	"github.com/Peer-Ride/peer-ride-functions/internal/modules/trip"
)

type RouterDeps struct {
	Trips       *trip.Service
	Captcha     *captcha.Verifier
	Signup      *signup.Checker
	Verifier    infra.TokenVerifier
	Log         *slog.Logger
	CORSOrigins []string
}

func NewRouter(d RouterDeps) http.Handler {
	r := gin.New()
	r.Use(middleware.Logging(d.Log), middleware.Recovery(d.Log))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	public := r.Group("/api")
	captchaHandler := handlers.NewCaptchaHandler(d.Captcha)
	public.POST("/captcha/verify", captchaHandler.Verify)
	signupHandler := handlers.NewSignupHandler(d.Signup)
	public.POST("/signup/check", signupHandler.Check)

	api := r.Group("/api", middleware.Auth(d.Verifier))
	tripHandler := handlers.NewTripHandler(d.Trips)
	api.POST("/trips", tripHandler.Create)
	api.GET("/trips/:id", tripHandler.Get)
	api.GET("/trips/:id/requests", tripHandler.ListRequests)
	api.POST("/trips/:id/requests", tripHandler.CreateRequest)
	api.GET("/requests/:id", tripHandler.GetRequest)
	api.POST("/requests/:id/accept", tripHandler.Accept)

	return cors.New(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
	}).Handler(r)
}
