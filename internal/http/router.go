package api

import (
	"log"
	stdhttp "net/http"

	"parkometr/internal/auth"
	intconfig "parkometr/internal/config"
	"parkometr/internal/domain"
	h "parkometr/internal/http/handlers"
	"parkometr/internal/http/middleware"
	"parkometr/internal/lpr"

	"github.com/gin-gonic/gin"
)

const loginAttemptsPerMinute = 10

func NewRouter(env intconfig.Env) *gin.Engine {
	tokens := auth.Tokens{Secret: []byte(env.JWTSecret), TTL: env.JWTTTL}
	h.Configure(h.Deps{
		Tokens:        tokens,
		LPR:           lpr.NewClient(env.LPRURL, env.LPRTimeout),
		LPRSamplesDir: env.LPRSamplesDir,
		PublicBaseURL: env.PublicBaseURL,
	})

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery(), middleware.CORS(env.CORSAllowedOrigins))

	if err := r.SetTrustedProxies(nil); err != nil {
		log.Printf("warning: failed to set trusted proxies: %v", err)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"success": false,
			"message": "route not found",
			"code":    "not_found",
			"path":    c.Request.URL.Path,
			"method":  c.Request.Method,
		})
	})

	plates := middleware.NewIPRateLimiter(env.LPRRatePerMinute)
	logins := middleware.NewIPRateLimiter(loginAttemptsPerMinute)

	r.POST("/login", logins.Limit(), h.Login)

	admin := r.Group("/admin", middleware.Authenticate(tokens), middleware.RequireRoles(domain.RoleAdmin))
	{
		admin.POST("/add-user", h.AddUser)
		admin.GET("/get-all-users", h.ListUsers)
		admin.POST("/charge-user", h.ChargeUser)
	}

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/db-check", h.DBCheck)
		api.GET("/routes", h.Routes)

		// Ledger
		api.GET("/parking-status", h.ParkingStatus)
		api.POST("/entry", middleware.OptionalAuthenticate(tokens), h.Entry)
		api.POST("/exit", middleware.OptionalAuthenticate(tokens), h.Exit)
		api.POST("/exit/immediate", h.ExitImmediate)
		api.GET("/history/:user_id", h.UserHistory)
		api.GET("/spot-history/:spot_id", h.SpotHistory)
		api.GET("/spots/:user_id", h.ActiveSessions)

		// Billing and reporting
		api.GET("/calculate-price/:hours", h.CalculatePrice)
		api.GET("/stats", h.Stats)

		// Tickets
		api.GET("/get-ticket/:token", h.GetTicket)
		api.GET("/get-ticket/:token/pdf", h.GetTicketPDF)

		api.GET("/user/:id", h.UserProfile)

		// Plate recognition
		api.POST("/analyze", plates.Limit(), h.AnalyzeUpload)
		api.GET("/analyze-random", plates.Limit(), h.AnalyzeRandom)
	}

	h.SetRouter(r)
	return r
}
