package handler

import (
	"bank-cards/internal/adapter/http/middleware"
	redisStore "bank-cards/internal/adapter/storage/redis"
	"bank-cards/internal/core/domain"
	"bank-cards/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	Mode           string // gin mode; empty means release
	Authenticator  ports.Authenticator
	AuthSvc        ports.AuthService
	CardSvc        ports.CardService
	CardAdminSvc   ports.CardAdminService
	UserSvc        ports.UserService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	mode := deps.Mode
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(middleware.DefaultMaxBodyBytes))

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	rules := middleware.DefaultRateLimitRules()
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1")

	// --- Public routes ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", rl("auth_register"), authHandler.Register)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
		auth.POST("/refresh", rl("auth_refresh"), authHandler.Refresh)
		auth.DELETE("/logout", authHandler.Logout)
	}

	authn := middleware.Authenticate(deps.Authenticator)

	// --- Card owner routes ---
	cardHandler := NewCardHandler(deps.CardSvc)
	cards := v1.Group("/cards", authn, middleware.RequireRole(domain.RoleUser))
	{
		cards.GET("", cardHandler.List)
		cards.POST("/transfer", rl("cards_write"), cardHandler.Transfer)
		cards.PATCH("/:id/deposit", rl("cards_write"), cardHandler.Deposit)
		cards.PATCH("/:id/block", rl("cards_write"), cardHandler.RequestBlock)
		cards.GET("/:id/balance", cardHandler.Balance)
		cards.GET("/:id/number", cardHandler.Number)
	}

	// --- Administrator routes ---
	admin := v1.Group("/admin", authn, middleware.RequireRole(domain.RoleAdmin))

	adminCardHandler := NewAdminCardHandler(deps.CardAdminSvc)
	adminCards := admin.Group("/cards")
	{
		adminCards.GET("", adminCardHandler.List)
		adminCards.POST("", adminCardHandler.Create)
		adminCards.DELETE("/:id", adminCardHandler.Delete)
		adminCards.PATCH("/:id/activate", adminCardHandler.Activate)
		adminCards.PATCH("/:id/block", adminCardHandler.Block)
	}

	adminUserHandler := NewAdminUserHandler(deps.UserSvc)
	adminUsers := admin.Group("/users")
	{
		adminUsers.GET("", adminUserHandler.ListUsers)
		adminUsers.GET("/admins", adminUserHandler.ListAdmins)
		adminUsers.GET("/:id", adminUserHandler.Get)
		adminUsers.POST("", adminUserHandler.CreateUser)
		adminUsers.POST("/admin", adminUserHandler.CreateAdmin)
		adminUsers.PATCH("/:id", adminUserHandler.Update)
		adminUsers.DELETE("/:id", adminUserHandler.Delete)
	}

	return r
}
