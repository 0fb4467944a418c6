package api

import (
	"database/sql"
	"log"
	stdhttp "net/http"

	"billing/internal/config"
	"billing/internal/gateway"
	h "billing/internal/http/handlers"
	"billing/internal/http/middleware"
	"billing/internal/notify"
	"billing/internal/resource"
	"billing/internal/resources"
	"billing/internal/services"
	"billing/internal/tasks"

	"github.com/gin-gonic/gin"
)

// NewRouter wires middleware, services, and every mounted resource.
func NewRouter(env config.Env, db *sql.DB, runner *tasks.Runner) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery(), middleware.CORS())

	if err := r.SetTrustedProxies(nil); err != nil {
		log.Printf("warning: failed to set trusted proxies: %v", err)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	sms := notify.NewSMSClient(env.SMSURL, env.SMSKey, env.SMSSender)
	shortener := notify.NewShortener(env.ShortenerURL, env.ShortenerKey, env.ShortenerDomain)
	gw := gateway.NewClient(env.GatewayURL, env.GatewayKey, env.GatewaySecret)
	dueSvc := services.DueService{DB: db, Tasks: runner, Gateway: gw, SMS: sms, Shortener: shortener}
	otp := services.NewOTPService(sms)

	dues := resources.NewDues(db, dueSvc.AfterDuesSaved)
	payments := resources.NewPayments(db)
	users := resources.NewUsers(db)
	links := resources.NewCustomerLinks(db)

	authH := h.AuthHandler{DB: db, Secret: env.JWTSecret}
	customersH := h.CustomerHandler{DB: db, OTP: otp}
	invoiceH := h.InvoiceHandler{DB: db}
	webhookH := h.WebhookHandler{DB: db}

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/db-check", h.DBCheck)

		auth := api.Group("/auth")
		auth.POST("/login", authH.Login)
		auth.POST("/register", authH.Register)

		// gateway callbacks authenticate by payload, not by session
		api.POST("/webhooks/payments", webhookH.Payment)

		authed := api.Group("", middleware.Auth(env.JWTSecret))
		{
			duesGroup := authed.Group("/dues")
			resource.Mount(duesGroup, dues)
			duesGroup.GET("/:id/invoice", invoiceH.Get)

			resource.Mount(authed.Group("/payments"), payments,
				resource.MethodList, resource.MethodFetch)

			usersGroup := authed.Group("/users", middleware.AcceptRoles("admin", "owner", "staff"))
			resource.Mount(usersGroup, users)

			resource.MountAssociation(authed.Group("/customer-links"), links)

			customers := authed.Group("/customers")
			customers.POST("/register", customersH.Register)
			customers.POST("/verify", customersH.Verify)
		}
	}

	return r
}
