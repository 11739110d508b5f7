package app

import (
	"github.com/osvaldoandrade/repozip/internal/controllers"
	"github.com/osvaldoandrade/repozip/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// multipartOverhead covers form boundaries and the competition field.
const multipartOverhead = 1 << 20

func SetupMappings(app *Application) {
	app.Engine.GET("/healthz", controllers.HealthHandler)
	app.Engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authed := app.Engine.Group("", middleware.AuthMiddleware(app.Validator))
	{
		authed.GET("/check",
			middleware.RateLimitMiddleware(app.Limiter, "check", app.Config.RateLimit.Check),
			controllers.NewCheckController(app.Submissions).Handle,
		)
		authed.POST("/submit",
			middleware.RateLimitMiddleware(app.Limiter, "submit", app.Config.RateLimit.Submit),
			middleware.BodyLimitMiddleware(app.Config.MaxUploadBytes+multipartOverhead),
			controllers.NewSubmitController(app.Submissions, app.Config.MaxUploadBytes).Handle,
		)
	}
}
