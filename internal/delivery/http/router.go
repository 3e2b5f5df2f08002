package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const defaultMaxBody = 1 << 20 // 1MB

type Options struct {
	AllowOrigins []string
	MaxBodyBytes int64
}

// NewRouter wires middleware and routes. db may be nil when the database is disabled.
func NewRouter(svc Assessor, models ModelManager, db HealthChecker, opts Options) *gin.Engine {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBody
	}
	if len(opts.AllowOrigins) == 0 {
		opts.AllowOrigins = []string{"*"}
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestID(),
		requestLogger(),
		limitBodySize(opts.MaxBodyBytes),
		cors.New(cors.Config{
			AllowOrigins:  opts.AllowOrigins,
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
			ExposeHeaders: []string{requestIDHeader},
			MaxAge:        12 * time.Hour,
		}),
	)

	h := NewHandler(svc, models, db)

	router.GET("/healthz", h.Healthz)
	router.GET("/readyz", h.Readyz)

	api := router.Group("/api")
	{
		api.POST("/predict", h.Predict)
		api.GET("/model", h.ModelInfo)
		api.POST("/model/reload", h.ReloadModel)
	}

	return router
}
