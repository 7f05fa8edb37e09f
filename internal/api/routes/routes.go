package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/podcaster/internal/api/handlers"
	"github.com/yoockh/podcaster/internal/api/middleware"
	"github.com/yoockh/podcaster/internal/observe"
)

type Deps struct {
	Podcast *handlers.PodcastHandler
	Session *handlers.SessionHandler
	WS      *handlers.WSHandler

	Metrics *observe.Metrics
	// MetricsHandler serves /metrics; nil uses the default prometheus
	// registry.
	MetricsHandler http.Handler
	MediaDir       string
	MediaURL       string
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	if d.Metrics != nil {
		r.Use(observe.GinMetrics(d.Metrics))
	}

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	metrics := d.MetricsHandler
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	r.GET("/metrics", gin.WrapH(metrics))

	if d.MediaDir != "" {
		prefix := d.MediaURL
		if prefix == "" || prefix[0] != '/' {
			prefix = "/media"
		}
		r.Static(prefix, d.MediaDir)
	}

	r.POST("/step1", d.Podcast.Initialize)
	r.POST("/step1/upload", d.Podcast.Upload)
	r.POST("/step2", d.Podcast.Extend)
	r.POST("/step3", d.Podcast.Finalize)

	r.GET("/sessions", d.Session.List)
	r.GET("/sessions/:session_id", d.Session.Get)

	r.GET("/ws/sessions/:session_id", d.WS.SessionWS)
}

// NewEngine returns a gin engine with recovery and request logging.
func NewEngine(log *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))
	return r
}
