package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/yoockh/podcaster/config"
	"github.com/yoockh/podcaster/internal/api/handlers"
	"github.com/yoockh/podcaster/internal/api/routes"
	"github.com/yoockh/podcaster/internal/logger"
	"github.com/yoockh/podcaster/internal/observe"
	"github.com/yoockh/podcaster/internal/services"
)

func main() {
	settings, err := config.LoadSettings()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := logger.New(settings.Server.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "podcaster"})
	if err != nil {
		log.WithError(err).Fatal("telemetry init failed")
	}
	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		log.WithError(err).Fatal("metrics init failed")
	}

	repo, closeStore, err := openStore(settings, log)
	if err != nil {
		log.WithError(err).Fatal("session store init failed")
	}
	defer closeStore()

	infra, err := openInfra(settings, log)
	if err != nil {
		log.WithError(err).Fatal("redis init failed")
	}

	providers, err := openProviders(ctx, settings)
	if err != nil {
		log.WithError(err).Fatal("provider init failed")
	}
	defer providers.Close()

	publisher, closePublisher, err := openPublisher(ctx, settings)
	if err != nil {
		log.WithError(err).Fatal("publisher init failed")
	}
	defer closePublisher()

	sessions := services.NewSessionService(repo)
	pipeline := newPipeline(settings, log, metrics, sessions, infra, providers, publisher)

	queue, err := startQueue(ctx, settings, log, infra, pipeline)
	if err != nil {
		log.WithError(err).Fatal("finalize workers failed to start")
	}

	if settings.Server.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := routes.NewEngine(log)
	deps := routes.Deps{
		Podcast:  handlers.NewPodcastHandler(pipeline, sessions, queue, settings.Server.MaxUploadMB<<20),
		Session:  handlers.NewSessionHandler(sessions),
		WS:       handlers.NewWSHandler(sessions, infra.bus),
		MediaDir: settings.Server.MediaDir,
		MediaURL: settings.Publish.MediaURL,
	}
	if settings.Server.MetricsEnable {
		deps.Metrics = metrics
	}
	routes.RegisterRoutes(r, deps)

	srv := &http.Server{
		Addr:              ":" + settings.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.WithField("addr", srv.Addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		log.WithError(err).Warn("telemetry shutdown")
	}
}
