// Command serve is a dev HTTP server for the comic story pipeline.
//
// Routes:
//
//	POST /v1/comics         - run the pipeline, respond with the final output
//	POST /v1/comics/stream  - run the pipeline, stream AG-UI events over SSE
//	GET  /v1/comics         - list recent runs
//	GET  /v1/comics/:id     - one recent run
//	GET  /healthz           - health check
//
// Configuration is read like the comicflow command: an optional YAML file
// (-config), a .env file and COMICFLOW_* environment variables. Setting
// COMICFLOW_MQTT_BROKER publishes run events to that broker.
//
// Usage:
//
//	COMICFLOW_PROVIDER=anthropic go run ./cmd/serve
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/spetersoncode/comicflow/client"
	"github.com/spetersoncode/comicflow/config"
	"github.com/spetersoncode/comicflow/internal/notify"
	"github.com/spetersoncode/comicflow/internal/runs"
	"github.com/spetersoncode/comicflow/story"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("configuration error")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	c, err := client.New(ctx, cfg.Client())
	if err != nil {
		logrus.WithError(err).Fatal("failed to create client")
	}
	p, err := story.NewPipeline(cfg.Pipeline(), c)
	if err != nil {
		logrus.WithError(err).Fatal("failed to create pipeline")
	}

	var notifier *notify.Notifier
	if cfg.MQTT.Broker != "" {
		mq := notify.NewMQTT(cfg.MQTT.Broker, cfg.MQTT.ClientID)
		if err := mq.Connect(); err != nil {
			// Paho keeps retrying in the background.
			logrus.WithError(err).WithField("broker", mq.Broker()).Warn("mqtt connect failed")
		}
		defer mq.Close()
		notifier = notify.New(mq, cfg.MQTT.Topic)
	}

	s := NewServer(p, runs.New(cfg.Server.ResultTTL), notifier)
	s.provider = c.Provider()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           s.Router(gin.Default()),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      0, // SSE needs no write timeout
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logrus.WithFields(logrus.Fields{
			"port":     cfg.Server.Port,
			"provider": c.Provider(),
			"model":    c.Model(),
		}).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("shutdown error")
	}
	logrus.Info("server stopped")
}
