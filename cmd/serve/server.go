package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	aguievents "github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/spetersoncode/comicflow"
	"github.com/spetersoncode/comicflow/agui"
	"github.com/spetersoncode/comicflow/event"
	"github.com/spetersoncode/comicflow/internal/notify"
	"github.com/spetersoncode/comicflow/internal/runs"
	"github.com/spetersoncode/comicflow/story"
	"github.com/spetersoncode/comicflow/workflow"
)

// Server serves the story pipeline over HTTP.
type Server struct {
	pipeline *story.Pipeline
	runs     *runs.Registry
	notifier *notify.Notifier
	provider comicflow.Provider
}

// NewServer creates a server. A nil notifier disables event publishing.
func NewServer(p *story.Pipeline, registry *runs.Registry, notifier *notify.Notifier) *Server {
	return &Server{pipeline: p, runs: registry, notifier: notifier}
}

// Router registers the routes on r and returns it.
func (s *Server) Router(r *gin.Engine) *gin.Engine {
	r.Use(cors())
	r.GET("/healthz", s.health)

	v1 := r.Group("/v1")
	v1.POST("/comics", s.generate)
	v1.POST("/comics/stream", s.stream)
	v1.GET("/comics", s.list)
	v1.GET("/comics/:id", s.get)
	return r
}

type generateResponse struct {
	RunID       string             `json:"runId"`
	FinalOutput *story.FinalOutput `json:"finalOutput"`
}

func newRunID() string { return "run-" + uuid.NewString() }

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "provider": s.provider})
}

func (s *Server) generate(c *gin.Context) {
	var body json.RawMessage
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	id := newRunID()
	log := logrus.WithField("run_id", id)
	start := time.Now()
	s.runs.Start(id)
	log.Info("request started")

	opts := []workflow.Option{workflow.WithRunID(id)}
	var published <-chan struct{}
	if s.notifier != nil {
		events := event.NewChannel()
		opts = append(opts, workflow.WithEvents(events))
		published = s.publish(log, events, nil)
		defer func() { close(events); <-published }()
	}

	out, err := s.pipeline.Run(c.Request.Context(), body, opts...)
	s.runs.Finish(id, out, err)
	if err != nil {
		log.WithError(err).Warn("request failed")
		c.JSON(statusOf(err), gin.H{"runId": id, "error": err.Error()})
		return
	}

	log.WithField("duration_ms", time.Since(start).Milliseconds()).Info("request completed")
	c.JSON(http.StatusOK, generateResponse{RunID: id, FinalOutput: out})
}

func (s *Server) stream(c *gin.Context) {
	var body json.RawMessage
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	initial, err := story.DecodeRequest(body)
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}

	id := newRunID()
	log := logrus.WithField("run_id", id)
	start := time.Now()
	s.runs.Start(id)
	log.Info("stream started")

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	run := s.pipeline.Stream(c.Request.Context(), initial, workflow.WithRunID(id))
	in := run.Events()
	if s.notifier != nil {
		forward := make(chan event.Event, cap(run.Events()))
		published := s.publish(log, run.Events(), forward)
		defer func() { <-published }()
		in = forward
	}

	result := func() (any, error) {
		final, err := run.Wait()
		if err != nil {
			return nil, err
		}
		return story.OutputOf(final)
	}

	mapper := agui.NewMapper("", id)
	var sent int
	for ev := range mapper.MapRun(in, result) {
		if err := writeSSE(c.Writer, ev); err != nil {
			// The client went away; keep draining so the run can finish.
			log.WithError(err).Debug("sse write failed")
			continue
		}
		sent++
	}

	final, err := run.Wait()
	var out *story.FinalOutput
	if err == nil {
		out, err = story.OutputOf(final)
	}
	s.runs.Finish(id, out, err)

	entry := log.WithFields(logrus.Fields{
		"duration_ms": time.Since(start).Milliseconds(),
		"events_sent": sent,
	})
	if err != nil {
		entry.WithError(err).Warn("stream failed")
		return
	}
	entry.Info("stream completed")
}

func (s *Server) list(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"runs": s.runs.List()})
}

func (s *Server) get(c *gin.Context) {
	rec, err := s.runs.Lookup(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// publish notifies every event read from in and, when forward is not nil,
// passes it on. The returned channel closes once in is drained.
func (s *Server) publish(log *logrus.Entry, in <-chan event.Event, forward chan<- event.Event) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if forward != nil {
			defer close(forward)
		}
		for e := range in {
			if err := s.notifier.Notify(e); err != nil {
				log.WithError(err).Debug("notify failed")
			}
			if forward != nil {
				forward <- e
			}
		}
	}()
	return done
}

// statusOf maps a pipeline error to an HTTP status code. Only malformed
// audience input is the caller's fault; a provider rejecting a request is
// reported as a gateway failure.
func statusOf(err error) int {
	switch {
	case errors.Is(err, comicflow.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return 499
	default:
		return http.StatusBadGateway
	}
}

// writeSSE writes an AG-UI event in SSE format.
func writeSSE(w gin.ResponseWriter, ev aguievents.Event) error {
	data, err := ev.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}

	// Write SSE format: event: TYPE\ndata: {json}\n\n
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type(), string(data)); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	w.Flush()
	return nil
}

// cors adds CORS headers for cross-origin frontend requests.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
