// Package server exposes the letter renderer over HTTP.
package server

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/wudi/letterkit/assets"
	"github.com/wudi/letterkit/config"
	"github.com/wudi/letterkit/letter"
)

// Module wires the HTTP server into an fx application.
var Module = fx.Module("server",
	fx.Provide(New),
	fx.Invoke(Run),
)

// Params are the server's dependencies.
type Params struct {
	fx.In

	Config   *config.Config
	Renderer *letter.Renderer
	Assets   *assets.Bundle `optional:"true"`
	Logger   *zap.Logger
}

// Server handles letter export requests.
type Server struct {
	engine   *gin.Engine
	cfg      *config.Config
	renderer *letter.Renderer
	assets   *assets.Bundle
	log      *zap.Logger
	now      func() time.Time
}

// New builds the gin engine and registers the routes.
func New(p Params) *Server {
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}
	bundle := p.Assets
	if bundle == nil {
		bundle = &assets.Bundle{}
	}
	s := &Server{
		engine:   gin.New(),
		cfg:      p.Config,
		renderer: p.Renderer,
		assets:   bundle,
		log:      log,
		now:      time.Now,
	}
	s.engine.Use(gin.Recovery(), RequestLogger(log))
	s.registerRoutes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.health)
	api := s.engine.Group("/api/letters")
	api.GET("/template", s.template)
	api.POST("/stats", s.stats)
	api.POST("/export", s.export)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// TemplateResponse is the editor's starting point.
type TemplateResponse struct {
	Payload    letter.Payload    `json:"payload"`
	Letterhead letter.Letterhead `json:"letterhead"`
	Categories []string          `json:"categories"`
	Stats      letter.Stats      `json:"stats"`
}

func (s *Server) template(c *gin.Context) {
	now := s.now()
	p := letter.DefaultPayload(now)
	c.JSON(http.StatusOK, TemplateResponse{
		Payload:    p,
		Letterhead: s.cfg.Letterhead,
		Categories: letter.Categories,
		Stats:      letter.ComputeStats(p, now),
	})
}

func (s *Server) stats(c *gin.Context) {
	var p letter.Payload
	if err := c.ShouldBindJSON(&p); err != nil {
		abort(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	c.JSON(http.StatusOK, letter.ComputeStats(p, s.now()))
}

// ExportRequest is the body of POST /api/letters/export. Letterhead
// defaults to the configured one; Logo is base64 and defaults to the
// configured logo.
type ExportRequest struct {
	Payload    letter.Payload     `json:"payload"`
	Letterhead *letter.Letterhead `json:"letterhead,omitempty"`
	Logo       string             `json:"logo,omitempty"`
}

func (s *Server) export(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.Server.MaxBodyBytes)
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			abort(c, http.StatusRequestEntityTooLarge, "request_too_large", err)
			return
		}
		abort(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := req.Payload.Validate(); err != nil {
		abort(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}

	lh := s.cfg.Letterhead
	if req.Letterhead != nil {
		lh = *req.Letterhead
	}
	logo := s.assets.Logo
	if req.Logo != "" {
		data, err := decodeLogo(req.Logo)
		if err != nil {
			abort(c, http.StatusBadRequest, "invalid_logo", err)
			return
		}
		logo = data
	}

	out, err := s.renderer.Render(c.Request.Context(), letter.Request{
		Payload:    req.Payload,
		Letterhead: lh,
		Fonts:      s.assets.Fonts,
		Logo:       logo,
	})
	if err != nil {
		s.log.Error("letter export failed", zap.Error(err))
		abort(c, http.StatusInternalServerError, "export_failed", nil)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.Filename))
	c.Header("X-Letter-Pages", fmt.Sprint(out.Pages))
	c.Data(http.StatusOK, out.ContentType, out.Data)
}

// decodeLogo accepts plain base64 or a data URL.
func decodeLogo(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		_, payload, ok := strings.Cut(s, ",")
		if !ok {
			return nil, errors.New("malformed data url")
		}
		s = payload
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(s))
}

func abort(c *gin.Context, status int, code string, err error) {
	body := gin.H{"error": code}
	if err != nil {
		body["message"] = err.Error()
	}
	c.AbortWithStatusJSON(status, body)
}

// Run serves HTTP for the lifetime of the fx application.
func Run(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:         s.cfg.Server.Addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				s.log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					s.log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if d := s.cfg.Server.ShutdownTimeout; d > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, d)
				defer cancel()
			}
			return srv.Shutdown(ctx)
		},
	})
}
