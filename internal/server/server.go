// Package server exposes a Renderer over HTTP.
package server

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	ezpdf "github.com/alnah/go-ezpdf"
	"github.com/alnah/go-ezpdf/internal/fileutil"
	"github.com/alnah/go-ezpdf/internal/pipeline"
)

// Defaults used when Config leaves a field zero.
const (
	DefaultMaxBodyBytes   = 8 * 1024 * 1024
	DefaultRequestTimeout = 60 * time.Second
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "requestID"
	contentTypePDF  = "application/pdf"
)

// Renderer is the subset of *ezpdf.Renderer the server needs.
type Renderer interface {
	RenderHTML(ctx context.Context, html string, opts *ezpdf.RenderOptions, pdfOpts *ezpdf.PDFOptions) ([]byte, error)
	RenderURL(ctx context.Context, url string, opts *ezpdf.RenderOptions, pdfOpts *ezpdf.PDFOptions) ([]byte, error)
	HealthCheck(ctx context.Context, testURI string) ezpdf.Health
}

// Config controls request handling.
type Config struct {
	MaxBodyBytes   int
	RequestTimeout time.Duration

	// HealthURI is loaded by /healthz when the request has no uri query.
	HealthURI string

	// Page is the base for per-request page settings. Nil uses library defaults.
	Page *ezpdf.PageSettings

	// Headers are sent with every URL render; request headers win.
	Headers map[string]string

	// CSS is injected into every HTML and Markdown render.
	CSS string
}

// Server is the HTTP front end of a Renderer.
type Server struct {
	app      *fiber.App
	renderer Renderer
	pipeline *pipeline.Pipeline
	cfg      Config
	log      logrus.FieldLogger
}

// New builds the fiber app and registers routes.
func New(renderer Renderer, cfg Config, logger logrus.FieldLogger) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	s := &Server{
		renderer: renderer,
		pipeline: pipeline.New(),
		cfg:      cfg,
		log:      logger,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "ezpdf",
		BodyLimit:             cfg.MaxBodyBytes,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.app.Use(s.requestID, s.accessLog)

	s.app.Post("/render/html", s.renderHTML)
	s.app.Post("/render/url", s.renderURL)
	s.app.Get("/healthz", s.healthz)

	return s
}

// App returns the underlying fiber app (tests, custom middleware).
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.log.WithField("addr", addr).Info("listening")
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// requestID tags each request with an ID, reusing the client's when sent.
func (s *Server) requestID(c *fiber.Ctx) error {
	id := c.Get(requestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	c.Locals(requestIDKey, id)
	c.Set(requestIDHeader, id)
	return c.Next()
}

func (s *Server) accessLog(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		status = statusFor(err)
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestIDOf(c),
		"method":     c.Method(),
		"path":       c.Path(),
		"status":     status,
		"latency":    time.Since(start).Round(time.Millisecond),
	}).Info("request")
	return err
}

func requestIDOf(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDKey).(string)
	return id
}

// renderHTML renders the request body. Markdown is accepted with
// Content-Type text/markdown or ?format=markdown.
func (s *Server) renderHTML(c *fiber.Ctx) error {
	body := string(c.Body())
	if strings.TrimSpace(body) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "request body is empty")
	}

	base := c.Query("base")
	if base != "" {
		if err := checkRemoteURL("base", base); err != nil {
			return err
		}
	}

	pdfOpts, err := s.pageFromQuery(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), s.cfg.RequestTimeout)
	defer cancel()

	doc, err := s.pipeline.Prepare(ctx, pipeline.Source{
		Content:  body,
		Markdown: isMarkdown(c),
		CSS:      s.cfg.CSS,
		BaseURL:  base,
	})
	if err != nil {
		return err
	}

	pdf, err := s.renderer.RenderHTML(ctx, doc, nil, pdfOpts)
	if err != nil {
		return err
	}
	return sendPDF(c, pdf)
}

// urlRequest is the JSON body of /render/url.
type urlRequest struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
	Page    *pageRequest      `json:"page"`
}

type pageRequest struct {
	Size            string `json:"size"`
	Orientation     string `json:"orientation"`
	Margin          string `json:"margin"`
	PrintBackground *bool  `json:"printBackground"`
}

func (s *Server) renderURL(c *fiber.Ctx) error {
	var req urlRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body: "+err.Error())
	}
	if req.URL == "" {
		return ezpdf.ErrEmptyURL
	}
	if err := checkRemoteURL("url", req.URL); err != nil {
		return err
	}

	settings := s.basePage()
	if p := req.Page; p != nil {
		overridePage(settings, p.Size, p.Orientation, p.Margin)
		if p.PrintBackground != nil {
			settings.PrintBackground = *p.PrintBackground
		}
	}
	pdfOpts, err := settings.ToPDFOptions()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), s.cfg.RequestTimeout)
	defer cancel()

	opts := &ezpdf.RenderOptions{RequestHeaders: mergeHeaders(s.cfg.Headers, req.Headers)}
	pdf, err := s.renderer.RenderURL(ctx, req.URL, opts, pdfOpts)
	if err != nil {
		return err
	}
	return sendPDF(c, pdf)
}

// healthResponse is the JSON body of /healthz.
type healthResponse struct {
	Status ezpdf.Health `json:"status"`
}

// healthz reports the renderer state. A browser that was never launched
// is "unknown" and still answers 200; only a failed check is 503.
func (s *Server) healthz(c *fiber.Ctx) error {
	uri := c.Query("uri")
	if uri != "" {
		if err := checkRemoteURL("uri", uri); err != nil {
			return err
		}
	} else {
		uri = s.cfg.HealthURI
	}
	h := s.renderer.HealthCheck(c.UserContext(), uri)

	status := fiber.StatusOK
	if h == ezpdf.HealthUnhealthy {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(healthResponse{Status: h})
}

// pageFromQuery reads size, orientation, margin and background over the
// configured page settings.
func (s *Server) pageFromQuery(c *fiber.Ctx) (*ezpdf.PDFOptions, error) {
	settings := s.basePage()
	overridePage(settings, c.Query("size"), c.Query("orientation"), c.Query("margin"))

	if v := c.Query("background"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "background: "+err.Error())
		}
		settings.PrintBackground = b
	}
	return settings.ToPDFOptions()
}

func (s *Server) basePage() *ezpdf.PageSettings {
	if s.cfg.Page == nil {
		return ezpdf.DefaultPageSettings()
	}
	settings := *s.cfg.Page
	return &settings
}

func overridePage(settings *ezpdf.PageSettings, size, orientation, margin string) {
	if size != "" {
		settings.Size = size
	}
	if orientation != "" {
		settings.Orientation = orientation
	}
	if margin != "" {
		settings.Margin = margin
	}
}

// checkRemoteURL rejects anything but absolute http and https URLs, so
// callers cannot make the browser read file:, data: or javascript: targets.
func checkRemoteURL(field, raw string) error {
	if !fileutil.IsURL(raw) {
		return fiber.NewError(fiber.StatusBadRequest, field+": only absolute http and https URLs are accepted")
	}
	return nil
}

func isMarkdown(c *fiber.Ctx) bool {
	if strings.EqualFold(c.Query("format"), "markdown") {
		return true
	}
	ct := strings.ToLower(c.Get(fiber.HeaderContentType))
	return strings.HasPrefix(ct, "text/markdown") || strings.HasPrefix(ct, "text/x-markdown")
}

// mergeHeaders overlays request onto base. Names compare case-insensitively.
func mergeHeaders(base, request map[string]string) map[string]string {
	if len(base) == 0 && len(request) == 0 {
		return nil
	}
	merged := make(map[string]string, len(base)+len(request))
	index := make(map[string]string, len(base)+len(request))
	for _, src := range []map[string]string{base, request} {
		for name, value := range src {
			key := strings.ToLower(name)
			if prev, ok := index[key]; ok {
				delete(merged, prev)
			}
			index[key] = name
			merged[name] = value
		}
	}
	return merged
}

func sendPDF(c *fiber.Ctx, pdf []byte) error {
	c.Set(fiber.HeaderContentType, contentTypePDF)
	return c.Status(fiber.StatusOK).Send(pdf)
}
