package server

import (
	"html/template"
	"io"
	"net/http"

	"glucomeal/internal/export"
	"glucomeal/internal/utility"
	"glucomeal/web"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
)

// TemplateRenderer is a custom html/template renderer for Echo framework
type TemplateRenderer struct {
	templates *template.Template
}

// Render renders a template document
func (t *TemplateRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return t.templates.ExecuteTemplate(w, name, data)
}

func newRenderer() *TemplateRenderer {
	funcs := template.FuncMap{"calories": export.FormatCalories}
	return &TemplateRenderer{
		templates: template.Must(template.New("").Funcs(funcs).ParseFS(web.Templates, "templates/*.html")),
	}
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"https://*", "http://*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:       300,
	}))

	e.Renderer = newRenderer()
	e.Use(LoggerMiddleware)

	// Form pages
	e.GET("/", s.renderFormHandler)
	e.POST("/", s.submitFormHandler)

	// JSON API
	e.POST("/api/recommendations", s.recommendationsHandler)
	e.GET("/api/recommendations/export/:format", s.exportHandler)
	e.GET("/api/classify", s.classifyHandler)

	e.GET("/health", s.healthHandler)

	return e
}

// LoggerMiddleware tags every request with an ID and stores a logger carrying
// it in both the echo context and the request context.
func LoggerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Request().Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(utility.RequestIDKey, requestID)
		c.Response().Header().Set("X-Request-ID", requestID)

		logger := log.With().
			Str("request_id", requestID).
			Str("ip", utility.GetRealIP(c)).
			Logger()

		c.Set(utility.LoggerKey, &logger)
		c.SetRequest(c.Request().WithContext(logger.WithContext(c.Request().Context())))

		return next(c)
	}
}
