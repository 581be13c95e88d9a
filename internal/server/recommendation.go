package server

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"glucomeal/internal/classifier"
	"glucomeal/internal/export"
	"glucomeal/internal/recommender"
	"glucomeal/internal/utility"

	"github.com/labstack/echo/v4"
)

/* =================================================================================
							DTOs (Data Transfer Objects)
=================================================================================*/

// RecommendationRequest defines the JSON payload expected from API clients.
type RecommendationRequest struct {
	FBS           *float64 `json:"fbs"`
	BMI           *float64 `json:"bmi"`
	Diet          string   `json:"diet"`
	CalorieTarget float64  `json:"calorie_target"`
	Mode          string   `json:"mode"` // 'rule' (default) or 'model'
}

// ClassificationResponse is returned by the classify endpoint.
type ClassificationResponse struct {
	FBS         float64                  `json:"fbs"`
	BMI         float64                  `json:"bmi"`
	Sugar       classifier.SugarCategory `json:"sugar_level_category"`
	BMICategory classifier.BMICategory   `json:"bmi_category"`
}

type exportLink struct {
	Label string
	Href  template.URL
}

// formPage is the view model of index.html.
type formPage struct {
	FBS           string
	BMI           string
	Diet          string
	CalorieTarget string
	UseModel      bool
	DietOptions   []classifier.DietType
	Error         string
	Result        *recommender.Recommendation
	ExportLinks   []exportLink
}

// Defaults shown on an empty form.
const (
	defaultFBS           = "100"
	defaultBMI           = "22.0"
	defaultCalorieTarget = "2000"
)

var dietOptions = []classifier.DietType{classifier.DietVeg, classifier.DietNonVeg}

/*=================================================================================
									HANDLERS
=================================================================================*/

// renderFormHandler serves the empty input form.
func (s *Server) renderFormHandler(c echo.Context) error {
	return c.Render(http.StatusOK, "index.html", formPage{
		FBS:           defaultFBS,
		BMI:           defaultBMI,
		Diet:          string(classifier.DietVeg),
		CalorieTarget: defaultCalorieTarget,
		DietOptions:   dietOptions,
	})
}

// submitFormHandler classifies the submitted form and renders the results.
// Validation problems re-render the form with the message.
func (s *Server) submitFormHandler(c echo.Context) error {
	ctx := c.Request().Context()
	logger := utility.GetLogger(c)

	page := formPage{
		FBS:           c.FormValue("fbs"),
		BMI:           c.FormValue("bmi"),
		Diet:          c.FormValue("diet"),
		CalorieTarget: c.FormValue("calorie_target"),
		UseModel:      c.FormValue("use_model") != "",
		DietOptions:   dietOptions,
	}

	mode := recommender.ModeRule
	if page.UseModel {
		mode = recommender.ModeModel
	}

	// 1. Parse the raw form values
	profile, err := parseProfile(c.FormValue)
	if err != nil {
		page.Error = err.Error()
		return c.Render(http.StatusBadRequest, "index.html", page)
	}

	// 2. Run the selected recommendation path
	result, err := s.recommender.Recommend(ctx, profile, mode)
	if err != nil {
		status, msg := recommendErrorStatus(err)
		logger.Error().Err(err).Msg("Recommendation failed")
		page.Error = msg
		return c.Render(status, "index.html", page)
	}

	logger.Info().
		Str("mode", string(mode)).
		Int("foods", len(result.Foods)).
		Bool("no_match", result.NoMatch).
		Msg("Form recommendation served")

	// 3. Render results plus export links
	page.Result = result
	page.ExportLinks = exportLinks(profile, mode, len(result.Foods) > 0)
	return c.Render(http.StatusOK, "index.html", page)
}

// recommendationsHandler is the JSON entry point.
func (s *Server) recommendationsHandler(c echo.Context) error {
	ctx := c.Request().Context()
	logger := utility.GetLogger(c)

	// 1. Parse and validate request body
	var req RecommendationRequest
	if err := c.Bind(&req); err != nil {
		logger.Error().Err(err).Msg("Failed to bind request body")
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}
	if req.FBS == nil || req.BMI == nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "'fbs' and 'bmi' are required"})
	}

	diet, err := classifier.ParseDietType(req.Diet)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	mode, err := recommender.ParseMode(req.Mode)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	profile := classifier.UserProfile{
		FastingBloodSugar: *req.FBS,
		BMI:               *req.BMI,
		Diet:              diet,
		CalorieTarget:     req.CalorieTarget,
	}

	// 2. Recommend
	result, err := s.recommender.Recommend(ctx, profile, mode)
	if err != nil {
		status, msg := recommendErrorStatus(err)
		logger.Error().Err(err).Msg("Recommendation failed")
		return c.JSON(status, map[string]string{"error": msg})
	}

	logger.Info().Str("mode", string(mode)).Int("foods", len(result.Foods)).Msg("API recommendation served")
	return c.JSON(http.StatusOK, result)
}

// exportHandler recomputes the recommendation described by the query string
// and returns it as a download.
func (s *Server) exportHandler(c echo.Context) error {
	ctx := c.Request().Context()
	logger := utility.GetLogger(c)

	format, file, err := export.ParseFormat(c.Param("format"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	profile, err := parseProfile(c.QueryParam)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	mode, err := recommender.ParseMode(c.QueryParam("mode"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	result, err := s.recommender.Recommend(ctx, profile, mode)
	if err != nil {
		status, msg := recommendErrorStatus(err)
		logger.Error().Err(err).Msg("Recommendation failed")
		return c.JSON(status, map[string]string{"error": msg})
	}

	// Render fully before writing headers so failures still answer with JSON.
	var buf bytes.Buffer
	if err := export.Write(ctx, &buf, format, result.Foods); err != nil {
		if errors.Is(err, export.ErrNoRecords) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "No recommendations to export"})
		}
		logger.Error().Err(err).Str("format", string(format)).Msg("Export failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to render export"})
	}

	logger.Info().Str("format", string(format)).Int("bytes", buf.Len()).Msg("Export served")

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", file.Name))
	return c.Blob(http.StatusOK, file.ContentType, buf.Bytes())
}

// classifyHandler returns the categories for the given readings without recommending.
func (s *Server) classifyHandler(c echo.Context) error {
	fbs, err := utility.ParseFloatParam("fbs", c.QueryParam("fbs"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	bmi, err := utility.ParseFloatParam("bmi", c.QueryParam("bmi"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, ClassificationResponse{
		FBS:         fbs,
		BMI:         bmi,
		Sugar:       classifier.ClassifySugarLevel(fbs),
		BMICategory: classifier.ClassifyBMI(bmi),
	})
}

/*=================================================================================
								HELPER FUNCTIONS
=================================================================================*/

// parseProfile reads a UserProfile from form or query values.
func parseProfile(get func(string) string) (classifier.UserProfile, error) {
	fbs, err := utility.ParseFloatParam("fbs", get("fbs"))
	if err != nil {
		return classifier.UserProfile{}, err
	}
	bmi, err := utility.ParseFloatParam("bmi", get("bmi"))
	if err != nil {
		return classifier.UserProfile{}, err
	}
	diet, err := classifier.ParseDietType(get("diet"))
	if err != nil {
		return classifier.UserProfile{}, err
	}
	target, err := utility.ParseOptionalFloatParam("calorie_target", get("calorie_target"), 0)
	if err != nil {
		return classifier.UserProfile{}, err
	}

	return classifier.UserProfile{
		FastingBloodSugar: fbs,
		BMI:               bmi,
		Diet:              diet,
		CalorieTarget:     target,
	}, nil
}

// recommendErrorStatus maps a Recommend error onto a status and client message.
func recommendErrorStatus(err error) (int, string) {
	var encErr *recommender.EncodingError
	switch {
	case errors.As(err, &encErr):
		return http.StatusUnprocessableEntity, fmt.Sprintf("The food table has no entries for %s '%s'", encErr.Column, encErr.Label)
	case errors.Is(err, recommender.ErrUnknownMode):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "Failed to compute recommendations"
	}
}

func exportLinks(p classifier.UserProfile, mode recommender.Mode, hasFoods bool) []exportLink {
	num := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

	q := url.Values{}
	q.Set("fbs", num(p.FastingBloodSugar))
	q.Set("bmi", num(p.BMI))
	q.Set("diet", string(p.Diet))
	q.Set("mode", string(mode))
	if p.CalorieTarget != 0 {
		q.Set("calorie_target", num(p.CalorieTarget))
	}
	qs := q.Encode()

	link := func(label string, f export.Format) exportLink {
		return exportLink{Label: label, Href: template.URL("/api/recommendations/export/" + string(f) + "?" + qs)}
	}

	links := []exportLink{
		link("Download as CSV", export.FormatCSV),
		link("Download PDF", export.FormatPDF),
	}
	if hasFoods {
		links = append(links, link("Calorie Distribution chart", export.FormatChart))
	}
	return append(links, link("Download everything (zip)", export.FormatBundle))
}
