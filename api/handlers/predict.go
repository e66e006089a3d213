package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/OldStager01/crop-yield-predictor/api/middleware"
	"github.com/OldStager01/crop-yield-predictor/internal/events"
	"github.com/OldStager01/crop-yield-predictor/internal/inference"
	"github.com/OldStager01/crop-yield-predictor/internal/logger"
	"github.com/OldStager01/crop-yield-predictor/pkg/models"
	"github.com/OldStager01/crop-yield-predictor/pkg/validation"
	"github.com/OldStager01/crop-yield-predictor/web"
)

// MsgPredictionFailed is shown in place of a prediction when inference fails.
const MsgPredictionFailed = "Something went wrong while predicting the yield. Please try again later."

// MsgRateLimited is shown when a client submits the form too often.
const MsgRateLimited = "Too many predictions from your address. Please wait a minute and try again."

// Predictor runs a validated input through the loaded pipeline.
type Predictor interface {
	Predict(ctx context.Context, in models.ValidatedInput) (*models.PredictionResult, error)
}

// PredictionObserver receives per-request outcomes for metrics.
type PredictionObserver interface {
	ObservePrediction(item string, seconds float64, cached bool)
	IncValidationFailure(reason string)
	IncInferenceError(stage string)
}

type noopObserver struct{}

func (noopObserver) ObservePrediction(string, float64, bool) {}
func (noopObserver) IncValidationFailure(string)             {}
func (noopObserver) IncInferenceError(string)                {}

type PredictHandler struct {
	validator *validation.Validator
	predictor Predictor
	publisher *events.Publisher
	observer  PredictionObserver
}

func NewPredictHandler(validator *validation.Validator, predictor Predictor, publisher *events.Publisher, observer PredictionObserver) *PredictHandler {
	if observer == nil {
		observer = noopObserver{}
	}
	return &PredictHandler{
		validator: validator,
		predictor: predictor,
		publisher: publisher,
		observer:  observer,
	}
}

// PageData is bound into the form view.
type PageData struct {
	ErrorMessages []string
	HasPrediction bool
	Prediction    float64
	Unit          string
	Form          models.RawInput
	Areas         []string
	Items         []string
}

// FieldValue holds one input field as text. It decodes from a JSON string
// or a JSON number; the number keeps its literal spelling.
type FieldValue string

func (v *FieldValue) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = FieldValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*v = FieldValue(n.String())
	return nil
}

// PredictRequest is the JSON body of POST /api/v1/predict. Each field may be
// a string, as on the form, or a number.
type PredictRequest struct {
	Year        FieldValue `json:"Year" swaggertype:"string" example:"2020"`
	Rainfall    FieldValue `json:"average_rain_fall_mm_per_year" swaggertype:"string" example:"1200.0"`
	Pesticides  FieldValue `json:"pesticides_tonnes" swaggertype:"string" example:"50.0"`
	Temperature FieldValue `json:"avg_temp" swaggertype:"string" example:"22.5"`
	Area        FieldValue `json:"Area" example:"India"`
	Item        FieldValue `json:"Item" example:"Rice, paddy"`
}

// RawInput converts the body to the form representation.
func (r PredictRequest) RawInput() models.RawInput {
	return models.RawInput{
		Year:        string(r.Year),
		Rainfall:    string(r.Rainfall),
		Pesticides:  string(r.Pesticides),
		Temperature: string(r.Temperature),
		Area:        string(r.Area),
		Item:        string(r.Item),
	}
}

type PredictResponse struct {
	Prediction float64 `json:"prediction"`
	Unit       string  `json:"unit"`
	Cached     bool    `json:"cached"`
	TraceID    string  `json:"trace_id"`
}

type ValidationErrorResponse struct {
	ErrorMessages []string `json:"error_messages"`
}

type OptionsResponse struct {
	Areas []string `json:"areas"`
	Items []string `json:"items"`
}

type outcome struct {
	messages []string
	result   *models.PredictionResult
	err      error
}

func (h *PredictHandler) evaluate(c *gin.Context, raw models.RawInput) outcome {
	ctx := c.Request.Context()
	traceID := middleware.GetTraceID(c)
	publisher := h.publisher.WithTraceID(traceID)

	res := h.validator.Validate(raw)
	if !res.Valid() {
		for _, reason := range res.Reasons {
			h.observer.IncValidationFailure(string(reason))
		}
		publisher.ValidationFailed(raw, res.Errors)
		return outcome{messages: res.Errors}
	}

	in := *res.Input
	result, err := h.predictor.Predict(ctx, in)
	if err != nil {
		stage := "unknown"
		var infErr *inference.Error
		if errors.As(err, &infErr) {
			stage = infErr.Stage
		}
		h.observer.IncInferenceError(stage)
		logger.WithCrop(ctx, in.Area, in.Item).WithError(err).Error("Prediction failed")
		publisher.InferenceFailed(in, err)
		return outcome{err: err}
	}

	h.observer.ObservePrediction(in.Item, result.Duration.Seconds(), result.Cached)
	logger.WithCrop(ctx, in.Area, in.Item).
		WithField("prediction", result.Value).
		WithField("cached", result.Cached).
		Debug("Prediction served")
	publisher.PredictionMade(models.NewPredictionRecord(traceID, in, result.Value))

	return outcome{result: result}
}

func (h *PredictHandler) page(form models.RawInput) PageData {
	return PageData{
		Unit:  models.YieldUnit,
		Form:  form,
		Areas: h.validator.Areas().Values(),
		Items: h.validator.Items().Values(),
	}
}

// Index renders the empty form.
func (h *PredictHandler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, web.IndexTemplate, h.page(models.RawInput{}))
}

// Submit handles the form post and re-renders the view with either the
// ordered error list or the prediction.
func (h *PredictHandler) Submit(c *gin.Context) {
	var raw models.RawInput
	if err := c.ShouldBindWith(&raw, binding.Form); err != nil {
		logger.WarnCtxf(c.Request.Context(), "Failed to parse form: %v", err)
	}

	page := h.page(raw)
	out := h.evaluate(c, raw)

	switch {
	case out.err != nil:
		page.ErrorMessages = []string{MsgPredictionFailed}
		c.HTML(http.StatusInternalServerError, web.IndexTemplate, page)
	case len(out.messages) > 0:
		page.ErrorMessages = out.messages
		c.HTML(http.StatusOK, web.IndexTemplate, page)
	default:
		page.HasPrediction = true
		page.Prediction = out.result.Value
		c.HTML(http.StatusOK, web.IndexTemplate, page)
	}
}

// RateLimited re-renders the submitted form with a rate-limit message.
func (h *PredictHandler) RateLimited(c *gin.Context) {
	var raw models.RawInput
	_ = c.ShouldBindWith(&raw, binding.Form)

	page := h.page(raw)
	page.ErrorMessages = []string{MsgRateLimited}
	c.HTML(http.StatusTooManyRequests, web.IndexTemplate, page)
}

// PredictJSON godoc
// @Summary Predict crop yield
// @Description Validate the six input fields and return the predicted yield in hg/ha. Numeric fields may be sent as JSON strings or numbers.
// @Tags Predictions
// @Accept json
// @Produce json
// @Param request body PredictRequest true "Input fields"
// @Success 200 {object} PredictResponse
// @Failure 400 {object} map[string]string "Malformed body"
// @Failure 422 {object} ValidationErrorResponse "Validation errors in check order"
// @Failure 500 {object} map[string]string "Prediction failed"
// @Router /api/v1/predict [post]
func (h *PredictHandler) PredictJSON(c *gin.Context) {
	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	out := h.evaluate(c, req.RawInput())

	switch {
	case out.err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":    "prediction failed",
			"trace_id": middleware.GetTraceID(c),
		})
	case len(out.messages) > 0:
		c.JSON(http.StatusUnprocessableEntity, ValidationErrorResponse{ErrorMessages: out.messages})
	default:
		c.JSON(http.StatusOK, PredictResponse{
			Prediction: out.result.Value,
			Unit:       models.YieldUnit,
			Cached:     out.result.Cached,
			TraceID:    middleware.GetTraceID(c),
		})
	}
}

// Options godoc
// @Summary List accepted areas and items
// @Tags Predictions
// @Produce json
// @Success 200 {object} OptionsResponse
// @Router /api/v1/options [get]
func (h *PredictHandler) Options(c *gin.Context) {
	c.JSON(http.StatusOK, OptionsResponse{
		Areas: h.validator.Areas().Values(),
		Items: h.validator.Items().Values(),
	})
}
