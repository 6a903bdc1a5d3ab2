package api

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"kindred-backend/internal/core"
	"kindred-backend/internal/imagegen"
	"kindred-backend/internal/inputs"
	"kindred-backend/pkg/api"

	"github.com/go-chi/chi/v5"
	"github.com/go-resty/resty/v2"
)

type PredictionService struct {
	orchestrator *core.Orchestrator
	holder       *inputs.Holder
	fetcher      *resty.Client
}

func NewPredictionService(orchestrator *core.Orchestrator, holder *inputs.Holder) *PredictionService {
	return &PredictionService{
		orchestrator: orchestrator,
		holder:       holder,
		fetcher:      resty.New().SetTimeout(30 * time.Second),
	}
}

func (s *PredictionService) AddRoutes(r chi.Router) {
	r.Get("/health", RestHandler(func(r *http.Request) (any, error) { return nil, nil }))
	r.Route("/parents", func(r chi.Router) {
		r.Get("/", RestHandler(s.GetParents))
		r.Put("/{role}", RestHandler(s.UploadParent))
	})
	r.Route("/predictions", func(r chi.Router) {
		r.Get("/", RestHandler(s.GetPredictions))
		r.Post("/generate", RestHandler(s.GeneratePredictions))
	})
}

func (s *PredictionService) UploadParent(r *http.Request) (any, error) {
	role, err := inputs.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		return nil, CodedErrorf(http.StatusUnprocessableEntity, "%v", err)
	}

	req, err := ParseRequest[api.UploadParentRequest](r)
	if err != nil {
		return nil, err
	}

	var image imagegen.Image
	switch {
	case req.Data != "":
		data, err := base64.StdEncoding.DecodeString(req.Data)
		if err != nil {
			return nil, CodedErrorf(http.StatusUnprocessableEntity, "image data must be base64 encoded")
		}
		image = imagegen.Image{Data: data, MimeType: req.ContentType}
	case req.URL != "":
		image, err = s.fetchImage(r.Context(), req.URL)
		if err != nil {
			return nil, err
		}
	default:
		return nil, CodedErrorf(http.StatusUnprocessableEntity, "either Data or URL is required")
	}

	if len(image.Data) == 0 {
		return nil, CodedErrorf(http.StatusUnprocessableEntity, "image payload is empty")
	}
	if image.MimeType == "" {
		image.MimeType = http.DetectContentType(image.Data)
	}
	if !strings.HasPrefix(image.MimeType, "image/") {
		return nil, CodedErrorf(http.StatusUnprocessableEntity, "unsupported content type '%s'", image.MimeType)
	}

	s.holder.Set(role, image)

	slog.Info("stored parent reference image", "role", role, "bytes", len(image.Data), "mime_type", image.MimeType)
	return api.UploadParentResponse{Message: "Image stored", Role: string(role)}, nil
}

func (s *PredictionService) fetchImage(ctx context.Context, url string) (imagegen.Image, error) {
	res, err := s.fetcher.R().SetContext(ctx).Get(url)
	if err != nil {
		slog.Error("error fetching parent image", "url", url, "error", err)
		return imagegen.Image{}, CodedErrorf(http.StatusUnprocessableEntity, "unable to fetch image from url")
	}
	if res.StatusCode() != http.StatusOK {
		return imagegen.Image{}, CodedErrorf(http.StatusUnprocessableEntity, "image url returned status %d", res.StatusCode())
	}

	return imagegen.Image{Data: res.Body(), MimeType: res.Header().Get("Content-Type")}, nil
}

func (s *PredictionService) GetParents(r *http.Request) (any, error) {
	return api.ParentsResponse{
		Father: s.holder.Has(inputs.RoleFather),
		Mother: s.holder.Has(inputs.RoleMother),
	}, nil
}

func (s *PredictionService) GeneratePredictions(r *http.Request) (any, error) {
	req, err := ParseRequest[api.GenerateRequest](r)
	if err != nil {
		return nil, err
	}

	gender, err := core.ParseGender(req.Gender)
	if err != nil {
		return nil, CodedErrorf(http.StatusUnprocessableEntity, "%v", err)
	}

	// The run outlives this request, so it must not inherit the request
	// context's cancellation.
	runId, _, err := s.orchestrator.Generate(context.WithoutCancel(r.Context()), gender, req.BlendWeight)
	switch {
	case err == nil:
	case errors.Is(err, core.ErrAlreadyRunning):
		return nil, CodedError(http.StatusConflict, err)
	case errors.Is(err, core.ErrMissingInput), errors.Is(err, core.ErrInvalidWeight):
		return nil, CodedError(http.StatusUnprocessableEntity, err)
	default:
		slog.Error("error starting generation run", "gender", gender, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to start generation")
	}

	return api.GenerateResponse{Message: "Generation started", RunId: runId}, nil
}

type predictionsQuery struct {
	Gender string `schema:"gender"`
}

func (s *PredictionService) GetPredictions(r *http.Request) (any, error) {
	params, err := ParseRequestQueryParams[predictionsQuery](r)
	if err != nil {
		return nil, err
	}

	var filter core.Gender
	if params.Gender != "" {
		filter, err = core.ParseGender(params.Gender)
		if err != nil {
			return nil, CodedErrorf(http.StatusUnprocessableEntity, "%v", err)
		}
	}

	tasks := s.orchestrator.Registry().Snapshot()
	views := make([]api.Prediction, 0, len(tasks))
	for _, task := range tasks {
		if filter != "" && task.Gender != filter {
			continue
		}

		view := api.Prediction{
			Key:    string(task.Key),
			Gender: string(task.Gender),
			Age:    task.Age,
			Status: task.Status,
			Error:  task.Error,
		}
		if task.Status == core.TaskReady {
			view.Image = base64.StdEncoding.EncodeToString(task.Image.Data)
			view.ContentType = task.Image.MimeType
		}
		views = append(views, view)
	}

	busy := make(map[string]bool, len(core.Genders))
	for _, gender := range core.Genders {
		busy[string(gender)] = s.orchestrator.Busy(gender)
	}

	return api.PredictionsResponse{Tasks: views, Busy: busy}, nil
}
