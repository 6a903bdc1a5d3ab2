package gemini

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"kindred-backend/internal/imagegen"

	"github.com/go-resty/resty/v2"
)

const DefaultModel = "gemini-2.5-flash-image-preview"

type Engine struct {
	client *resty.Client
	apiKey string
	model  string
}

func New(apiKey, model string) (*Engine, error) {
	if apiKey == "" {
		return nil, imagegen.ErrMissingCredential
	}
	if model == "" {
		model = DefaultModel
	}

	return &Engine{
		client: resty.New().
			SetBaseURL("https://generativelanguage.googleapis.com").
			SetTimeout(120 * time.Second),
		apiKey: apiKey,
		model:  model,
	}, nil
}

// SetBaseURL redirects the engine to a different API host. Used in tests.
func (e *Engine) SetBaseURL(url string) {
	e.client.SetBaseURL(url)
}

func (e *Engine) Name() string { return "gemini" }

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text       string `json:"text"`
				InlineData *struct {
					MimeType string `json:"mimeType"`
					Data     string `json:"data"`
				} `json:"inlineData"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate sends both parent images as inline_data parts followed by the
// instruction text and returns the first image part of the first candidate.
func (e *Engine) Generate(ctx context.Context, father, mother imagegen.Image, instruction string) (imagegen.Image, error) {
	body := generateRequest{
		Contents: []content{{
			Parts: []part{
				{InlineData: &inlineData{MimeType: father.MimeType, Data: base64.StdEncoding.EncodeToString(father.Data)}},
				{InlineData: &inlineData{MimeType: mother.MimeType, Data: base64.StdEncoding.EncodeToString(mother.Data)}},
				{Text: instruction},
			},
		}},
	}

	var out generateResponse
	res, err := e.client.R().
		SetContext(ctx).
		SetHeader("x-goog-api-key", e.apiKey).
		SetBody(body).
		SetResult(&out).
		Post(fmt.Sprintf("/v1beta/models/%s:generateContent", e.model))
	if err != nil {
		return imagegen.Image{}, fmt.Errorf("gemini request failed: %w", err)
	}
	if res.StatusCode() != http.StatusOK {
		return imagegen.Image{}, fmt.Errorf("gemini returned status %d: %s", res.StatusCode(), res.String())
	}

	for _, cand := range out.Candidates {
		for _, p := range cand.Content.Parts {
			if p.InlineData == nil || p.InlineData.Data == "" {
				continue
			}

			data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				return imagegen.Image{}, fmt.Errorf("gemini returned malformed image data: %w", err)
			}

			mime := p.InlineData.MimeType
			if mime == "" {
				mime = "image/png"
			}
			return imagegen.Image{Data: data, MimeType: mime}, nil
		}
	}

	return imagegen.Image{}, imagegen.ErrNoImage
}
