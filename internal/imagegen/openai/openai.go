package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"

	"kindred-backend/internal/imagegen"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const DefaultModel = "gpt-image-1"

type Engine struct {
	client openai.Client
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
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		apiKey: apiKey,
		model:  model,
	}, nil
}

func (e *Engine) Name() string { return "openai" }

// SetBaseURL points the client at a different endpoint. Used by tests.
func (e *Engine) SetBaseURL(url string) {
	e.client = openai.NewClient(option.WithAPIKey(e.apiKey), option.WithBaseURL(url), option.WithMaxRetries(0))
}

// Generate runs an image edit with both parent images attached and the
// instruction as the prompt. The result comes back base64 encoded.
func (e *Engine) Generate(ctx context.Context, father, mother imagegen.Image, instruction string) (imagegen.Image, error) {
	params := openai.ImageEditParams{
		Image: openai.ImageEditParamsImageUnion{
			OfFileArray: []io.Reader{
				openai.File(bytes.NewReader(father.Data), "father.png", father.MimeType),
				openai.File(bytes.NewReader(mother.Data), "mother.png", mother.MimeType),
			},
		},
		Prompt: instruction,
		Model:  openai.ImageModel(e.model),
	}

	res, err := e.client.Images.Edit(ctx, params)
	if err != nil {
		return imagegen.Image{}, fmt.Errorf("openai image edit failed: %w", err)
	}
	if res == nil || len(res.Data) == 0 || res.Data[0].B64JSON == "" {
		return imagegen.Image{}, imagegen.ErrNoImage
	}

	data, err := base64.StdEncoding.DecodeString(res.Data[0].B64JSON)
	if err != nil {
		return imagegen.Image{}, fmt.Errorf("openai returned malformed image data: %w", err)
	}

	return imagegen.Image{Data: data, MimeType: "image/png"}, nil
}
