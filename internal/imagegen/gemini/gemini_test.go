package gemini_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"kindred-backend/internal/imagegen"
	"kindred-backend/internal/imagegen/gemini"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	father = imagegen.Image{Data: []byte("father-bytes"), MimeType: "image/jpeg"}
	mother = imagegen.Image{Data: []byte("mother-bytes"), MimeType: "image/png"}
)

func newEngine(t *testing.T, handler http.HandlerFunc) *gemini.Engine {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	engine, err := gemini.New("test-key", "")
	require.NoError(t, err)
	engine.SetBaseURL(server.URL)
	return engine
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := gemini.New("", "")
	assert.ErrorIs(t, err, imagegen.ErrMissingCredential)
}

func TestGenerateSendsBothImagesAndInstruction(t *testing.T) {
	result := []byte("generated-image")

	engine := newEngine(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/"+gemini.DefaultModel+":generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var body struct {
			Contents []struct {
				Parts []struct {
					Text       string `json:"text"`
					InlineData *struct {
						MimeType string `json:"mime_type"`
						Data     string `json:"data"`
					} `json:"inline_data"`
				} `json:"parts"`
			} `json:"contents"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Contents, 1)
		require.Len(t, body.Contents[0].Parts, 3)

		first := body.Contents[0].Parts[0]
		require.NotNil(t, first.InlineData)
		assert.Equal(t, "image/jpeg", first.InlineData.MimeType)
		assert.Equal(t, base64.StdEncoding.EncodeToString(father.Data), first.InlineData.Data)

		second := body.Contents[0].Parts[1]
		require.NotNil(t, second.InlineData)
		assert.Equal(t, "image/png", second.InlineData.MimeType)

		assert.Equal(t, "make a child", body.Contents[0].Parts[2].Text)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{
					"parts": []any{
						map[string]any{"text": "sure, here you go"},
						map[string]any{"inlineData": map[string]any{
							"mimeType": "image/png",
							"data":     base64.StdEncoding.EncodeToString(result),
						}},
					},
				},
			}},
		})
	})

	image, err := engine.Generate(context.Background(), father, mother, "make a child")
	require.NoError(t, err)
	assert.Equal(t, result, image.Data)
	assert.Equal(t, "image/png", image.MimeType)
}

func TestGenerateNoImagePart(t *testing.T) {
	engine := newEngine(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{
					"parts": []any{map[string]any{"text": "I cannot generate that image"}},
				},
			}},
		})
	})

	_, err := engine.Generate(context.Background(), father, mother, "make a child")
	assert.ErrorIs(t, err, imagegen.ErrNoImage)
}

func TestGenerateUpstreamError(t *testing.T) {
	engine := newEngine(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "quota exceeded"}}`, http.StatusTooManyRequests)
	})

	_, err := engine.Generate(context.Background(), father, mother, "make a child")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
