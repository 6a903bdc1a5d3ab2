package imagegen

import (
	"context"
	"errors"
)

// Image is one immutable image payload moving through the system: an
// uploaded parent reference or a generated result.
type Image struct {
	Data     []byte
	MimeType string
}

func (img Image) Empty() bool {
	return len(img.Data) == 0
}

var (
	// ErrMissingCredential is returned by engine constructors when the
	// provider API key is not configured.
	ErrMissingCredential = errors.New("image generation api key is not configured")

	// ErrNoImage is returned when the provider answered successfully but the
	// response contained no image payload.
	ErrNoImage = errors.New("no image generated")
)

// Engine is the generation client contract. Implementations are opaque,
// potentially slow remote calls with no ordering or idempotency guarantees
// across calls.
type Engine interface {
	Name() string
	Generate(ctx context.Context, father, mother Image, instruction string) (Image, error)
}
