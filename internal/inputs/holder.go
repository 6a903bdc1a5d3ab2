package inputs

import (
	"fmt"
	"slices"
	"sync"

	"kindred-backend/internal/imagegen"
)

type Role string

const (
	RoleFather Role = "father"
	RoleMother Role = "mother"
)

func ParseRole(value string) (Role, error) {
	switch Role(value) {
	case RoleFather, RoleMother:
		return Role(value), nil
	default:
		return "", fmt.Errorf("invalid parent role '%s', must be one of: father, mother", value)
	}
}

// Holder keeps at most one uploaded reference image per parent role. Payload
// bytes are cloned on write, so replacing an upload never mutates data a run
// already holds.
type Holder struct {
	mu     sync.RWMutex
	images map[Role]imagegen.Image
}

func NewHolder() *Holder {
	return &Holder{images: make(map[Role]imagegen.Image, 2)}
}

// Set stores the payload for the role, replacing any previous one.
func (h *Holder) Set(role Role, image imagegen.Image) {
	h.mu.Lock()
	defer h.mu.Unlock()

	image.Data = slices.Clone(image.Data)
	h.images[role] = image
}

func (h *Holder) Has(role Role) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.images[role]
	return ok
}

// Parents returns both payloads; ok is false when either is missing.
func (h *Holder) Parents() (father, mother imagegen.Image, ok bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	father, fatherOk := h.images[RoleFather]
	mother, motherOk := h.images[RoleMother]
	if !fatherOk || !motherOk {
		return imagegen.Image{}, imagegen.Image{}, false
	}

	return father, mother, true
}
