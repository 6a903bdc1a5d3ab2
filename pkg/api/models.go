package api

import "github.com/google/uuid"

type UploadParentRequest struct {
	// Data is the base64 encoded image payload. Either Data or URL must be
	// set; Data wins when both are present.
	Data        string `json:"Data,omitempty"`
	ContentType string `json:"ContentType,omitempty"`
	URL         string `json:"URL,omitempty"`
}

type UploadParentResponse struct {
	Message string
	Role    string
}

type ParentsResponse struct {
	Father bool
	Mother bool
}

type GenerateRequest struct {
	Gender      string
	BlendWeight int
}

type GenerateResponse struct {
	Message string
	RunId   uuid.UUID
}

type Prediction struct {
	Key    string
	Gender string
	Age    int
	Status string

	// Image is the base64 encoded result, present only when Status is READY.
	Image       string `json:"Image,omitempty"`
	ContentType string `json:"ContentType,omitempty"`

	// Error is the generic failure message, present only when Status is FAILED.
	Error string `json:"Error,omitempty"`
}

type PredictionsResponse struct {
	Tasks []Prediction
	Busy  map[string]bool
}
