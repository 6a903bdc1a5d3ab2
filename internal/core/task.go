package core

import (
	"fmt"

	"kindred-backend/internal/imagegen"
)

type Gender string

const (
	GenderBoy  Gender = "boy"
	GenderGirl Gender = "girl"
)

var Genders = []Gender{GenderBoy, GenderGirl}

// Ages are the three target ages predicted per gender.
var Ages = []int{5, 15, 25}

func ParseGender(value string) (Gender, error) {
	switch Gender(value) {
	case GenderBoy, GenderGirl:
		return Gender(value), nil
	default:
		return "", fmt.Errorf("invalid gender '%s', must be one of: boy, girl", value)
	}
}

const (
	TaskIdle    string = "IDLE"
	TaskLoading string = "LOADING"
	TaskReady   string = "READY"
	TaskFailed  string = "FAILED"
)

// TaskKey identifies one of the six prediction slots, e.g. "girl-15".
type TaskKey string

func NewTaskKey(gender Gender, age int) TaskKey {
	return TaskKey(fmt.Sprintf("%s-%d", gender, age))
}

// PredictionTask is one (gender, age) prediction slot. Identity is fixed at
// registry creation; only Status, Image and Error ever change. Image is set
// iff READY, Error iff FAILED.
type PredictionTask struct {
	Key    TaskKey
	Gender Gender
	Age    int
	Status string
	Image  imagegen.Image
	Error  string
}
