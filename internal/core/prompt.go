package core

import "fmt"

const adultAge = 18

// subjectNoun picks an age-appropriate noun for the generated child.
func subjectNoun(gender Gender, age int) string {
	if age > adultAge {
		if gender == GenderBoy {
			return "young man"
		}
		return "young woman"
	}
	if gender == GenderBoy {
		return "boy"
	}
	return "girl"
}

// BuildInstruction renders the generation instruction for one task. The text
// is fully determined by (gender, age, weight) so re-runs with the same
// inputs send identical prompts.
func BuildInstruction(gender Gender, age int, weight int) string {
	return fmt.Sprintf(
		"Generate a realistic photo of a %s at age %d. "+
			"Blend the facial features of the two people in the reference photos: "+
			"%d%% from the first person (the father) and %d%% from the second person (the mother). "+
			"Return only the generated image.",
		subjectNoun(gender, age), age, weight, 100-weight,
	)
}
