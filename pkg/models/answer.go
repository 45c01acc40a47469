package models

import (
	"encoding/json"
	"fmt"
)

// AnswerValue is the typed answer a scout gives to one step. Exactly one
// variant is set; the JSON form is tagged with the variant name so the
// stored value can be interpreted without consulting the step definition.
type AnswerValue struct {
	Bool      *bool    `json:"-"`
	Text      *string  `json:"-"`
	Number    *float64 `json:"-"`
	Checklist []string `json:"-"`
}

type answerJSON struct {
	Type      string   `json:"type"`
	Bool      *bool    `json:"bool,omitempty"`
	Text      *string  `json:"text,omitempty"`
	Number    *float64 `json:"number,omitempty"`
	Checklist []string `json:"checklist,omitempty"`
}

// Kind returns the variant tag, or "" when no variant is set.
func (v AnswerValue) Kind() string {
	switch {
	case v.Bool != nil:
		return "bool"
	case v.Text != nil:
		return "text"
	case v.Number != nil:
		return "number"
	case v.Checklist != nil:
		return "checklist"
	}
	return ""
}

// Matches reports whether the set variant is acceptable for the step type.
// Photo/video steps carry an optional text note alongside their media.
func (v AnswerValue) Matches(t StepType) bool {
	switch t {
	case StepTypeYesNo:
		return v.Bool != nil
	case StepTypeText, StepTypePhoto, StepTypeVideo:
		return v.Text != nil
	case StepTypeNumber:
		return v.Number != nil
	case StepTypeChecklist:
		return v.Checklist != nil
	}
	return false
}

func (v AnswerValue) MarshalJSON() ([]byte, error) {
	kind := v.Kind()
	if kind == "" {
		return nil, fmt.Errorf("answer value: no variant set")
	}
	return json.Marshal(answerJSON{
		Type:      kind,
		Bool:      v.Bool,
		Text:      v.Text,
		Number:    v.Number,
		Checklist: v.Checklist,
	})
}

func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	var raw answerJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Type {
	case "bool":
		if raw.Bool == nil {
			return fmt.Errorf("answer value: bool variant missing value")
		}
		*v = AnswerValue{Bool: raw.Bool}
	case "text":
		if raw.Text == nil {
			return fmt.Errorf("answer value: text variant missing value")
		}
		*v = AnswerValue{Text: raw.Text}
	case "number":
		if raw.Number == nil {
			return fmt.Errorf("answer value: number variant missing value")
		}
		*v = AnswerValue{Number: raw.Number}
	case "checklist":
		*v = AnswerValue{Checklist: raw.Checklist}
	default:
		return fmt.Errorf("answer value: unknown variant %q", raw.Type)
	}
	return nil
}

// StepRules holds per-type validation parameters as a tagged union keyed
// by the step type. All variants are optional; a zero StepRules means the
// step has no extra constraints beyond its type and media minimums.
type StepRules struct {
	Text      *TextRules      `json:"text,omitempty"`
	Number    *NumberRules    `json:"number,omitempty"`
	Checklist *ChecklistRules `json:"checklist,omitempty"`
}

type TextRules struct {
	MinLength int `json:"min_length,omitempty"`
	MaxLength int `json:"max_length,omitempty"`
}

type NumberRules struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

type ChecklistRules struct {
	Items []string `json:"items"`
}
