package services

import "time"

// QuestionKind identifies one of the supported question variants. The string
// value doubles as the URL-safe slug used by the field name protocol.
type QuestionKind string

const (
	KindText           QuestionKind = "text"
	KindYesNo          QuestionKind = "yes-no"
	KindMultipleChoice QuestionKind = "multiple-choice"
	KindRating         QuestionKind = "rating"
)

// PrettyName returns the human-readable label for the kind, for admin UIs.
func (k QuestionKind) PrettyName() string {
	switch k {
	case KindText:
		return "Text question"
	case KindYesNo:
		return "Yes/No question"
	case KindMultipleChoice:
		return "Multiple choice question"
	case KindRating:
		return "Rating question"
	}
	return string(k)
}

type Form struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// DefaultQuestionOrder sorts freshly added questions after everything else
// until the admin reorders them.
const DefaultQuestionOrder = 1000

// Question is the shared header of every question variant. Kind is the
// discriminator; variant payload beyond the prompt lives in AnswerOption rows.
type Question struct {
	ID     int64        `json:"id"`
	FormID int64        `json:"form_id"`
	Kind   QuestionKind `json:"kind"`
	Prompt string       `json:"prompt"`
	Order  int          `json:"order"`
}

// AnswerOption is a selectable choice belonging to a multiple-choice or
// rating question.
type AnswerOption struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id"`
	Label      string `json:"label"`
}

// ResolvedQuestion is a question upcast to its concrete kind: the shared
// header plus the kind-specific payload, ready for widget building.
type ResolvedQuestion struct {
	Question
	Options []*AnswerOption `json:"options,omitempty"`
}

// ResponseSet groups the responses one respondent submitted to one form.
// Shared marks sets created in reuse mode; the storage layer enforces at most
// one shared set per (form, respondent, interviewer) key.
type ResponseSet struct {
	ID          int64     `json:"id"`
	Token       string    `json:"token"`
	FormID      int64     `json:"form_id"`
	Respondent  string    `json:"respondent"`
	Interviewer string    `json:"interviewer,omitempty"`
	Shared      bool      `json:"shared"`
	CreatedAt   time.Time `json:"created_at"`
}

type TextResponse struct {
	ID            int64     `json:"id"`
	ResponseSetID int64     `json:"response_set_id"`
	Respondent    string    `json:"respondent"`
	QuestionID    int64     `json:"question_id"`
	Body          string    `json:"body"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

type YesNoResponse struct {
	ID            int64     `json:"id"`
	ResponseSetID int64     `json:"response_set_id"`
	Respondent    string    `json:"respondent"`
	QuestionID    int64     `json:"question_id"`
	Answer        bool      `json:"answer"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

type MultipleChoiceResponse struct {
	ID            int64     `json:"id"`
	ResponseSetID int64     `json:"response_set_id"`
	Respondent    string    `json:"respondent"`
	QuestionID    int64     `json:"question_id"`
	OptionID      int64     `json:"option_id"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

type RatingResponse struct {
	ID            int64     `json:"id"`
	ResponseSetID int64     `json:"response_set_id"`
	Respondent    string    `json:"respondent"`
	QuestionID    int64     `json:"question_id"`
	OptionID      int64     `json:"option_id"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// SetResponses collects every response row of one set across the per-kind
// tables.
type SetResponses struct {
	Set            *ResponseSet              `json:"set"`
	Text           []*TextResponse           `json:"text,omitempty"`
	YesNo          []*YesNoResponse          `json:"yes_no,omitempty"`
	MultipleChoice []*MultipleChoiceResponse `json:"multiple_choice,omitempty"`
	Rating         []*RatingResponse         `json:"rating,omitempty"`
}

// InputKind tells the renderer which widget a field needs.
type InputKind string

const (
	InputText         InputKind = "text"
	InputSingleChoice InputKind = "single-choice"
	InputMultiChoice  InputKind = "multi-choice"
)

// ChoiceOption is one selectable value of a choice field. Value carries the
// encoded option reference, not a bare id.
type ChoiceOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FieldSpec describes one input field of an assembled form.
type FieldSpec struct {
	Name     string         `json:"name"`
	Label    string         `json:"label"`
	Input    InputKind      `json:"input"`
	Required bool           `json:"required"`
	Options  []ChoiceOption `json:"options,omitempty"`
}

// RespondentContext carries per-respondent rendering context into widget
// builders.
type RespondentContext struct {
	Respondent string
}

type User struct {
	ID        string
	Email     string
	PassHash  []byte
	CreatedAt time.Time
}
