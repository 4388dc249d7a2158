package services

import (
	"fmt"
	"sort"
	"time"
)

// WidgetBuilder turns a resolved question into the input field spec a
// renderer needs.
type WidgetBuilder func(q *ResolvedQuestion, ctx RespondentContext) FieldSpec

// ResponseSaver persists one validated answer as the kind-appropriate
// response row(s) and reports how many rows it wrote.
type ResponseSaver func(w ResponseWriter, set *ResponseSet, respondent string, questionID int64, value any, at time.Time) (int, error)

type kindEntry struct {
	build WidgetBuilder
	save  ResponseSaver
}

// Registry maps a question kind to its widget builder and response saver.
// It is the single dispatch point that keeps the submission pipeline unaware
// of concrete kinds. Populate it at startup; it must not be mutated after the
// server starts serving (reads are unsynchronized).
type Registry struct {
	kinds map[QuestionKind]kindEntry
}

func NewRegistry() *Registry {
	return &Registry{kinds: map[QuestionKind]kindEntry{}}
}

func (r *Registry) Register(kind QuestionKind, build WidgetBuilder, save ResponseSaver) {
	r.kinds[kind] = kindEntry{build: build, save: save}
}

// Lookup returns the behaviors registered for kind, or ErrUnknownKind.
func (r *Registry) Lookup(kind QuestionKind) (WidgetBuilder, ResponseSaver, error) {
	e, ok := r.kinds[kind]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return e.build, e.save, nil
}

// Kinds lists the registered kinds in stable order, for admin content-type
// choosers.
func (r *Registry) Kinds() []QuestionKind {
	out := make([]QuestionKind, 0, len(r.kinds))
	for k := range r.kinds {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DefaultRegistry returns a registry with the four built-in kinds.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(KindText, buildTextField, saveTextResponse)
	r.Register(KindYesNo, buildYesNoField, saveYesNoResponse)
	r.Register(KindMultipleChoice, buildMultipleChoiceField, saveMultipleChoiceResponse)
	r.Register(KindRating, buildRatingField, saveRatingResponse)
	return r
}

func buildTextField(q *ResolvedQuestion, _ RespondentContext) FieldSpec {
	return FieldSpec{
		Name:     EncodeFieldName(q.Kind, q.ID),
		Label:    q.Prompt,
		Input:    InputText,
		Required: true,
	}
}

func buildYesNoField(q *ResolvedQuestion, _ RespondentContext) FieldSpec {
	return FieldSpec{
		Name:     EncodeFieldName(q.Kind, q.ID),
		Label:    q.Prompt,
		Input:    InputSingleChoice,
		Required: true,
		Options: []ChoiceOption{
			{Value: "yes", Label: "Yes"},
			{Value: "no", Label: "No"},
		},
	}
}

func buildMultipleChoiceField(q *ResolvedQuestion, _ RespondentContext) FieldSpec {
	return FieldSpec{
		Name:    EncodeFieldName(q.Kind, q.ID),
		Label:   q.Prompt,
		Input:   InputMultiChoice,
		Options: optionChoices(q),
	}
}

func buildRatingField(q *ResolvedQuestion, _ RespondentContext) FieldSpec {
	return FieldSpec{
		Name:     EncodeFieldName(q.Kind, q.ID),
		Label:    q.Prompt,
		Input:    InputSingleChoice,
		Required: true,
		Options:  optionChoices(q),
	}
}

func optionChoices(q *ResolvedQuestion) []ChoiceOption {
	out := make([]ChoiceOption, 0, len(q.Options))
	for _, o := range q.Options {
		out = append(out, ChoiceOption{Value: EncodeOptionValue(q.Kind, o.ID), Label: o.Label})
	}
	return out
}

func saveTextResponse(w ResponseWriter, set *ResponseSet, respondent string, questionID int64, value any, at time.Time) (int, error) {
	body, ok := value.(string)
	if !ok {
		return 0, NewInvalidError("text response expects a string value")
	}
	err := w.InsertTextResponse(&TextResponse{
		ResponseSetID: set.ID,
		Respondent:    respondent,
		QuestionID:    questionID,
		Body:          body,
		SubmittedAt:   at,
	})
	if err != nil {
		return 0, err
	}
	return 1, nil
}

func saveYesNoResponse(w ResponseWriter, set *ResponseSet, respondent string, questionID int64, value any, at time.Time) (int, error) {
	answer, ok := value.(string)
	if !ok || (answer != "yes" && answer != "no") {
		return 0, NewInvalidError("yes/no response expects yes or no")
	}
	err := w.InsertYesNoResponse(&YesNoResponse{
		ResponseSetID: set.ID,
		Respondent:    respondent,
		QuestionID:    questionID,
		Answer:        answer == "yes",
		SubmittedAt:   at,
	})
	if err != nil {
		return 0, err
	}
	return 1, nil
}

// saveMultipleChoiceResponse writes one row per selected option, all
// referencing the same response set. Selected values arrive as encoded
// option references and are decoded here, with the same codec that named the
// field itself.
func saveMultipleChoiceResponse(w ResponseWriter, set *ResponseSet, respondent string, questionID int64, value any, at time.Time) (int, error) {
	selected, ok := value.([]string)
	if !ok {
		return 0, NewInvalidError("multiple choice response expects a list of option references")
	}
	saved := 0
	for _, v := range selected {
		optionID, ok := DecodeOptionValue(KindMultipleChoice, v)
		if !ok {
			return saved, NewInvalidError("invalid option reference: " + v)
		}
		err := w.InsertMultipleChoiceResponse(&MultipleChoiceResponse{
			ResponseSetID: set.ID,
			Respondent:    respondent,
			QuestionID:    questionID,
			OptionID:      optionID,
			SubmittedAt:   at,
		})
		if err != nil {
			return saved, err
		}
		saved++
	}
	return saved, nil
}

func saveRatingResponse(w ResponseWriter, set *ResponseSet, respondent string, questionID int64, value any, at time.Time) (int, error) {
	v, ok := value.(string)
	if !ok {
		return 0, NewInvalidError("rating response expects an option reference")
	}
	optionID, ok := DecodeOptionValue(KindRating, v)
	if !ok {
		return 0, NewInvalidError("invalid option reference: " + v)
	}
	err := w.InsertRatingResponse(&RatingResponse{
		ResponseSetID: set.ID,
		Respondent:    respondent,
		QuestionID:    questionID,
		OptionID:      optionID,
		SubmittedAt:   at,
	})
	if err != nil {
		return 0, err
	}
	return 1, nil
}
