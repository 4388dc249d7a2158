package services

import (
	"sort"
	"strings"
)

// FormStore abstracts persistence operations required by FormService.
// ListQuestions must return questions ordered by (order, id) so partial
// reorders stay stable. UpdateQuestionOrders must apply atomically relative
// to concurrent ListQuestions calls on the same form.
type FormStore interface {
	InsertForm(f *Form) (*Form, error)
	GetForm(id int64) (*Form, error)
	DeleteForm(id int64) error
	ListForms() ([]*Form, error)

	InsertQuestion(q *Question) (*Question, error)
	GetQuestion(id int64) (*Question, error)
	DeleteQuestion(id int64) error
	ListQuestions(formID int64) ([]*Question, error)
	UpdateQuestionOrders(formID int64, orders map[int64]int) error

	InsertOption(o *AnswerOption) (*AnswerOption, error)
	ListOptions(questionID int64) ([]*AnswerOption, error)
}

// FormService owns the form definition: the ordered, heterogeneous question
// list of each form.
type FormService struct {
	store    FormStore
	registry *Registry
}

func NewFormService(store FormStore, registry *Registry) *FormService {
	return &FormService{store: store, registry: registry}
}

func (s *FormService) CreateForm(name string) (*Form, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewInvalidError("form name required")
	}
	return s.store.InsertForm(&Form{Name: name})
}

func (s *FormService) GetForm(id int64) (*Form, error) {
	f, err := s.store.GetForm(id)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, NewNotFoundError("form not found")
	}
	return f, nil
}

func (s *FormService) ListForms() ([]*Form, error) {
	return s.store.ListForms()
}

// DeleteForm removes the form and, through storage cascade, its questions,
// options, response sets and responses.
func (s *FormService) DeleteForm(id int64) error {
	if _, err := s.GetForm(id); err != nil {
		return err
	}
	return s.store.DeleteForm(id)
}

// AddQuestion appends a question of the given kind to the form. Option labels
// are only meaningful for multiple-choice and rating questions; text and
// yes/no questions reject them. New questions sort last until reordered.
func (s *FormService) AddQuestion(formID int64, kind QuestionKind, prompt string, optionLabels []string) (*ResolvedQuestion, error) {
	if _, err := s.GetForm(formID); err != nil {
		return nil, err
	}
	if _, _, err := s.registry.Lookup(kind); err != nil {
		return nil, err
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, NewInvalidError("question prompt required")
	}
	hasOwnOptions := kind == KindMultipleChoice || kind == KindRating
	if !hasOwnOptions && len(optionLabels) > 0 {
		return nil, NewInvalidError("options are only valid for multiple-choice and rating questions")
	}

	q, err := s.store.InsertQuestion(&Question{
		FormID: formID,
		Kind:   kind,
		Prompt: prompt,
		Order:  DefaultQuestionOrder,
	})
	if err != nil {
		return nil, err
	}
	resolved := &ResolvedQuestion{Question: *q}
	for _, label := range optionLabels {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		o, err := s.store.InsertOption(&AnswerOption{QuestionID: q.ID, Label: label})
		if err != nil {
			return nil, err
		}
		resolved.Options = append(resolved.Options, o)
	}
	return resolved, nil
}

// DeleteQuestion removes a question only if it belongs to the given form, so
// a stale admin screen cannot delete another form's content.
func (s *FormService) DeleteQuestion(formID, questionID int64) error {
	q, err := s.store.GetQuestion(questionID)
	if err != nil {
		return err
	}
	if q == nil || q.FormID != formID {
		return NewNotFoundError("question not found")
	}
	return s.store.DeleteQuestion(questionID)
}

func (s *FormService) ListQuestions(formID int64) ([]*Question, error) {
	if _, err := s.GetForm(formID); err != nil {
		return nil, err
	}
	return s.store.ListQuestions(formID)
}

// Resolve upcasts a question to its concrete kind, loading the kind-specific
// payload. This is what lets callers walk a form's mixed-type question list
// without prior type checks.
func (s *FormService) Resolve(q *Question) (*ResolvedQuestion, error) {
	resolved := &ResolvedQuestion{Question: *q}
	if q.Kind == KindMultipleChoice || q.Kind == KindRating {
		opts, err := s.store.ListOptions(q.ID)
		if err != nil {
			return nil, err
		}
		resolved.Options = opts
	}
	return resolved, nil
}

// Reorder assigns order = 1-based position for each id in order. The list,
// compared as a set, must exactly equal the form's current question ids;
// otherwise ErrReorderMismatch is returned and stored order stays untouched.
func (s *FormService) Reorder(formID int64, order []int64) error {
	questions, err := s.ListQuestions(formID)
	if err != nil {
		return err
	}
	current := make([]int64, 0, len(questions))
	for _, q := range questions {
		current = append(current, q.ID)
	}
	if !sameContents(order, current) {
		return ErrReorderMismatch
	}
	orders := make(map[int64]int, len(order))
	for i, id := range order {
		orders[id] = i + 1
	}
	return s.store.UpdateQuestionOrders(formID, orders)
}

// sameContents reports whether a and b hold the same ids, order aside.
func sameContents(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]int64(nil), a...)
	bs := append([]int64(nil), b...)
	sort.Slice(as, func(i, j int) bool { return as[i] < as[j] })
	sort.Slice(bs, func(i, j int) bool { return bs[i] < bs[j] })
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
