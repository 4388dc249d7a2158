package api

import (
	"sort"
	"strings"
	"sync"

	"github.com/dynaforms/dynaforms/internal/services"
)

// memoryStore keeps everything in process memory. It mirrors the relational
// layout of the sqlite store, including the cascades and the shared
// response-set uniqueness rule, so the services behave identically on both.
type memoryStore struct {
	mu  sync.RWMutex
	seq map[string]int64

	forms        map[int64]*services.Form
	questions    map[int64]*services.Question
	options      map[int64]*services.AnswerOption
	responseSets map[int64]*services.ResponseSet

	textResponses   []*services.TextResponse
	yesNoResponses  []*services.YesNoResponse
	choiceResponses []*services.MultipleChoiceResponse
	ratingResponses []*services.RatingResponse

	usersByEmail map[string]*services.User
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		seq:          map[string]int64{},
		forms:        map[int64]*services.Form{},
		questions:    map[int64]*services.Question{},
		options:      map[int64]*services.AnswerOption{},
		responseSets: map[int64]*services.ResponseSet{},
		usersByEmail: map[string]*services.User{},
	}
}

// NewMemoryStore returns an empty in-memory Store.
func NewMemoryStore() Store { return newMemoryStore() }

// nextID increments the per-table sequence. Callers hold the write lock.
func (s *memoryStore) nextID(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

// --- forms ---

func (s *memoryStore) InsertForm(f *services.Form) (*services.Form, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *f
	cp.ID = s.nextID("forms")
	s.forms[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *memoryStore) GetForm(id int64) (*services.Form, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if f, ok := s.forms[id]; ok {
		cp := *f
		return &cp, nil
	}
	return nil, nil
}

func (s *memoryStore) ListForms() ([]*services.Form, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*services.Form, 0, len(s.forms))
	for _, f := range s.forms {
		cp := *f
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memoryStore) DeleteForm(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.forms[id]; !ok {
		return nil
	}
	delete(s.forms, id)
	for qid, q := range s.questions {
		if q.FormID == id {
			s.deleteQuestionLocked(qid)
		}
	}
	for sid, rs := range s.responseSets {
		if rs.FormID == id {
			s.deleteResponseSetLocked(sid)
		}
	}
	return nil
}

// --- questions ---

func (s *memoryStore) InsertQuestion(q *services.Question) (*services.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *q
	cp.ID = s.nextID("questions")
	s.questions[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *memoryStore) GetQuestion(id int64) (*services.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if q, ok := s.questions[id]; ok {
		cp := *q
		return &cp, nil
	}
	return nil, nil
}

func (s *memoryStore) DeleteQuestion(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteQuestionLocked(id)
	return nil
}

// deleteQuestionLocked cascades to the question's options and responses.
func (s *memoryStore) deleteQuestionLocked(id int64) {
	delete(s.questions, id)
	for oid, o := range s.options {
		if o.QuestionID == id {
			delete(s.options, oid)
		}
	}
	s.textResponses = filterText(s.textResponses, func(r *services.TextResponse) bool { return r.QuestionID != id })
	s.yesNoResponses = filterYesNo(s.yesNoResponses, func(r *services.YesNoResponse) bool { return r.QuestionID != id })
	s.choiceResponses = filterChoice(s.choiceResponses, func(r *services.MultipleChoiceResponse) bool { return r.QuestionID != id })
	s.ratingResponses = filterRating(s.ratingResponses, func(r *services.RatingResponse) bool { return r.QuestionID != id })
}

func (s *memoryStore) ListQuestions(formID int64) ([]*services.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*services.Question{}
	for _, q := range s.questions {
		if q.FormID == formID {
			cp := *q
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *memoryStore) UpdateQuestionOrders(formID int64, orders map[int64]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, pos := range orders {
		if q, ok := s.questions[id]; ok && q.FormID == formID {
			q.Order = pos
		}
	}
	return nil
}

// --- answer options ---

func (s *memoryStore) InsertOption(o *services.AnswerOption) (*services.AnswerOption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	cp.ID = s.nextID("answer_options")
	s.options[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *memoryStore) ListOptions(questionID int64) ([]*services.AnswerOption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*services.AnswerOption{}
	for _, o := range s.options {
		if o.QuestionID == questionID {
			cp := *o
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- response sets ---

func (s *memoryStore) GetSharedResponseSet(formID int64, respondent, interviewer string) (*services.ResponseSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findSharedLocked(formID, respondent, interviewer), nil
}

func (s *memoryStore) findSharedLocked(formID int64, respondent, interviewer string) *services.ResponseSet {
	for _, rs := range s.responseSets {
		if rs.Shared && rs.FormID == formID && rs.Respondent == respondent && rs.Interviewer == interviewer {
			cp := *rs
			return &cp
		}
	}
	return nil
}

func (s *memoryStore) InsertResponseSet(rs *services.ResponseSet) (*services.ResponseSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rs.Shared && s.findSharedLocked(rs.FormID, rs.Respondent, rs.Interviewer) != nil {
		return nil, services.ErrDuplicateResponseSet
	}
	cp := *rs
	cp.ID = s.nextID("response_sets")
	s.responseSets[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *memoryStore) ListResponseSets(formID int64) ([]*services.ResponseSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*services.ResponseSet{}
	for _, rs := range s.responseSets {
		if rs.FormID == formID {
			cp := *rs
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memoryStore) deleteResponseSetLocked(id int64) {
	delete(s.responseSets, id)
	s.textResponses = filterText(s.textResponses, func(r *services.TextResponse) bool { return r.ResponseSetID != id })
	s.yesNoResponses = filterYesNo(s.yesNoResponses, func(r *services.YesNoResponse) bool { return r.ResponseSetID != id })
	s.choiceResponses = filterChoice(s.choiceResponses, func(r *services.MultipleChoiceResponse) bool { return r.ResponseSetID != id })
	s.ratingResponses = filterRating(s.ratingResponses, func(r *services.RatingResponse) bool { return r.ResponseSetID != id })
}

func (s *memoryStore) GetSetResponses(setID int64) (*services.SetResponses, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rs, ok := s.responseSets[setID]
	if !ok {
		return nil, nil
	}
	cp := *rs
	out := &services.SetResponses{Set: &cp}
	for _, r := range s.textResponses {
		if r.ResponseSetID == setID {
			rc := *r
			out.Text = append(out.Text, &rc)
		}
	}
	for _, r := range s.yesNoResponses {
		if r.ResponseSetID == setID {
			rc := *r
			out.YesNo = append(out.YesNo, &rc)
		}
	}
	for _, r := range s.choiceResponses {
		if r.ResponseSetID == setID {
			rc := *r
			out.MultipleChoice = append(out.MultipleChoice, &rc)
		}
	}
	for _, r := range s.ratingResponses {
		if r.ResponseSetID == setID {
			rc := *r
			out.Rating = append(out.Rating, &rc)
		}
	}
	return out, nil
}

// --- response writes ---

// memoryTx buffers one submission's response rows and applies them under a
// single lock acquisition on commit.
type memoryTx struct {
	store  *memoryStore
	done   bool
	text   []*services.TextResponse
	yesNo  []*services.YesNoResponse
	choice []*services.MultipleChoiceResponse
	rating []*services.RatingResponse
}

func (s *memoryStore) BeginResponseTx() (services.ResponseTx, error) {
	return &memoryTx{store: s}, nil
}

func (t *memoryTx) InsertTextResponse(r *services.TextResponse) error {
	cp := *r
	t.text = append(t.text, &cp)
	return nil
}

func (t *memoryTx) InsertYesNoResponse(r *services.YesNoResponse) error {
	cp := *r
	t.yesNo = append(t.yesNo, &cp)
	return nil
}

func (t *memoryTx) InsertMultipleChoiceResponse(r *services.MultipleChoiceResponse) error {
	cp := *r
	t.choice = append(t.choice, &cp)
	return nil
}

func (t *memoryTx) InsertRatingResponse(r *services.RatingResponse) error {
	cp := *r
	t.rating = append(t.rating, &cp)
	return nil
}

func (t *memoryTx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range t.text {
		r.ID = s.nextID("text_responses")
		s.textResponses = append(s.textResponses, r)
	}
	for _, r := range t.yesNo {
		r.ID = s.nextID("yes_no_responses")
		s.yesNoResponses = append(s.yesNoResponses, r)
	}
	for _, r := range t.choice {
		r.ID = s.nextID("multiple_choice_responses")
		s.choiceResponses = append(s.choiceResponses, r)
	}
	for _, r := range t.rating {
		r.ID = s.nextID("rating_responses")
		s.ratingResponses = append(s.ratingResponses, r)
	}
	return nil
}

func (t *memoryTx) Rollback() error {
	t.done = true
	return nil
}

// --- users ---

func (s *memoryStore) FindUserByEmail(email string) (*services.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.usersByEmail[strings.ToLower(email)]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (s *memoryStore) AddUser(u *services.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.usersByEmail[strings.ToLower(u.Email)] = &cp
	return nil
}

func filterText(in []*services.TextResponse, keep func(*services.TextResponse) bool) []*services.TextResponse {
	out := in[:0]
	for _, r := range in {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func filterYesNo(in []*services.YesNoResponse, keep func(*services.YesNoResponse) bool) []*services.YesNoResponse {
	out := in[:0]
	for _, r := range in {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func filterChoice(in []*services.MultipleChoiceResponse, keep func(*services.MultipleChoiceResponse) bool) []*services.MultipleChoiceResponse {
	out := in[:0]
	for _, r := range in {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func filterRating(in []*services.RatingResponse, keep func(*services.RatingResponse) bool) []*services.RatingResponse {
	out := in[:0]
	for _, r := range in {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
