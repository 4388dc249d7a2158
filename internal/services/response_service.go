package services

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ResponseWriter is the narrow write surface response savers persist through.
type ResponseWriter interface {
	InsertTextResponse(r *TextResponse) error
	InsertYesNoResponse(r *YesNoResponse) error
	InsertMultipleChoiceResponse(r *MultipleChoiceResponse) error
	InsertRatingResponse(r *RatingResponse) error
}

// ResponseTx batches the response writes of one submission so they commit or
// fail together where the storage layer supports it.
type ResponseTx interface {
	ResponseWriter
	Commit() error
	Rollback() error
}

// ResponseStore abstracts persistence operations required by ResponseService.
// InsertResponseSet must enforce at most one shared set per (form,
// respondent, interviewer) key and return ErrDuplicateResponseSet when a
// concurrent insert won; the caller re-fetches instead of erroring.
type ResponseStore interface {
	GetSharedResponseSet(formID int64, respondent, interviewer string) (*ResponseSet, error)
	InsertResponseSet(rs *ResponseSet) (*ResponseSet, error)
	ListResponseSets(formID int64) ([]*ResponseSet, error)
	GetSetResponses(setID int64) (*SetResponses, error)
	BeginResponseTx() (ResponseTx, error)
}

// ResponseService resolves response sets and dispatches per-kind response
// persistence through the registry.
type ResponseService struct {
	store    ResponseStore
	registry *Registry
	now      func() time.Time
	newToken func() string
}

func NewResponseService(store ResponseStore, registry *Registry) *ResponseService {
	return &ResponseService{
		store:    store,
		registry: registry,
		now:      func() time.Time { return time.Now().UTC() },
		newToken: func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
	}
}

// ResolveResponseSet returns the set all responses of one submission share.
// With forceNew a fresh set is always created; otherwise the shared set for
// (form, respondent, interviewer) is fetched, created if absent. The
// get-or-create race under reuse mode is settled by the storage uniqueness
// constraint: the loser re-fetches the winner's row.
func (s *ResponseService) ResolveResponseSet(formID int64, respondent, interviewer string, forceNew bool) (*ResponseSet, error) {
	if !forceNew {
		existing, err := s.store.GetSharedResponseSet(formID, respondent, interviewer)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}
	created, err := s.store.InsertResponseSet(&ResponseSet{
		Token:       s.newToken(),
		FormID:      formID,
		Respondent:  respondent,
		Interviewer: interviewer,
		Shared:      !forceNew,
		CreatedAt:   s.now(),
	})
	if errors.Is(err, ErrDuplicateResponseSet) && !forceNew {
		return s.store.GetSharedResponseSet(formID, respondent, interviewer)
	}
	if err != nil {
		return nil, err
	}
	return created, nil
}

// SaveResponse persists one answered question's value as the kind-appropriate
// row(s) via the registered saver. It reports how many rows were written.
func (s *ResponseService) SaveResponse(w ResponseWriter, kind QuestionKind, set *ResponseSet, respondent string, questionID int64, value any, at time.Time) (int, error) {
	_, save, err := s.registry.Lookup(kind)
	if err != nil {
		return 0, err
	}
	return save(w, set, respondent, questionID, value, at)
}

// BeginTx opens a response write batch for one submission.
func (s *ResponseService) BeginTx() (ResponseTx, error) {
	return s.store.BeginResponseTx()
}

func (s *ResponseService) ListResponseSets(formID int64) ([]*ResponseSet, error) {
	return s.store.ListResponseSets(formID)
}

func (s *ResponseService) GetSetResponses(setID int64) (*SetResponses, error) {
	sr, err := s.store.GetSetResponses(setID)
	if err != nil {
		return nil, err
	}
	if sr == nil {
		return nil, NewNotFoundError("response set not found")
	}
	return sr, nil
}
