package services

import (
	"strings"
	"time"
)

// SubmissionState tracks one submission through the pipeline:
// empty → populated → bound → validated|rejected → persisted.
type SubmissionState string

const (
	SubmissionEmpty     SubmissionState = "empty"
	SubmissionPopulated SubmissionState = "populated"
	SubmissionBound     SubmissionState = "bound"
	SubmissionValidated SubmissionState = "validated"
	SubmissionRejected  SubmissionState = "rejected"
	SubmissionPersisted SubmissionState = "persisted"
)

// Submission holds an assembled field set and, once bound, the raw submitted
// data. It knows input kinds, not question kinds: everything kind-specific
// stays behind the registry.
type Submission struct {
	state       SubmissionState
	fields      []FieldSpec
	raw         map[string][]string
	cleaned     map[string]any
	fieldErrors map[string]string
}

// NewSubmission starts a submission populated with the assembled fields.
func NewSubmission(fields []FieldSpec) *Submission {
	return &Submission{state: SubmissionPopulated, fields: fields}
}

func (s *Submission) State() SubmissionState { return s.state }

// Bind attaches raw submitted data. Binding nothing is a no-op, not an
// error: the display path and the submit path share this code path.
func (s *Submission) Bind(data map[string][]string) {
	if s.state != SubmissionPopulated || len(data) == 0 {
		return
	}
	s.raw = data
	s.state = SubmissionBound
}

// Validate applies per-field validation and moves the submission to
// validated or rejected. Required fields must be present; selected choice
// values must be among the field's options. Raw keys that match no field are
// ignored.
func (s *Submission) Validate() bool {
	if s.state != SubmissionBound {
		return s.state == SubmissionValidated
	}
	s.cleaned = map[string]any{}
	s.fieldErrors = map[string]string{}
	for _, f := range s.fields {
		vals := s.raw[f.Name]
		switch f.Input {
		case InputText:
			v := ""
			if len(vals) > 0 {
				v = strings.TrimSpace(vals[0])
			}
			if v == "" {
				if f.Required {
					s.fieldErrors[f.Name] = "This field is required."
				}
				continue
			}
			s.cleaned[f.Name] = v
		case InputSingleChoice:
			v := ""
			if len(vals) > 0 {
				v = vals[0]
			}
			if v == "" {
				if f.Required {
					s.fieldErrors[f.Name] = "This field is required."
				}
				continue
			}
			if !hasChoice(f, v) {
				s.fieldErrors[f.Name] = "Select a valid choice."
				continue
			}
			s.cleaned[f.Name] = v
		case InputMultiChoice:
			selected := make([]string, 0, len(vals))
			valid := true
			for _, v := range vals {
				if v == "" {
					continue
				}
				if !hasChoice(f, v) {
					s.fieldErrors[f.Name] = "Select a valid choice."
					valid = false
					break
				}
				selected = append(selected, v)
			}
			if !valid {
				continue
			}
			if len(selected) == 0 {
				if f.Required {
					s.fieldErrors[f.Name] = "This field is required."
				}
				continue
			}
			s.cleaned[f.Name] = selected
		}
	}
	if len(s.fieldErrors) > 0 {
		s.state = SubmissionRejected
		return false
	}
	s.state = SubmissionValidated
	return true
}

// Cleaned returns the validated fieldName → value mapping.
func (s *Submission) Cleaned() map[string]any { return s.cleaned }

// FieldErrors returns the fieldName → reason mapping of a rejected
// submission.
func (s *Submission) FieldErrors() map[string]string { return s.fieldErrors }

func hasChoice(f FieldSpec, value string) bool {
	for _, o := range f.Options {
		if o.Value == value {
			return true
		}
	}
	return false
}

// SubmissionResult reports where the pipeline stopped. Validation failures
// come back as a rejected result, never as an error.
type SubmissionResult struct {
	State       SubmissionState   `json:"state"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
	ResponseSet *ResponseSet      `json:"response_set,omitempty"`
	Saved       int               `json:"saved"`
}

// SubmissionService runs the full pipeline: assemble, bind, validate,
// resolve the response set, then dispatch each answered field to its
// registered saver.
type SubmissionService struct {
	assembler *Assembler
	responses *ResponseService
	now       func() time.Time
}

func NewSubmissionService(assembler *Assembler, responses *ResponseService) *SubmissionService {
	return &SubmissionService{
		assembler: assembler,
		responses: responses,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Submit processes raw submitted key/value data against the form's assembled
// field set. The response set is resolved before any response row is written
// and every row of the submission shares it. The per-field writes run in one
// storage transaction; a failure fails the submission as a whole.
func (s *SubmissionService) Submit(formID int64, raw map[string][]string, respondent, interviewer string, forceNewSet bool) (*SubmissionResult, error) {
	fields, err := s.assembler.Assemble(formID, RespondentContext{Respondent: respondent})
	if err != nil {
		return nil, err
	}
	sub := NewSubmission(fields)
	sub.Bind(raw)
	if sub.State() == SubmissionPopulated {
		return &SubmissionResult{State: SubmissionPopulated}, nil
	}
	if !sub.Validate() {
		return &SubmissionResult{State: SubmissionRejected, FieldErrors: sub.FieldErrors()}, nil
	}

	set, err := s.responses.ResolveResponseSet(formID, respondent, interviewer, forceNewSet)
	if err != nil {
		return nil, err
	}
	tx, err := s.responses.BeginTx()
	if err != nil {
		return nil, err
	}
	at := s.now()
	saved := 0
	for _, f := range sub.fields {
		value, answered := sub.cleaned[f.Name]
		if !answered {
			continue
		}
		slug, questionID, ok := DecodeFieldName(f.Name)
		if !ok {
			continue
		}
		n, err := s.responses.SaveResponse(tx, QuestionKind(slug), set, respondent, questionID, value, at)
		if err != nil {
			_ = tx.Rollback()
			return nil, err
		}
		saved += n
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &SubmissionResult{State: SubmissionPersisted, ResponseSet: set, Saved: saved}, nil
}
