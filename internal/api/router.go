package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/dynaforms/dynaforms/internal/middleware"
	"github.com/dynaforms/dynaforms/internal/services"
)

type Router struct {
	store       Store
	registry    *services.Registry
	forms       *services.FormService
	assembler   *services.Assembler
	responses   *services.ResponseService
	submissions *services.SubmissionService
	auth        *services.AuthService
}

// NewRouter wires the services over the given store. A nil store falls back
// to the in-memory implementation.
func NewRouter(store Store) *Router {
	if store == nil {
		store = newMemoryStore()
	}
	registry := services.DefaultRegistry()
	forms := services.NewFormService(store, registry)
	assembler := services.NewAssembler(forms, registry)
	responses := services.NewResponseService(store, registry)
	return &Router{
		store:       store,
		registry:    registry,
		forms:       forms,
		assembler:   assembler,
		responses:   responses,
		submissions: services.NewSubmissionService(assembler, responses),
		auth:        services.NewAuthService(store, middleware.SignToken),
	}
}

func (rt *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/auth/register", rt.handleRegister)   // POST
	mux.HandleFunc("/api/auth/login", rt.handleLogin)         // POST
	mux.HandleFunc("/api/question-kinds", rt.handleKinds)     // GET
	mux.HandleFunc("/api/seed", rt.handleSeed)                // POST
	mux.HandleFunc("/api/forms", rt.handleForms)              // POST, GET
	mux.HandleFunc("/api/forms/", rt.handleFormScoped)        // form subroutes
	mux.HandleFunc("/api/response-sets/", rt.handleResponseSet) // GET
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps service errors to HTTP statuses. Unknown errors are
// storage or programming failures: log and answer 500.
func writeError(w http.ResponseWriter, err error) {
	if se, ok := services.AsServiceError(err); ok {
		status := http.StatusInternalServerError
		switch se.Code {
		case services.ErrorInvalid:
			status = http.StatusBadRequest
		case services.ErrorNotFound:
			status = http.StatusNotFound
		case services.ErrorConflict:
			status = http.StatusConflict
		case services.ErrorUnauthorized:
			status = http.StatusUnauthorized
		case services.ErrorForbidden:
			status = http.StatusForbidden
		}
		http.Error(w, se.Message, status)
		return
	}
	if errors.Is(err, services.ErrReorderMismatch) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	log.Printf("api: internal error: %v", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	uid, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return "", false
	}
	return uid, true
}

// POST /api/auth/register
func (rt *Router) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req registerRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := rt.auth.Register(req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": res.Token, "user_id": res.UserID})
}

// POST /api/auth/login
func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req loginRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := rt.auth.Login(req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": res.Token, "user_id": res.UserID})
}

// GET /api/question-kinds — content-type chooser data for the admin UI.
func (rt *Router) handleKinds(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	type kindOut struct {
		Kind       string `json:"kind"`
		PrettyName string `json:"pretty_name"`
	}
	kinds := rt.registry.Kinds()
	out := make([]kindOut, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, kindOut{Kind: string(k), PrettyName: k.PrettyName()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"kinds": out})
}

// POST /api/seed — create a sample form with one question of each kind.
func (rt *Router) handleSeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	form, err := rt.forms.CreateForm("Sample survey")
	if err != nil {
		writeError(w, err)
		return
	}
	seed := []struct {
		kind    services.QuestionKind
		prompt  string
		options []string
	}{
		{services.KindText, "What is on your mind right now?", nil},
		{services.KindYesNo, "Did you sleep well last night?", nil},
		{services.KindMultipleChoice, "Which of these do you drink?", []string{"Coffee", "Tea", "Water"}},
		{services.KindRating, "How was your week overall?", []string{"Bad", "Okay", "Good", "Great"}},
	}
	for _, q := range seed {
		if _, err := rt.forms.AddQuestion(form.ID, q.kind, q.prompt, q.options); err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "form_id": form.ID})
}

// POST /api/forms, GET /api/forms
func (rt *Router) handleForms(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	switch r.Method {
	case http.MethodPost:
		var req createFormRequest
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, err)
			return
		}
		form, err := rt.forms.CreateForm(req.Name)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, form)
	case http.MethodGet:
		forms, err := rt.forms.ListForms()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"forms": forms})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleFormScoped dispatches /api/forms/{id} and its subroutes:
//
//	GET    /api/forms/{id}/fields          assembled field specs (public)
//	POST   /api/forms/{id}/submit          submission (auth)
//	POST   /api/forms/{id}/questions       add question (auth)
//	DELETE /api/forms/{id}/questions/{qid} delete question (auth)
//	POST   /api/forms/{id}/reorder         reorder via contentorder[] (auth)
//	GET    /api/forms/{id}/response-sets   list response sets (auth)
//	DELETE /api/forms/{id}                 delete form (auth)
func (rt *Router) handleFormScoped(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/forms/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	formID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if len(parts) == 1 {
		if r.Method != http.MethodDelete {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if _, ok := requireUser(w, r); !ok {
			return
		}
		if err := rt.forms.DeleteForm(formID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	switch parts[1] {
	case "fields":
		rt.handleFields(w, r, formID)
	case "submit":
		rt.handleSubmit(w, r, formID)
	case "questions":
		rt.handleQuestions(w, r, formID, parts[2:])
	case "reorder":
		rt.handleReorder(w, r, formID)
	case "response-sets":
		rt.handleResponseSets(w, r, formID)
	default:
		http.NotFound(w, r)
	}
}

// GET /api/forms/{id}/fields
func (rt *Router) handleFields(w http.ResponseWriter, r *http.Request, formID int64) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	respondent, _ := middleware.UserIDFromContext(r.Context())
	fields, err := rt.assembler.Assemble(formID, services.RespondentContext{Respondent: respondent})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"form_id": formID, "fields": fields})
}

// POST /api/forms/{id}/submit
//
// The submitting user is recorded as interviewer; the respondent defaults to
// that same user and can be overridden with the respondent parameter when a
// form is administered on someone's behalf. force_new=1 always opens a fresh
// response set.
func (rt *Router) handleSubmit(w http.ResponseWriter, r *http.Request, formID int64) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	raw, err := parseSubmissionData(r)
	if err != nil {
		writeError(w, err)
		return
	}
	respondent := r.URL.Query().Get("respondent")
	if respondent == "" {
		respondent = uid
	}
	forceNew := parseBoolParam(r.URL.Query().Get("force_new"))
	result, err := rt.submissions.Submit(formID, raw, respondent, uid, forceNew)
	if err != nil {
		writeError(w, err)
		return
	}
	switch result.State {
	case services.SubmissionRejected:
		writeJSON(w, http.StatusUnprocessableEntity, result)
	case services.SubmissionPopulated:
		writeJSON(w, http.StatusBadRequest, result)
	default:
		writeJSON(w, http.StatusOK, result)
	}
}

// POST /api/forms/{id}/questions, DELETE /api/forms/{id}/questions/{qid}
func (rt *Router) handleQuestions(w http.ResponseWriter, r *http.Request, formID int64, rest []string) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	if len(rest) == 1 {
		if r.Method != http.MethodDelete {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		questionID, err := strconv.ParseInt(rest[0], 10, 64)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		if err := rt.forms.DeleteQuestion(formID, questionID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req addQuestionRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}
	q, err := rt.forms.AddQuestion(formID, services.QuestionKind(req.Kind), req.Prompt, req.Options)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// POST /api/forms/{id}/reorder?contentorder[]=3&contentorder[]=1&contentorder[]=2
func (rt *Router) handleReorder(w http.ResponseWriter, r *http.Request, formID int64) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if _, ok := requireUser(w, r); !ok {
		return
	}
	values := r.URL.Query()["contentorder[]"]
	if len(values) == 0 {
		writeError(w, services.NewInvalidError("contentorder[] required"))
		return
	}
	order := make([]int64, 0, len(values))
	for _, v := range values {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, services.NewInvalidError("contentorder[] entries must be integer ids"))
			return
		}
		order = append(order, id)
	}
	if err := rt.forms.Reorder(formID, order); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "count": len(order)})
}

// GET /api/forms/{id}/response-sets
func (rt *Router) handleResponseSets(w http.ResponseWriter, r *http.Request, formID int64) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if _, ok := requireUser(w, r); !ok {
		return
	}
	if _, err := rt.forms.GetForm(formID); err != nil {
		writeError(w, err)
		return
	}
	sets, err := rt.responses.ListResponseSets(formID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"form_id": formID, "response_sets": sets})
}

// GET /api/response-sets/{id} — every response of one set, grouped per kind.
func (rt *Router) handleResponseSet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if _, ok := requireUser(w, r); !ok {
		return
	}
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/response-sets/"), "/")
	setID, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	out, err := rt.responses.GetSetResponses(setID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// parseSubmissionData accepts the raw field data either as a JSON object of
// string or string-list values, or as a form-encoded body.
func parseSubmissionData(r *http.Request) (map[string][]string, error) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/json") {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return nil, services.NewInvalidError("invalid request body: " + err.Error())
		}
		out := make(map[string][]string, len(body))
		for k, v := range body {
			switch t := v.(type) {
			case string:
				out[k] = []string{t}
			case []any:
				vals := make([]string, 0, len(t))
				for _, item := range t {
					s, ok := item.(string)
					if !ok {
						return nil, services.NewInvalidError("field values must be strings: " + k)
					}
					vals = append(vals, s)
				}
				out[k] = vals
			default:
				return nil, services.NewInvalidError("field values must be strings: " + k)
			}
		}
		return out, nil
	}
	if err := r.ParseForm(); err != nil {
		return nil, services.NewInvalidError("invalid form data: " + err.Error())
	}
	return r.PostForm, nil
}

func parseBoolParam(s string) bool {
	ss := strings.ToLower(strings.TrimSpace(s))
	return ss == "1" || ss == "true" || ss == "yes" || ss == "y"
}
