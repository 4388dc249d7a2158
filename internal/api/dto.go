package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/dynaforms/dynaforms/internal/services"
)

var validate = validator.New()

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type createFormRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

type addQuestionRequest struct {
	Kind    string   `json:"kind" validate:"required,oneof=text yes-no multiple-choice rating"`
	Prompt  string   `json:"prompt" validate:"required"`
	Options []string `json:"options" validate:"omitempty,dive,required"`
}

// decodeAndValidate parses the JSON body into dst and runs struct validation.
func decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return services.NewInvalidError("invalid request body: " + err.Error())
	}
	if err := validate.Struct(dst); err != nil {
		return services.NewInvalidError(err.Error())
	}
	return nil
}
