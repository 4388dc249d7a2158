package services

// Assembler produces the ordered field set for rendering a form. The output
// order equals question display order exactly; it is user-visible and must be
// preserved from storage through rendering.
type Assembler struct {
	forms    *FormService
	registry *Registry
}

func NewAssembler(forms *FormService, registry *Registry) *Assembler {
	return &Assembler{forms: forms, registry: registry}
}

// Assemble resolves each of the form's questions to its concrete kind and
// dispatches to the registered widget builder, yielding one FieldSpec per
// question in display order.
func (a *Assembler) Assemble(formID int64, ctx RespondentContext) ([]FieldSpec, error) {
	questions, err := a.forms.ListQuestions(formID)
	if err != nil {
		return nil, err
	}
	fields := make([]FieldSpec, 0, len(questions))
	for _, q := range questions {
		resolved, err := a.forms.Resolve(q)
		if err != nil {
			return nil, err
		}
		build, _, err := a.registry.Lookup(q.Kind)
		if err != nil {
			return nil, err
		}
		fields = append(fields, build(resolved, ctx))
	}
	return fields, nil
}
