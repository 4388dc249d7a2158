package services

import "testing"

func TestAssemblePreservesDisplayOrder(t *testing.T) {
	store := newStubFormStore()
	registry := DefaultRegistry()
	forms := NewFormService(store, registry)
	assembler := NewAssembler(forms, registry)

	form, _ := forms.CreateForm("Survey")
	qText, _ := forms.AddQuestion(form.ID, KindText, "What is on your mind?", nil)
	qYesNo, _ := forms.AddQuestion(form.ID, KindYesNo, "Did you sleep well?", nil)
	qRating, _ := forms.AddQuestion(form.ID, KindRating, "How was your week?", []string{"Bad", "Good"})

	if err := forms.Reorder(form.ID, []int64{qRating.ID, qText.ID, qYesNo.ID}); err != nil {
		t.Fatalf("Reorder returned error: %v", err)
	}

	fields, err := assembler.Assemble(form.ID, RespondentContext{Respondent: "u1"})
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}
	if len(fields) != 3 {
		t.Fatalf("fields = %d, want 3", len(fields))
	}
	wantNames := []string{
		EncodeFieldName(KindRating, qRating.ID),
		EncodeFieldName(KindText, qText.ID),
		EncodeFieldName(KindYesNo, qYesNo.ID),
	}
	for i, want := range wantNames {
		if fields[i].Name != want {
			t.Fatalf("field %d name = %q, want %q", i, fields[i].Name, want)
		}
	}
	if fields[0].Input != InputSingleChoice || len(fields[0].Options) != 2 {
		t.Fatalf("unexpected rating field: %+v", fields[0])
	}
	if fields[1].Input != InputText || !fields[1].Required {
		t.Fatalf("unexpected text field: %+v", fields[1])
	}
	if fields[2].Input != InputSingleChoice || len(fields[2].Options) != 2 {
		t.Fatalf("unexpected yes/no field: %+v", fields[2])
	}
}

func TestAssembleMissingForm(t *testing.T) {
	store := newStubFormStore()
	registry := DefaultRegistry()
	assembler := NewAssembler(NewFormService(store, registry), registry)
	if _, err := assembler.Assemble(42, RespondentContext{}); err == nil {
		t.Fatalf("expected not found error")
	}
}
