package services

import "testing"

func TestFieldNameRoundTrip(t *testing.T) {
	cases := []struct {
		kind QuestionKind
		id   int64
		want string
	}{
		{KindText, 1, "text-1"},
		{KindYesNo, 2, "yes-no-2"},
		{KindMultipleChoice, 42, "multiple-choice-42"},
		{KindRating, 7, "rating-7"},
	}
	for _, c := range cases {
		name := EncodeFieldName(c.kind, c.id)
		if name != c.want {
			t.Fatalf("EncodeFieldName(%s, %d) = %q, want %q", c.kind, c.id, name, c.want)
		}
		slug, id, ok := DecodeFieldName(name)
		if !ok {
			t.Fatalf("DecodeFieldName(%q) not ok", name)
		}
		if slug != string(c.kind) || id != c.id {
			t.Fatalf("DecodeFieldName(%q) = (%q, %d), want (%q, %d)", name, slug, id, c.kind, c.id)
		}
	}
}

func TestDecodeFieldNameRejectsNonProtocolNames(t *testing.T) {
	for _, name := range []string{
		"",
		"abc",
		"text-",
		"-1",
		"Text-1",
		"not-a-valid-name",
		"text-1-extra",
		"csrfmiddlewaretoken",
	} {
		if _, _, ok := DecodeFieldName(name); ok {
			t.Fatalf("DecodeFieldName(%q) unexpectedly ok", name)
		}
	}
}

func TestOptionValueRoundTrip(t *testing.T) {
	v := EncodeOptionValue(KindMultipleChoice, 42)
	if v != "multiple-choice-answer-42" {
		t.Fatalf("EncodeOptionValue = %q", v)
	}
	id, ok := DecodeOptionValue(KindMultipleChoice, v)
	if !ok || id != 42 {
		t.Fatalf("DecodeOptionValue = (%d, %v), want (42, true)", id, ok)
	}
}

func TestDecodeOptionValueChecksKind(t *testing.T) {
	v := EncodeOptionValue(KindRating, 3)
	if _, ok := DecodeOptionValue(KindMultipleChoice, v); ok {
		t.Fatalf("expected kind mismatch for %q", v)
	}
	if _, ok := DecodeOptionValue(KindRating, "rating-3"); ok {
		t.Fatalf("expected rejection of field-level name as option value")
	}
}
