package services

import (
	"fmt"
	"regexp"
	"strconv"
)

// Field name protocol: every rendered input is named "<kind-slug>-<id>", and
// choice values reference options as "<kind-slug>-answer-<optionID>". One
// pattern serves both levels; the greedy slug group absorbs interior hyphens,
// so "yes-no-2" splits into ("yes-no", 2) and "multiple-choice-answer-42"
// into ("multiple-choice-answer", 42).
var fieldNamePattern = regexp.MustCompile(`^([a-z-]+)-([0-9]+)$`)

const optionSlugSuffix = "-answer"

// EncodeFieldName builds the wire-level field name for a question.
func EncodeFieldName(kind QuestionKind, questionID int64) string {
	return fmt.Sprintf("%s-%d", kind, questionID)
}

// DecodeFieldName splits a submitted field name into kind slug and question
// id. ok is false when the name does not follow the protocol; callers skip
// such fields silently (CSRF tokens and other extraneous inputs are expected).
func DecodeFieldName(name string) (slug string, questionID int64, ok bool) {
	m := fieldNamePattern.FindStringSubmatch(name)
	if m == nil {
		return "", 0, false
	}
	id, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return m[1], id, true
}

// EncodeOptionValue builds the submitted value that references one answer
// option of a choice question.
func EncodeOptionValue(kind QuestionKind, optionID int64) string {
	return fmt.Sprintf("%s%s-%d", kind, optionSlugSuffix, optionID)
}

// DecodeOptionValue extracts the option id from a submitted choice value,
// checking that the value belongs to the given kind.
func DecodeOptionValue(kind QuestionKind, value string) (int64, bool) {
	slug, id, ok := DecodeFieldName(value)
	if !ok || slug != string(kind)+optionSlugSuffix {
		return 0, false
	}
	return id, true
}
