package app

import (
	"fmt"
	"strings"

	"formsapi/internal/validate"
	"formsapi/pkg/auth"
	"formsapi/pkg/domain"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 1000
	maxQuestionLength    = 500
	minChoiceOptions     = 2
)

var questionTypeList = strings.Join([]string{
	string(domain.QuestionShortText),
	string(domain.QuestionParagraph),
	string(domain.QuestionMultipleChoice),
	string(domain.QuestionCheckbox),
	string(domain.QuestionDropdown),
}, ", ")

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func checkEmail(v *validate.Violations, field, email string) {
	if v.Present(field, email, "Email is required") {
		v.Email(field, normalizeEmail(email))
	}
}

func checkPassword(v *validate.Violations, password string) {
	v.MinLen("password", password, auth.MinPasswordLength,
		fmt.Sprintf("Password must be at least %d characters long", auth.MinPasswordLength))
}

func checkTitle(v *validate.Violations, title string) {
	if v.Present("title", title, "Form title is required") {
		v.MaxLen("title", title, maxTitleLength, "Form title must be 200 characters or less")
	}
}

func checkDescription(v *validate.Violations, description string) {
	v.MaxLen("description", description, maxDescriptionLength, "Form description must be 1000 characters or less")
}

func checkQuestionText(v *validate.Violations, text string) {
	if v.Present("text", text, "Question text is required") {
		v.MaxLen("text", text, maxQuestionLength, "Question text must be 500 characters or less")
	}
}

func checkQuestionType(v *validate.Violations, raw string) (domain.QuestionType, bool) {
	qt, ok := domain.ParseQuestionType(raw)
	if !ok {
		v.Add("type", "Question type must be one of: "+questionTypeList, validate.InvalidValue)
	}
	return qt, ok
}

func checkOptions(v *validate.Violations, qt domain.QuestionType, options []string) {
	if qt.HasOptions() && len(options) < minChoiceOptions {
		v.Add("options", "At least 2 options are required for choice questions", validate.MinOptions)
	}
}

func checkPosition(v *validate.Violations, position, max int) {
	if position < 1 || position > max {
		v.Add("order", fmt.Sprintf("Question order must be between 1 and %d", max), validate.OutOfRange)
	}
}

func checkRespondentEmail(v *validate.Violations, email string) {
	if strings.TrimSpace(email) != "" {
		v.Email("respondentEmail", strings.TrimSpace(email))
	}
}

// checkAnswers validates the shape of each answer; references to questions
// are checked against the form later.
func checkAnswers(v *validate.Violations, answers []AnswerInput, requireOne bool) {
	if requireOne && len(answers) == 0 {
		v.Add("answers", "At least one answer is required", validate.Required)
		return
	}
	for i, a := range answers {
		v.Present(fmt.Sprintf("answers[%d].questionId", i), a.QuestionID, "Question ID is required")
		v.Present(fmt.Sprintf("answers[%d].answer", i), a.Answer, "Answer value is required")
	}
}

// normalizeSort upper-cases sort input and records unknown fields or orders.
func normalizeSort(v *validate.Violations, s domain.Sort, columns map[domain.SortField]string) domain.Sort {
	s.Field = domain.SortField(strings.ToUpper(strings.TrimSpace(string(s.Field))))
	s.Order = domain.SortOrder(strings.ToUpper(strings.TrimSpace(string(s.Order))))
	if s.Field != "" {
		if _, ok := columns[s.Field]; !ok {
			v.Add("sort.field", fmt.Sprintf("Unknown sort field %q", s.Field), validate.InvalidValue)
		}
	}
	if s.Order != "" && s.Order != domain.SortAsc && s.Order != domain.SortDesc {
		v.Add("sort.direction", "Sort direction must be ASC or DESC", validate.InvalidValue)
	}
	return s
}

func trimOptions(options []string) []string {
	out := make([]string, 0, len(options))
	for _, opt := range options {
		out = append(out, strings.TrimSpace(opt))
	}
	return out
}
