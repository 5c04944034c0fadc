package domain

import (
	"strings"
	"time"
)

type QuestionType string

const (
	QuestionShortText      QuestionType = "shorttext"
	QuestionParagraph      QuestionType = "paragraph"
	QuestionMultipleChoice QuestionType = "multiplechoice"
	QuestionCheckbox       QuestionType = "checkbox"
	QuestionDropdown       QuestionType = "dropdown"
)

// ParseQuestionType maps user input onto a known question type.
func ParseQuestionType(raw string) (QuestionType, bool) {
	switch QuestionType(strings.ToLower(strings.TrimSpace(raw))) {
	case QuestionShortText:
		return QuestionShortText, true
	case QuestionParagraph:
		return QuestionParagraph, true
	case QuestionMultipleChoice:
		return QuestionMultipleChoice, true
	case QuestionCheckbox:
		return QuestionCheckbox, true
	case QuestionDropdown:
		return QuestionDropdown, true
	default:
		return "", false
	}
}

// HasOptions reports whether answers are picked from a fixed option list.
func (t QuestionType) HasOptions() bool {
	return t == QuestionMultipleChoice || t == QuestionCheckbox || t == QuestionDropdown
}

// SingleChoice reports whether an answer must equal exactly one option.
func (t QuestionType) SingleChoice() bool {
	return t == QuestionMultipleChoice || t == QuestionDropdown
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Form struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"userId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Question struct {
	ID        string       `json:"id"`
	FormID    string       `json:"formId"`
	Text      string       `json:"text"`
	Type      QuestionType `json:"type"`
	Required  bool         `json:"required"`
	Options   []string     `json:"options"`
	Position  int          `json:"order"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// HasOption reports whether value is one of the question's options.
func (q Question) HasOption(value string) bool {
	for _, opt := range q.Options {
		if opt == value {
			return true
		}
	}
	return false
}

type Response struct {
	ID              string    `json:"id"`
	FormID          string    `json:"formId"`
	RespondentName  string    `json:"respondentName,omitempty"`
	RespondentEmail string    `json:"respondentEmail,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type Answer struct {
	ID         string    `json:"id"`
	ResponseID string    `json:"responseId"`
	QuestionID string    `json:"questionId"`
	FormID     string    `json:"formId"`
	Value      string    `json:"answer"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Identity is the caller resolved from a session token. The zero value is
// the anonymous caller.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

func (i Identity) IsAnonymous() bool {
	return i.UserID == ""
}

type SortOrder string

const (
	SortAsc  SortOrder = "ASC"
	SortDesc SortOrder = "DESC"
)

// SortField names a column a list may be ordered by.
type SortField string

const (
	SortCreatedAt      SortField = "CREATED_AT"
	SortUpdatedAt      SortField = "UPDATED_AT"
	SortTitle          SortField = "TITLE"
	SortOrderPosition  SortField = "ORDER"
	SortRespondentName SortField = "RESPONDENT_NAME"
)

type Sort struct {
	Field SortField `json:"field"`
	Order SortOrder `json:"direction"`
}

// FormFilter narrows a form listing. Zero fields are ignored.
type FormFilter struct {
	Title         string    `json:"title"`
	CreatedAfter  time.Time `json:"createdAfter"`
	CreatedBefore time.Time `json:"createdBefore"`
}
