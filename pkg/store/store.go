package store

import (
	"errors"

	"formsapi/pkg/domain"
)

var (
	// ErrDuplicateEmail is returned when a user write collides with an existing email.
	ErrDuplicateEmail = errors.New("store: email already registered")
	// ErrUnknownQuestion is returned by SetQuestionPositions for ids outside the form.
	ErrUnknownQuestion = errors.New("store: question does not belong to form")
)

// FormQuery selects the forms returned by ListForms. An empty OwnerID lists
// forms of every owner.
type FormQuery struct {
	OwnerID string
	Filter  domain.FormFilter
	Sort    domain.Sort
}

// Store defines persistence operations for users, forms, questions,
// responses and answers.
//
// Getters return (value, found, err). Deletes cascade to owned rows:
// a user to its forms, a form to its questions, responses and answers,
// a question or response to its answers.
type Store interface {
	// users
	CreateUser(domain.User) error
	SaveUser(domain.User) error
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)
	ListUsers() ([]domain.User, error)
	DeleteUser(id string) error

	// forms
	SaveForm(domain.Form) error
	GetForm(id string) (domain.Form, bool, error)
	ListForms(FormQuery) ([]domain.Form, error)
	DeleteForm(id string) error

	// questions
	SaveQuestion(domain.Question) error
	GetQuestion(id string) (domain.Question, bool, error)
	ListQuestions(formID string, sort domain.Sort) ([]domain.Question, error)
	CountQuestions(formID string) (int, error)
	SetQuestionPositions(formID string, orderedIDs []string) error
	DeleteQuestion(id string) error

	// responses
	SaveResponse(domain.Response) error
	GetResponse(id string) (domain.Response, bool, error)
	ListResponses(formID string, sort domain.Sort) ([]domain.Response, error)
	CountResponses(formID string) (int, error)
	DeleteResponse(id string) error

	// answers, kept in insertion order per response
	CreateAnswer(domain.Answer) error
	ListAnswersByResponse(responseID string) ([]domain.Answer, error)
	CountAnswers(responseID string) (int, error)
	DeleteAnswersByResponse(responseID string) error

	// Transaction runs fn against a store whose writes become visible
	// only if fn returns nil. A panic inside fn rolls back and re-panics.
	Transaction(fn func(tx Store) error) error
}

// SessionStore issues and resolves session tokens.
type SessionStore interface {
	NewSession(user domain.User) (Session, error)
	IdentityFromToken(token string) (domain.Identity, bool, error)
	DeleteSession(token string) error
}
