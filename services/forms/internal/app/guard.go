package app

import (
	"fmt"

	"formsapi/pkg/domain"
	"formsapi/pkg/result"
	"formsapi/pkg/store"
)

func requireIdentity(identity domain.Identity) error {
	if identity.IsAnonymous() {
		return result.Unauthorized()
	}
	return nil
}

// assertOwner fails with FORBIDDEN unless identity owns form.
func assertOwner(identity domain.Identity, form domain.Form, message string) error {
	if identity.IsAnonymous() || identity.UserID != form.OwnerID {
		return result.Forbidden(message)
	}
	return nil
}

func loadForm(s store.Store, formID string) (domain.Form, error) {
	form, ok, err := s.GetForm(formID)
	if err != nil {
		return domain.Form{}, fmt.Errorf("get form: %w", err)
	}
	if !ok {
		return domain.Form{}, result.FormNotFound()
	}
	return form, nil
}

// ownedForm loads formID and checks identity owns it.
func ownedForm(s store.Store, identity domain.Identity, formID, forbidden string) (domain.Form, error) {
	form, err := loadForm(s, formID)
	if err != nil {
		return domain.Form{}, err
	}
	if err := assertOwner(identity, form, forbidden); err != nil {
		return domain.Form{}, err
	}
	return form, nil
}

// loadQuestion returns QUESTION_NOT_FOUND for ids outside formID.
func loadQuestion(s store.Store, formID, questionID string) (domain.Question, error) {
	q, ok, err := s.GetQuestion(questionID)
	if err != nil {
		return domain.Question{}, fmt.Errorf("get question: %w", err)
	}
	if !ok || q.FormID != formID {
		return domain.Question{}, result.QuestionNotFound()
	}
	return q, nil
}

// loadResponse returns RESPONSE_NOT_FOUND for ids outside formID.
func loadResponse(s store.Store, formID, responseID string) (domain.Response, error) {
	r, ok, err := s.GetResponse(responseID)
	if err != nil {
		return domain.Response{}, fmt.Errorf("get response: %w", err)
	}
	if !ok || r.FormID != formID {
		return domain.Response{}, result.ResponseNotFound()
	}
	return r, nil
}

func loadUser(s store.Store, userID string) (domain.User, error) {
	u, ok, err := s.GetUserByID(userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	if !ok {
		return domain.User{}, result.UserNotFound()
	}
	return u, nil
}
