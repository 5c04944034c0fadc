package store

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"formsapi/pkg/domain"
)

// GORM models used for persistence.
type UserModel struct {
	ID           string    `gorm:"primaryKey"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	Name         string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null;index"`
	UpdatedAt    time.Time `gorm:"not null"`
}

type FormModel struct {
	ID          string `gorm:"primaryKey"`
	OwnerID     string `gorm:"not null;index"`
	Title       string `gorm:"not null"`
	Description string
	CreatedAt   time.Time `gorm:"not null;index"`
	UpdatedAt   time.Time `gorm:"not null"`
}

type QuestionModel struct {
	ID        string         `gorm:"primaryKey"`
	FormID    string         `gorm:"not null;index:idx_question_form_position"`
	Text      string         `gorm:"not null"`
	Type      string         `gorm:"not null"`
	Required  bool           `gorm:"not null;default:false"`
	Options   datatypes.JSON `gorm:"type:json"`
	Position  int            `gorm:"not null;index:idx_question_form_position"`
	CreatedAt time.Time      `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"not null"`
}

type ResponseModel struct {
	ID              string `gorm:"primaryKey"`
	FormID          string `gorm:"not null;index"`
	RespondentName  string
	RespondentEmail string
	CreatedAt       time.Time `gorm:"not null;index"`
	UpdatedAt       time.Time `gorm:"not null"`
}

// AnswerModel.Seq keeps answers in insertion order within a response.
type AnswerModel struct {
	ID         string    `gorm:"primaryKey"`
	ResponseID string    `gorm:"not null;index:idx_answer_response_seq"`
	QuestionID string    `gorm:"not null;index"`
	FormID     string    `gorm:"not null;index"`
	Value      string    `gorm:"type:text;not null"`
	Seq        int       `gorm:"not null;index:idx_answer_response_seq"`
	CreatedAt  time.Time `gorm:"not null"`
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Name:         u.Name,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Name:         m.Name,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func formToModel(f domain.Form) FormModel {
	return FormModel{
		ID:          f.ID,
		OwnerID:     f.OwnerID,
		Title:       f.Title,
		Description: f.Description,
		CreatedAt:   f.CreatedAt.UTC(),
		UpdatedAt:   f.UpdatedAt.UTC(),
	}
}

func formFromModel(m FormModel) domain.Form {
	return domain.Form{
		ID:          m.ID,
		OwnerID:     m.OwnerID,
		Title:       m.Title,
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func questionToModel(q domain.Question) (QuestionModel, error) {
	options := q.Options
	if options == nil {
		options = []string{}
	}
	raw, err := json.Marshal(options)
	if err != nil {
		return QuestionModel{}, err
	}
	return QuestionModel{
		ID:        q.ID,
		FormID:    q.FormID,
		Text:      q.Text,
		Type:      string(q.Type),
		Required:  q.Required,
		Options:   datatypes.JSON(raw),
		Position:  q.Position,
		CreatedAt: q.CreatedAt,
		UpdatedAt: q.UpdatedAt,
	}, nil
}

func questionFromModel(m QuestionModel) domain.Question {
	options := []string{}
	if len(m.Options) > 0 {
		_ = json.Unmarshal(m.Options, &options)
	}
	return domain.Question{
		ID:        m.ID,
		FormID:    m.FormID,
		Text:      m.Text,
		Type:      domain.QuestionType(m.Type),
		Required:  m.Required,
		Options:   options,
		Position:  m.Position,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func responseToModel(r domain.Response) ResponseModel {
	return ResponseModel{
		ID:              r.ID,
		FormID:          r.FormID,
		RespondentName:  r.RespondentName,
		RespondentEmail: r.RespondentEmail,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func responseFromModel(m ResponseModel) domain.Response {
	return domain.Response{
		ID:              m.ID,
		FormID:          m.FormID,
		RespondentName:  m.RespondentName,
		RespondentEmail: m.RespondentEmail,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func answerToModel(a domain.Answer) AnswerModel {
	return AnswerModel{
		ID:         a.ID,
		ResponseID: a.ResponseID,
		QuestionID: a.QuestionID,
		FormID:     a.FormID,
		Value:      a.Value,
		CreatedAt:  a.CreatedAt,
	}
}

func answerFromModel(m AnswerModel) domain.Answer {
	return domain.Answer{
		ID:         m.ID,
		ResponseID: m.ResponseID,
		QuestionID: m.QuestionID,
		FormID:     m.FormID,
		Value:      m.Value,
		CreatedAt:  m.CreatedAt,
	}
}
