package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"formsapi/internal/util"
	"formsapi/internal/validate"
	"formsapi/pkg/domain"
	"formsapi/pkg/result"
	"formsapi/pkg/store"
)

type AnswerInput struct {
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}

type CreateResponseInput struct {
	RespondentName  string        `json:"respondentName"`
	RespondentEmail string        `json:"respondentEmail"`
	Answers         []AnswerInput `json:"answers"`
}

// UpdateResponseInput replaces the answer set when Answers is non-nil; an
// empty list removes every answer.
type UpdateResponseInput struct {
	RespondentName  *string        `json:"respondentName"`
	RespondentEmail *string        `json:"respondentEmail"`
	Answers         *[]AnswerInput `json:"answers"`
}

type ListResponsesInput struct {
	Sort domain.Sort `json:"sort"`
}

// CreateResponse records an anonymous submission with its answers in one
// unit of work.
func (a *App) CreateResponse(ctx context.Context, formID string, in CreateResponseInput) result.Result[ResponseView] {
	return run(ctx, a, "createResponse", KindResponse, func() (ResponseView, error) {
		var v validate.Violations
		checkRespondentEmail(&v, in.RespondentEmail)
		checkAnswers(&v, in.Answers, true)
		if err := v.Err(msgInvalidResponse); err != nil {
			return ResponseView{}, err
		}
		if _, err := loadForm(a.store, formID); err != nil {
			return ResponseView{}, err
		}

		now := a.now()
		resp := domain.Response{
			ID:              util.NewID(),
			FormID:          formID,
			RespondentName:  strings.TrimSpace(in.RespondentName),
			RespondentEmail: strings.TrimSpace(in.RespondentEmail),
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		err := a.store.Transaction(func(tx store.Store) error {
			questions, err := checkAnswerRefs(tx, formID, in.Answers, true)
			if err != nil {
				return err
			}
			if err := tx.SaveResponse(resp); err != nil {
				return fmt.Errorf("save response: %w", err)
			}
			return insertAnswers(tx, resp, in.Answers, questions, now)
		})
		if err != nil {
			return ResponseView{}, err
		}
		return a.responseView(resp)
	})
}

// UpdateResponse edits respondent details and, when in.Answers is set,
// replaces the answer set in the same transaction.
func (a *App) UpdateResponse(ctx context.Context, identity domain.Identity, formID, responseID string, in UpdateResponseInput) result.Result[ResponseView] {
	return run(ctx, a, "updateResponse", KindResponse, func() (ResponseView, error) {
		if err := requireIdentity(identity); err != nil {
			return ResponseView{}, err
		}
		var v validate.Violations
		if in.RespondentEmail != nil {
			checkRespondentEmail(&v, *in.RespondentEmail)
		}
		if in.Answers != nil {
			checkAnswers(&v, *in.Answers, false)
		}
		if err := v.Err(msgInvalidResponse); err != nil {
			return ResponseView{}, err
		}
		if _, err := ownedForm(a.store, identity, formID, msgForbiddenUpdateResponse); err != nil {
			return ResponseView{}, err
		}

		var resp domain.Response
		err := a.store.Transaction(func(tx store.Store) error {
			var err error
			resp, err = loadResponse(tx, formID, responseID)
			if err != nil {
				return err
			}
			if in.RespondentName != nil {
				resp.RespondentName = strings.TrimSpace(*in.RespondentName)
			}
			if in.RespondentEmail != nil {
				resp.RespondentEmail = strings.TrimSpace(*in.RespondentEmail)
			}
			now := a.now()
			resp.UpdatedAt = now
			if err := tx.SaveResponse(resp); err != nil {
				return fmt.Errorf("save response: %w", err)
			}
			if in.Answers == nil {
				return nil
			}
			questions, err := checkAnswerRefs(tx, formID, *in.Answers, false)
			if err != nil {
				return err
			}
			if err := tx.DeleteAnswersByResponse(resp.ID); err != nil {
				return fmt.Errorf("delete answers: %w", err)
			}
			return insertAnswers(tx, resp, *in.Answers, questions, now)
		})
		if err != nil {
			return ResponseView{}, err
		}
		return a.responseView(resp)
	})
}

// DeleteResponse removes a response and its answers.
func (a *App) DeleteResponse(ctx context.Context, identity domain.Identity, formID, responseID string) result.Result[Success] {
	return run(ctx, a, "deleteResponse", KindSuccess, func() (Success, error) {
		if err := requireIdentity(identity); err != nil {
			return Success{}, err
		}
		if _, err := ownedForm(a.store, identity, formID, msgForbiddenDeleteResponse); err != nil {
			return Success{}, err
		}
		if _, err := loadResponse(a.store, formID, responseID); err != nil {
			return Success{}, err
		}
		if err := a.store.DeleteResponse(responseID); err != nil {
			return Success{}, fmt.Errorf("delete response: %w", err)
		}
		return Success{Success: true, Message: "Response deleted successfully"}, nil
	})
}

// Response returns one response of an owned form with its answers.
func (a *App) Response(ctx context.Context, identity domain.Identity, formID, responseID string) result.Result[ResponseView] {
	return run(ctx, a, "response", KindResponse, func() (ResponseView, error) {
		if err := requireIdentity(identity); err != nil {
			return ResponseView{}, err
		}
		if _, err := ownedForm(a.store, identity, formID, msgForbiddenViewResponses); err != nil {
			return ResponseView{}, err
		}
		resp, err := loadResponse(a.store, formID, responseID)
		if err != nil {
			return ResponseView{}, err
		}
		return a.responseView(resp)
	})
}

// Responses lists the submissions to an owned form.
func (a *App) Responses(ctx context.Context, identity domain.Identity, formID string, in ListResponsesInput) result.Result[ResponsesList] {
	return run(ctx, a, "responses", KindResponsesList, func() (ResponsesList, error) {
		if err := requireIdentity(identity); err != nil {
			return ResponsesList{}, err
		}
		var v validate.Violations
		sort := normalizeSort(&v, in.Sort, store.ResponseSortColumns)
		if err := v.Err(msgInvalidSort); err != nil {
			return ResponsesList{}, err
		}
		if _, err := ownedForm(a.store, identity, formID, msgForbiddenViewResponses); err != nil {
			return ResponsesList{}, err
		}
		responses, err := a.store.ListResponses(formID, sort)
		if err != nil {
			return ResponsesList{}, fmt.Errorf("list responses: %w", err)
		}
		views, err := a.responseViews(responses)
		if err != nil {
			return ResponsesList{}, err
		}
		return ResponsesList{Responses: views, Count: len(views)}, nil
	})
}

// checkAnswerRefs resolves every answered question inside formID. Unknown
// ids fail with QUESTION_NOT_FOUND; option and required-question violations
// fail with VALIDATION_ERROR.
func checkAnswerRefs(s store.Store, formID string, answers []AnswerInput, requireAll bool) (map[string]domain.Question, error) {
	list, err := s.ListQuestions(formID, store.DefaultQuestionSort)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	questions := make(map[string]domain.Question, len(list))
	for _, q := range list {
		questions[q.ID] = q
	}

	answered := make(map[string]bool, len(answers))
	var v validate.Violations
	for i, ans := range answers {
		q, ok := questions[strings.TrimSpace(ans.QuestionID)]
		if !ok {
			return nil, result.NotFound(result.CodeQuestionNotFound, "One or more questions").
				WithDetail("questionId", "Invalid question ID", "FOREIGN_KEY")
		}
		answered[q.ID] = true
		if q.Type.SingleChoice() && !q.HasOption(strings.TrimSpace(ans.Answer)) {
			v.Add(fmt.Sprintf("answers[%d].answer", i),
				fmt.Sprintf("Answer must be one of the options for question %s", q.ID), validate.InvalidOption)
		}
	}
	if requireAll {
		for _, q := range list {
			if q.Required && !answered[q.ID] {
				v.Add("answers", fmt.Sprintf("Question %q requires an answer", q.Text), validate.RequiredQuestion)
			}
		}
	}
	if err := v.Err(msgInvalidResponse); err != nil {
		return nil, err
	}
	return questions, nil
}

func insertAnswers(s store.Store, resp domain.Response, answers []AnswerInput, questions map[string]domain.Question, now time.Time) error {
	for _, ans := range answers {
		q := questions[strings.TrimSpace(ans.QuestionID)]
		answer := domain.Answer{
			ID:         util.NewID(),
			ResponseID: resp.ID,
			QuestionID: q.ID,
			FormID:     resp.FormID,
			Value:      strings.TrimSpace(ans.Answer),
			CreatedAt:  now,
		}
		if err := s.CreateAnswer(answer); err != nil {
			return fmt.Errorf("create answer: %w", err)
		}
	}
	return nil
}
