package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"formsapi/internal/util"
	"formsapi/internal/validate"
	"formsapi/pkg/domain"
	"formsapi/pkg/result"
	"formsapi/pkg/store"
)

// CreateQuestionInput appends a question unless Position places it earlier.
type CreateQuestionInput struct {
	Text     string   `json:"text"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	Options  []string `json:"options"`
	Position *int     `json:"order"`
}

// UpdateQuestionInput is a partial question update. A non-nil Position
// moves the question and renumbers its siblings.
type UpdateQuestionInput struct {
	Text     *string   `json:"text"`
	Type     *string   `json:"type"`
	Required *bool     `json:"required"`
	Options  *[]string `json:"options"`
	Position *int      `json:"order"`
}

// ReorderQuestionsInput lists every question of a form in its new order.
type ReorderQuestionsInput struct {
	QuestionIDs []string `json:"questionIds"`
}

type ListQuestionsInput struct {
	Sort domain.Sort `json:"sort"`
}

// CreateQuestion adds a question to a form the caller owns. Without a
// Position it is appended after the last question.
func (a *App) CreateQuestion(ctx context.Context, identity domain.Identity, formID string, in CreateQuestionInput) result.Result[domain.Question] {
	return run(ctx, a, "createQuestion", KindQuestion, func() (domain.Question, error) {
		if err := requireIdentity(identity); err != nil {
			return domain.Question{}, err
		}
		var v validate.Violations
		checkQuestionText(&v, in.Text)
		qt, ok := checkQuestionType(&v, in.Type)
		options := trimOptions(in.Options)
		if ok {
			checkOptions(&v, qt, options)
		}
		if err := v.Err(msgInvalidQuestion); err != nil {
			return domain.Question{}, err
		}
		if _, err := ownedForm(a.store, identity, formID, msgForbiddenAddQuestion); err != nil {
			return domain.Question{}, err
		}

		now := a.now()
		q := domain.Question{
			ID:        util.NewID(),
			FormID:    formID,
			Text:      strings.TrimSpace(in.Text),
			Type:      qt,
			Required:  in.Required,
			Options:   options,
			CreatedAt: now,
			UpdatedAt: now,
		}
		err := a.store.Transaction(func(tx store.Store) error {
			ids, err := questionIDs(tx, formID)
			if err != nil {
				return err
			}
			at := len(ids) + 1
			if in.Position != nil {
				var pv validate.Violations
				checkPosition(&pv, *in.Position, len(ids)+1)
				if err := pv.Err(msgInvalidQuestion); err != nil {
					return err
				}
				at = *in.Position
			}
			q.Position = len(ids) + 1
			if err := tx.SaveQuestion(q); err != nil {
				return fmt.Errorf("save question: %w", err)
			}
			if at == q.Position {
				return nil
			}
			return setPositions(tx, formID, slices.Insert(ids, at-1, q.ID))
		})
		if err != nil {
			return domain.Question{}, err
		}
		return loadQuestion(a.store, formID, q.ID)
	})
}

// UpdateQuestion applies the supplied fields; options and type are
// validated together on the merged question.
func (a *App) UpdateQuestion(ctx context.Context, identity domain.Identity, formID, questionID string, in UpdateQuestionInput) result.Result[domain.Question] {
	return run(ctx, a, "updateQuestion", KindQuestion, func() (domain.Question, error) {
		if err := requireIdentity(identity); err != nil {
			return domain.Question{}, err
		}
		var v validate.Violations
		if in.Text != nil {
			checkQuestionText(&v, *in.Text)
		}
		var newType domain.QuestionType
		if in.Type != nil {
			newType, _ = checkQuestionType(&v, *in.Type)
		}
		if err := v.Err(msgInvalidQuestion); err != nil {
			return domain.Question{}, err
		}
		if _, err := ownedForm(a.store, identity, formID, msgForbiddenUpdateQuestion); err != nil {
			return domain.Question{}, err
		}

		err := a.store.Transaction(func(tx store.Store) error {
			q, err := loadQuestion(tx, formID, questionID)
			if err != nil {
				return err
			}
			if in.Text != nil {
				q.Text = strings.TrimSpace(*in.Text)
			}
			if in.Type != nil {
				q.Type = newType
			}
			if in.Required != nil {
				q.Required = *in.Required
			}
			if in.Options != nil {
				q.Options = trimOptions(*in.Options)
			}
			var mv validate.Violations
			checkOptions(&mv, q.Type, q.Options)

			ids, err := questionIDs(tx, formID)
			if err != nil {
				return err
			}
			if in.Position != nil {
				checkPosition(&mv, *in.Position, len(ids))
			}
			if err := mv.Err(msgInvalidQuestion); err != nil {
				return err
			}

			q.UpdatedAt = a.now()
			if err := tx.SaveQuestion(q); err != nil {
				return fmt.Errorf("save question: %w", err)
			}
			if in.Position == nil || *in.Position == q.Position {
				return nil
			}
			order := slices.DeleteFunc(ids, func(id string) bool { return id == q.ID })
			return setPositions(tx, formID, slices.Insert(order, *in.Position-1, q.ID))
		})
		if err != nil {
			return domain.Question{}, err
		}
		return loadQuestion(a.store, formID, questionID)
	})
}

// DeleteQuestion removes the question with its answers and closes the gap
// in the positions of the remaining questions.
func (a *App) DeleteQuestion(ctx context.Context, identity domain.Identity, formID, questionID string) result.Result[Success] {
	return run(ctx, a, "deleteQuestion", KindSuccess, func() (Success, error) {
		if err := requireIdentity(identity); err != nil {
			return Success{}, err
		}
		if _, err := ownedForm(a.store, identity, formID, msgForbiddenDeleteQuestion); err != nil {
			return Success{}, err
		}
		err := a.store.Transaction(func(tx store.Store) error {
			if _, err := loadQuestion(tx, formID, questionID); err != nil {
				return err
			}
			if err := tx.DeleteQuestion(questionID); err != nil {
				return fmt.Errorf("delete question: %w", err)
			}
			ids, err := questionIDs(tx, formID)
			if err != nil {
				return err
			}
			return setPositions(tx, formID, ids)
		})
		if err != nil {
			return Success{}, err
		}
		return Success{Success: true, Message: "Question deleted successfully"}, nil
	})
}

// Question loads a single question of an owned form.
func (a *App) Question(ctx context.Context, identity domain.Identity, formID, questionID string) result.Result[domain.Question] {
	return run(ctx, a, "question", KindQuestion, func() (domain.Question, error) {
		if err := requireIdentity(identity); err != nil {
			return domain.Question{}, err
		}
		if _, err := ownedForm(a.store, identity, formID, msgForbiddenViewQuestions); err != nil {
			return domain.Question{}, err
		}
		return loadQuestion(a.store, formID, questionID)
	})
}

// Questions lists a form's questions, by position unless in.Sort says
// otherwise.
func (a *App) Questions(ctx context.Context, identity domain.Identity, formID string, in ListQuestionsInput) result.Result[QuestionsList] {
	return run(ctx, a, "questions", KindQuestionsList, func() (QuestionsList, error) {
		if err := requireIdentity(identity); err != nil {
			return QuestionsList{}, err
		}
		var v validate.Violations
		sort := normalizeSort(&v, in.Sort, store.QuestionSortColumns)
		if err := v.Err(msgInvalidSort); err != nil {
			return QuestionsList{}, err
		}
		if _, err := ownedForm(a.store, identity, formID, msgForbiddenViewQuestions); err != nil {
			return QuestionsList{}, err
		}
		questions, err := a.store.ListQuestions(formID, sort)
		if err != nil {
			return QuestionsList{}, fmt.Errorf("list questions: %w", err)
		}
		return QuestionsList{Questions: questions, Count: len(questions)}, nil
	})
}

// ReorderQuestions assigns position i+1 to QuestionIDs[i]. The list must be
// a permutation of the form's questions; otherwise nothing changes.
func (a *App) ReorderQuestions(ctx context.Context, identity domain.Identity, formID string, in ReorderQuestionsInput) result.Result[FormView] {
	return run(ctx, a, "reorderQuestions", KindForm, func() (FormView, error) {
		if err := requireIdentity(identity); err != nil {
			return FormView{}, err
		}
		form, err := ownedForm(a.store, identity, formID, msgForbiddenReorder)
		if err != nil {
			return FormView{}, err
		}
		err = a.store.Transaction(func(tx store.Store) error {
			current, err := questionIDs(tx, formID)
			if err != nil {
				return err
			}
			if err := checkPermutation(current, in.QuestionIDs); err != nil {
				return err
			}
			return setPositions(tx, formID, in.QuestionIDs)
		})
		if err != nil {
			return FormView{}, err
		}
		return a.formView(form)
	})
}

// checkPermutation reports unknown ids before size or duplicate mismatches.
func checkPermutation(current, proposed []string) error {
	known := make(map[string]bool, len(current))
	for _, id := range current {
		known[id] = true
	}
	var v validate.Violations
	seen := make(map[string]bool, len(proposed))
	duplicate := false
	for _, id := range proposed {
		if !known[id] {
			v.Add("questionIds", fmt.Sprintf("Question %s not found in form", id), validate.InvalidQuestion)
			continue
		}
		if seen[id] {
			duplicate = true
		}
		seen[id] = true
	}
	if v.Empty() && (duplicate || len(proposed) != len(current)) {
		v.Add("questionIds", "All questions must be included exactly once", validate.IncompleteOrder)
	}
	return v.Err(msgInvalidOrder)
}

func questionIDs(s store.Store, formID string) ([]string, error) {
	questions, err := s.ListQuestions(formID, store.DefaultQuestionSort)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	ids := make([]string, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.ID)
	}
	return ids, nil
}

func setPositions(s store.Store, formID string, ids []string) error {
	if err := s.SetQuestionPositions(formID, ids); err != nil {
		if errors.Is(err, store.ErrUnknownQuestion) {
			return result.Validation(msgInvalidOrder, []result.Detail{{
				Field:      "questionIds",
				Message:    "Question not found in form",
				Constraint: validate.InvalidQuestion,
			}})
		}
		return fmt.Errorf("set question positions: %w", err)
	}
	return nil
}
