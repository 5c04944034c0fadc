package app

import (
	"context"
	"fmt"
	"strings"

	"formsapi/internal/util"
	"formsapi/internal/validate"
	"formsapi/pkg/domain"
	"formsapi/pkg/result"
	"formsapi/pkg/store"
)

type CreateFormInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// UpdateFormInput carries a partial update; nil fields keep their value.
type UpdateFormInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

type ListFormsInput struct {
	Filter domain.FormFilter `json:"filter"`
	Sort   domain.Sort       `json:"sort"`
}

// CreateForm stores a new empty form owned by the caller.
func (a *App) CreateForm(ctx context.Context, identity domain.Identity, in CreateFormInput) result.Result[FormView] {
	return run(ctx, a, "createForm", KindForm, func() (FormView, error) {
		if err := requireIdentity(identity); err != nil {
			return FormView{}, err
		}
		var v validate.Violations
		checkTitle(&v, in.Title)
		checkDescription(&v, in.Description)
		if err := v.Err(msgInvalidForm); err != nil {
			return FormView{}, err
		}

		now := a.now()
		form := domain.Form{
			ID:          util.NewID(),
			OwnerID:     identity.UserID,
			Title:       strings.TrimSpace(in.Title),
			Description: strings.TrimSpace(in.Description),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := a.store.SaveForm(form); err != nil {
			return FormView{}, fmt.Errorf("save form: %w", err)
		}
		return FormView{Form: form, Questions: []domain.Question{}}, nil
	})
}

// UpdateForm applies the non-nil fields of in to a form the caller owns
// and bumps its updatedAt.
func (a *App) UpdateForm(ctx context.Context, identity domain.Identity, formID string, in UpdateFormInput) result.Result[FormView] {
	return run(ctx, a, "updateForm", KindForm, func() (FormView, error) {
		if err := requireIdentity(identity); err != nil {
			return FormView{}, err
		}
		var v validate.Violations
		if in.Title != nil {
			checkTitle(&v, *in.Title)
		}
		if in.Description != nil {
			checkDescription(&v, *in.Description)
		}
		if err := v.Err(msgInvalidForm); err != nil {
			return FormView{}, err
		}

		form, err := ownedForm(a.store, identity, formID, msgForbiddenUpdateForm)
		if err != nil {
			return FormView{}, err
		}
		if in.Title != nil {
			form.Title = strings.TrimSpace(*in.Title)
		}
		if in.Description != nil {
			form.Description = strings.TrimSpace(*in.Description)
		}
		form.UpdatedAt = a.now()
		if err := a.store.SaveForm(form); err != nil {
			return FormView{}, fmt.Errorf("save form: %w", err)
		}
		return a.formView(form)
	})
}

// DeleteForm removes the form with its questions, responses and answers.
func (a *App) DeleteForm(ctx context.Context, identity domain.Identity, formID string) result.Result[Success] {
	return run(ctx, a, "deleteForm", KindSuccess, func() (Success, error) {
		if err := requireIdentity(identity); err != nil {
			return Success{}, err
		}
		if _, err := ownedForm(a.store, identity, formID, msgForbiddenDeleteForm); err != nil {
			return Success{}, err
		}
		if err := a.store.DeleteForm(formID); err != nil {
			return Success{}, fmt.Errorf("delete form: %w", err)
		}
		return Success{Success: true, Message: "Form deleted successfully"}, nil
	})
}

// Form returns one of the caller's forms with its questions and counts.
func (a *App) Form(ctx context.Context, identity domain.Identity, formID string) result.Result[FormView] {
	return run(ctx, a, "form", KindForm, func() (FormView, error) {
		if err := requireIdentity(identity); err != nil {
			return FormView{}, err
		}
		form, err := ownedForm(a.store, identity, formID, msgForbiddenViewForm)
		if err != nil {
			return FormView{}, err
		}
		return a.formView(form)
	})
}

// Forms lists the caller's forms after filtering and sorting.
func (a *App) Forms(ctx context.Context, identity domain.Identity, in ListFormsInput) result.Result[FormsList] {
	return run(ctx, a, "forms", KindFormsList, func() (FormsList, error) {
		if err := requireIdentity(identity); err != nil {
			return FormsList{}, err
		}
		var v validate.Violations
		sort := normalizeSort(&v, in.Sort, store.FormSortColumns)
		if f := in.Filter; !f.CreatedAfter.IsZero() && !f.CreatedBefore.IsZero() && f.CreatedAfter.After(f.CreatedBefore) {
			v.Add("filter.createdAfter", "createdAfter must not be later than createdBefore", validate.OutOfRange)
		}
		if err := v.Err(msgInvalidSort); err != nil {
			return FormsList{}, err
		}

		forms, err := a.store.ListForms(store.FormQuery{
			OwnerID: identity.UserID,
			Filter:  in.Filter,
			Sort:    sort,
		})
		if err != nil {
			return FormsList{}, fmt.Errorf("list forms: %w", err)
		}
		views, err := a.formViews(forms)
		if err != nil {
			return FormsList{}, err
		}
		return FormsList{Forms: views, Count: len(views)}, nil
	})
}
