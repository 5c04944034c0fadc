package app

import (
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"formsapi/pkg/domain"
	"formsapi/pkg/store"
)

const viewConcurrency = 8

// FormView is a form with its ordered questions and aggregate counts.
type FormView struct {
	domain.Form
	QuestionCount int               `json:"questionCount"`
	ResponseCount int               `json:"responseCount"`
	Questions     []domain.Question `json:"questions"`
}

// ResponseView is a response with its answers in insertion order.
type ResponseView struct {
	domain.Response
	AnswerCount int             `json:"answerCount"`
	Answers     []domain.Answer `json:"answers"`
}

type Session struct {
	Token     string      `json:"token"`
	UserID    string      `json:"userId"`
	User      domain.User `json:"user"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

type UsersList struct {
	Users []domain.User `json:"users"`
	Count int           `json:"count"`
}

type FormsList struct {
	Forms []FormView `json:"forms"`
	Count int        `json:"count"`
}

type QuestionsList struct {
	Questions []domain.Question `json:"questions"`
	Count     int               `json:"count"`
}

type ResponsesList struct {
	Responses []ResponseView `json:"responses"`
	Count     int            `json:"count"`
}

type Health struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

type Success struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// goRecover schedules fn on g and turns a panic into an error, since run's
// recover only sees the calling goroutine.
func goRecover(g *errgroup.Group, fn func() error) {
	g.Go(func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("view worker panicked: %v", p)
			}
		}()
		return fn()
	})
}

func (a *App) formView(form domain.Form) (FormView, error) {
	view := FormView{Form: form}
	var g errgroup.Group
	goRecover(&g, func() error {
		questions, err := a.store.ListQuestions(form.ID, store.DefaultQuestionSort)
		if err != nil {
			return fmt.Errorf("list questions: %w", err)
		}
		view.Questions = questions
		view.QuestionCount = len(questions)
		return nil
	})
	goRecover(&g, func() error {
		n, err := a.store.CountResponses(form.ID)
		if err != nil {
			return fmt.Errorf("count responses: %w", err)
		}
		view.ResponseCount = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return FormView{}, err
	}
	return view, nil
}

func (a *App) formViews(forms []domain.Form) ([]FormView, error) {
	views := make([]FormView, len(forms))
	var g errgroup.Group
	g.SetLimit(viewConcurrency)
	for i, form := range forms {
		goRecover(&g, func() error {
			view, err := a.formView(form)
			if err != nil {
				return err
			}
			views[i] = view
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return views, nil
}

func (a *App) responseView(resp domain.Response) (ResponseView, error) {
	answers, err := a.store.ListAnswersByResponse(resp.ID)
	if err != nil {
		return ResponseView{}, fmt.Errorf("list answers: %w", err)
	}
	return ResponseView{Response: resp, AnswerCount: len(answers), Answers: answers}, nil
}

func (a *App) responseViews(responses []domain.Response) ([]ResponseView, error) {
	views := make([]ResponseView, len(responses))
	var g errgroup.Group
	g.SetLimit(viewConcurrency)
	for i, resp := range responses {
		goRecover(&g, func() error {
			view, err := a.responseView(resp)
			if err != nil {
				return err
			}
			views[i] = view
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return views, nil
}
