package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formsapi/internal/validate"
	"formsapi/pkg/domain"
	"formsapi/pkg/result"
	"formsapi/pkg/store"
)

const testSecret = "forms-test-secret-0123456789"

func newTestApp(t *testing.T, s store.Store) *App {
	t.Helper()
	if s == nil {
		s = store.NewMemoryStore()
	}
	sessions, err := store.NewJWTSessionStore(testSecret, store.DefaultSessionTTL, store.NewMemoryTokenRevoker(), store.JWTOptions{})
	require.NoError(t, err)
	a, err := New(Config{Store: s, Sessions: sessions})
	require.NoError(t, err)
	return a
}

// signUp registers an account and resolves its token back to an identity.
func signUp(t *testing.T, a *App, email string) (domain.Identity, string) {
	t.Helper()
	ctx := context.Background()
	res := a.Register(ctx, RegisterInput{Email: email, Password: "password123", Name: "Owner"})
	require.True(t, res.IsOK(), "register: %v", res.Err())
	token := res.Value().Token
	identity := a.Authenticate(ctx, token)
	require.False(t, identity.IsAnonymous())
	return identity, token
}

func mustForm(t *testing.T, a *App, owner domain.Identity, title string) FormView {
	t.Helper()
	res := a.CreateForm(context.Background(), owner, CreateFormInput{Title: title})
	require.True(t, res.IsOK(), "create form: %v", res.Err())
	return res.Value()
}

func mustQuestion(t *testing.T, a *App, owner domain.Identity, formID string, in CreateQuestionInput) domain.Question {
	t.Helper()
	res := a.CreateQuestion(context.Background(), owner, formID, in)
	require.True(t, res.IsOK(), "create question: %v", res.Err())
	return res.Value()
}

func positions(t *testing.T, a *App, owner domain.Identity, formID string) []string {
	t.Helper()
	res := a.Questions(context.Background(), owner, formID, ListQuestionsInput{})
	require.True(t, res.IsOK(), "questions: %v", res.Err())
	ids := make([]string, 0, res.Value().Count)
	for i, q := range res.Value().Questions {
		require.Equal(t, i+1, q.Position)
		ids = append(ids, q.ID)
	}
	return ids
}

func requireCode[T any](t *testing.T, res result.Result[T], code result.Code) *result.Error {
	t.Helper()
	require.False(t, res.IsOK(), "expected %s, got success", code)
	require.Equal(t, code, res.Err().Code, "error: %v", res.Err())
	return res.Err()
}

func TestEndToEndScenario(t *testing.T) {
	stores := map[string]func(t *testing.T) store.Store{
		"memory": func(t *testing.T) store.Store { return store.NewMemoryStore() },
		"sqlite": func(t *testing.T) store.Store {
			s, err := store.NewGormStore(store.SQLitePrefix + filepath.Join(t.TempDir(), "forms.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
	for name, factory := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a := newTestApp(t, factory(t))

			reg := a.Register(ctx, RegisterInput{Email: " Alice@Example.com ", Password: "password123", Name: "Alice"})
			require.True(t, reg.IsOK(), "register: %v", reg.Err())
			assert.Equal(t, KindSession, reg.Kind())
			assert.Equal(t, "alice@example.com", reg.Value().User.Email)

			login := a.Login(ctx, LoginInput{Email: "alice@example.com", Password: "password123"})
			require.True(t, login.IsOK(), "login: %v", login.Err())
			session := login.Value()
			assert.WithinDuration(t, time.Now().Add(24*time.Hour), session.ExpiresAt, time.Minute)

			owner := a.Authenticate(ctx, session.Token)
			require.Equal(t, session.UserID, owner.UserID)

			form := mustForm(t, a, owner, "Feedback")
			q := mustQuestion(t, a, owner, form.ID, CreateQuestionInput{
				Text:    "Pick one",
				Type:    "multiplechoice",
				Options: []string{"A", "B"},
			})
			assert.Equal(t, 1, q.Position)

			resp := a.CreateResponse(ctx, form.ID, CreateResponseInput{
				Answers: []AnswerInput{{QuestionID: q.ID, Answer: "A"}},
			})
			require.True(t, resp.IsOK(), "create response: %v", resp.Err())
			assert.Equal(t, 1, resp.Value().AnswerCount)

			view := a.Form(ctx, owner, form.ID)
			require.True(t, view.IsOK())
			assert.Equal(t, 1, view.Value().QuestionCount)
			assert.Equal(t, 1, view.Value().ResponseCount)

			list := a.Responses(ctx, owner, form.ID, ListResponsesInput{})
			require.True(t, list.IsOK())
			require.Equal(t, 1, list.Value().Count)
			assert.Equal(t, "A", list.Value().Responses[0].Answers[0].Value)
		})
	}
}

func TestLoginFailures(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, nil)
	signUp(t, a, "bob@example.com")

	err := requireCode(t, a.Login(ctx, LoginInput{}), result.CodeValidation)
	assert.Len(t, err.Details, 2)

	err = requireCode(t, a.Login(ctx, LoginInput{Email: "bob@example.com", Password: "wrong-password"}), result.CodeInvalidCredentials)
	assert.Equal(t, "AUTHENTICATION", err.Details[0].Constraint)

	requireCode(t, a.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "password123"}), result.CodeInvalidCredentials)
}

func TestRegisterValidation(t *testing.T) {
	a := newTestApp(t, nil)
	err := requireCode(t, a.Register(context.Background(), RegisterInput{Email: "not-an-email", Password: "short"}), result.CodeValidation)

	constraints := map[string]string{}
	for _, d := range err.Details {
		constraints[d.Field] = d.Constraint
	}
	assert.Equal(t, validate.EmailFormat, constraints["email"])
	assert.Equal(t, validate.MinLength, constraints["password"])
	assert.Equal(t, validate.Required, constraints["name"])
}

func TestDuplicateEmailRejected(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, nil)
	signUp(t, a, "dup@example.com")

	err := requireCode(t, a.Register(ctx, RegisterInput{Email: "DUP@example.com", Password: "password123", Name: "Again"}), result.CodeDuplicateEmail)
	assert.Equal(t, 409, err.HTTPStatus)
	assert.Equal(t, "UNIQUE", err.Details[0].Constraint)

	users := a.Users(ctx, a.Authenticate(ctx, a.Login(ctx, LoginInput{Email: "dup@example.com", Password: "password123"}).Value().Token))
	require.True(t, users.IsOK())
	assert.Equal(t, 1, users.Value().Count)
}

func TestAnonymousCallerRejected(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, nil)
	anon := a.Authenticate(ctx, "garbage.token.value")
	require.True(t, anon.IsAnonymous())

	requireCode(t, a.Me(ctx, anon), result.CodeUnauthorized)
	requireCode(t, a.CreateForm(ctx, anon, CreateFormInput{Title: "x"}), result.CodeUnauthorized)
	requireCode(t, a.Forms(ctx, anon, ListFormsInput{}), result.CodeUnauthorized)
	requireCode(t, a.Logout(ctx, anon, ""), result.CodeUnauthorized)
}

func TestOwnershipIsolation(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, nil)
	owner, _ := signUp(t, a, "owner@example.com")
	other, _ := signUp(t, a, "other@example.com")

	form := mustForm(t, a, owner, "Private")
	q := mustQuestion(t, a, owner, form.ID, CreateQuestionInput{Text: "Name?", Type: "shorttext"})
	resp := a.CreateResponse(ctx, form.ID, CreateResponseInput{Answers: []AnswerInput{{QuestionID: q.ID, Answer: "Ann"}}})
	require.True(t, resp.IsOK())
	title := "Hijacked"

	requireCode(t, a.Form(ctx, other, form.ID), result.CodeForbidden)
	requireCode(t, a.UpdateForm(ctx, other, form.ID, UpdateFormInput{Title: &title}), result.CodeForbidden)
	requireCode(t, a.DeleteForm(ctx, other, form.ID), result.CodeForbidden)
	requireCode(t, a.Questions(ctx, other, form.ID, ListQuestionsInput{}), result.CodeForbidden)
	requireCode(t, a.CreateQuestion(ctx, other, form.ID, CreateQuestionInput{Text: "x", Type: "shorttext"}), result.CodeForbidden)
	requireCode(t, a.UpdateQuestion(ctx, other, form.ID, q.ID, UpdateQuestionInput{Text: &title}), result.CodeForbidden)
	requireCode(t, a.DeleteQuestion(ctx, other, form.ID, q.ID), result.CodeForbidden)
	requireCode(t, a.ReorderQuestions(ctx, other, form.ID, ReorderQuestionsInput{QuestionIDs: []string{q.ID}}), result.CodeForbidden)
	requireCode(t, a.Responses(ctx, other, form.ID, ListResponsesInput{}), result.CodeForbidden)
	requireCode(t, a.DeleteResponse(ctx, other, form.ID, resp.Value().ID), result.CodeForbidden)
	requireCode(t, a.UpdateUser(ctx, other, owner.UserID, UpdateUserInput{Name: &title}), result.CodeForbidden)
	requireCode(t, a.DeleteUser(ctx, other, owner.UserID, ""), result.CodeForbidden)

	forms := a.Forms(ctx, other, ListFormsInput{})
	require.True(t, forms.IsOK())
	assert.Zero(t, forms.Value().Count)

	view := a.Form(ctx, owner, form.ID)
	require.True(t, view.IsOK())
	assert.Equal(t, "Private", view.Value().Title)
	assert.Equal(t, 1, view.Value().QuestionCount)
}

func TestQuestionPositions(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, nil)
	owner, _ := signUp(t, a, "pos@example.com")
	form := mustForm(t, a, owner, "Ordered")

	q1 := mustQuestion(t, a, owner, form.ID, CreateQuestionInput{Text: "one", Type: "shorttext"})
	q2 := mustQuestion(t, a, owner, form.ID, CreateQuestionInput{Text: "two", Type: "shorttext"})
	first := 1
	q0 := mustQuestion(t, a, owner, form.ID, CreateQuestionInput{Text: "zero", Type: "paragraph", Position: &first})
	assert.Equal(t, []string{q0.ID, q1.ID, q2.ID}, positions(t, a, owner, form.ID))

	last := 3
	moved := a.UpdateQuestion(ctx, owner, form.ID, q0.ID, UpdateQuestionInput{Position: &last})
	require.True(t, moved.IsOK(), "move: %v", moved.Err())
	assert.Equal(t, 3, moved.Value().Position)
	assert.Equal(t, []string{q1.ID, q2.ID, q0.ID}, positions(t, a, owner, form.ID))

	tooFar := 5
	err := requireCode(t, a.CreateQuestion(ctx, owner, form.ID, CreateQuestionInput{Text: "x", Type: "shorttext", Position: &tooFar}), result.CodeValidation)
	assert.Equal(t, validate.OutOfRange, err.Details[0].Constraint)
	assert.Len(t, positions(t, a, owner, form.ID), 3)

	del := a.DeleteQuestion(ctx, owner, form.ID, q2.ID)
	require.True(t, del.IsOK())
	assert.Equal(t, []string{q1.ID, q0.ID}, positions(t, a, owner, form.ID))
}

func TestQuestionValidation(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, nil)
	owner, _ := signUp(t, a, "qv@example.com")
	form := mustForm(t, a, owner, "Checks")

	err := requireCode(t, a.CreateQuestion(ctx, owner, form.ID, CreateQuestionInput{Text: "Pick", Type: "dropdown", Options: []string{"only"}}), result.CodeValidation)
	assert.Equal(t, validate.MinOptions, err.Details[0].Constraint)

	err = requireCode(t, a.CreateQuestion(ctx, owner, form.ID, CreateQuestionInput{Text: "Pick", Type: "slider"}), result.CodeValidation)
	assert.Equal(t, validate.InvalidValue, err.Details[0].Constraint)

	q := mustQuestion(t, a, owner, form.ID, CreateQuestionInput{Text: "Free", Type: "shorttext"})
	choice := "checkbox"
	err = requireCode(t, a.UpdateQuestion(ctx, owner, form.ID, q.ID, UpdateQuestionInput{Type: &choice}), result.CodeValidation)
	assert.Equal(t, validate.MinOptions, err.Details[0].Constraint)

	opts := []string{"x", "y"}
	updated := a.UpdateQuestion(ctx, owner, form.ID, q.ID, UpdateQuestionInput{Type: &choice, Options: &opts})
	require.True(t, updated.IsOK(), "update: %v", updated.Err())
	assert.Equal(t, domain.QuestionCheckbox, updated.Value().Type)

	requireCode(t, a.Question(ctx, owner, form.ID, "missing"), result.CodeQuestionNotFound)
}

func TestReorderQuestions(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, nil)
	owner, _ := signUp(t, a, "reorder@example.com")
	form := mustForm(t, a, owner, "Reorder")
	var ids []string
	for _, text := range []string{"a", "b", "c"} {
		ids = append(ids, mustQuestion(t, a, owner, form.ID, CreateQuestionInput{Text: text, Type: "shorttext"}).ID)
	}

	cases := []struct {
		name       string
		order      []string
		constraint string
	}{
		{"unknown id", []string{ids[0], ids[1], "ghost"}, validate.InvalidQuestion},
		{"missing id", []string{ids[0], ids[1]}, validate.IncompleteOrder},
		{"duplicate id", []string{ids[0], ids[0], ids[1]}, validate.IncompleteOrder},
		{"extra id", []string{ids[0], ids[1], ids[2], ids[2]}, validate.IncompleteOrder},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := requireCode(t, a.ReorderQuestions(ctx, owner, form.ID, ReorderQuestionsInput{QuestionIDs: tc.order}), result.CodeValidation)
			assert.Equal(t, tc.constraint, err.Details[0].Constraint)
			assert.Equal(t, ids, positions(t, a, owner, form.ID))
		})
	}

	reversed := []string{ids[2], ids[1], ids[0]}
	res := a.ReorderQuestions(ctx, owner, form.ID, ReorderQuestionsInput{QuestionIDs: reversed})
	require.True(t, res.IsOK(), "reorder: %v", res.Err())
	assert.Equal(t, KindForm, res.Kind())
	assert.Equal(t, reversed, positions(t, a, owner, form.ID))
	for i, q := range res.Value().Questions {
		assert.Equal(t, reversed[i], q.ID)
	}
}

func TestCreateResponseValidation(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, nil)
	owner, _ := signUp(t, a, "resp@example.com")
	form := mustForm(t, a, owner, "Survey")
	required := mustQuestion(t, a, owner, form.ID, CreateQuestionInput{Text: "Name", Type: "shorttext", Required: true})
	choice := mustQuestion(t, a, owner, form.ID, CreateQuestionInput{Text: "Color", Type: "multiplechoice", Options: []string{"red", "blue"}})
	otherForm := mustForm(t, a, owner, "Other")
	foreign := mustQuestion(t, a, owner, otherForm.ID, CreateQuestionInput{Text: "Elsewhere", Type: "shorttext"})

	err := requireCode(t, a.CreateResponse(ctx, form.ID, CreateResponseInput{}), result.CodeValidation)
	assert.Equal(t, "answers", err.Details[0].Field)

	err = requireCode(t, a.CreateResponse(ctx, form.ID, CreateResponseInput{
		Answers: []AnswerInput{{QuestionID: required.ID, Answer: "  "}},
	}), result.CodeValidation)
	assert.Equal(t, "answers[0].answer", err.Details[0].Field)

	err = requireCode(t, a.CreateResponse(ctx, form.ID, CreateResponseInput{
		Answers: []AnswerInput{{QuestionID: required.ID, Answer: "Ann"}, {QuestionID: foreign.ID, Answer: "x"}},
	}), result.CodeQuestionNotFound)
	assert.Equal(t, "FOREIGN_KEY", err.Details[0].Constraint)

	err = requireCode(t, a.CreateResponse(ctx, form.ID, CreateResponseInput{
		Answers: []AnswerInput{{QuestionID: choice.ID, Answer: "red"}},
	}), result.CodeValidation)
	assert.Equal(t, validate.RequiredQuestion, err.Details[0].Constraint)

	err = requireCode(t, a.CreateResponse(ctx, form.ID, CreateResponseInput{
		Answers: []AnswerInput{{QuestionID: required.ID, Answer: "Ann"}, {QuestionID: choice.ID, Answer: "green"}},
	}), result.CodeValidation)
	assert.Equal(t, validate.InvalidOption, err.Details[0].Constraint)

	requireCode(t, a.CreateResponse(ctx, "missing-form", CreateResponseInput{
		Answers: []AnswerInput{{QuestionID: required.ID, Answer: "Ann"}},
	}), result.CodeFormNotFound)

	list := a.Responses(ctx, owner, form.ID, ListResponsesInput{})
	require.True(t, list.IsOK())
	assert.Zero(t, list.Value().Count)
}

// failingStore fails the n-th CreateAnswer call, including calls made
// through a transaction.
type failingStore struct {
	store.Store
	failOn int
	calls  *int
}

func (f failingStore) CreateAnswer(answer domain.Answer) error {
	*f.calls++
	if *f.calls == f.failOn {
		return errors.New("disk full")
	}
	return f.Store.CreateAnswer(answer)
}

func (f failingStore) Transaction(fn func(tx store.Store) error) error {
	return f.Store.Transaction(func(tx store.Store) error {
		return fn(failingStore{Store: tx, failOn: f.failOn, calls: f.calls})
	})
}

func TestCreateResponseIsAtomic(t *testing.T) {
	ctx := context.Background()
	calls := 0
	a := newTestApp(t, failingStore{Store: store.NewMemoryStore(), failOn: 2, calls: &calls})
	owner, _ := signUp(t, a, "atomic@example.com")
	form := mustForm(t, a, owner, "Atomic")
	q1 := mustQuestion(t, a, owner, form.ID, CreateQuestionInput{Text: "one", Type: "shorttext"})
	q2 := mustQuestion(t, a, owner, form.ID, CreateQuestionInput{Text: "two", Type: "shorttext"})

	err := requireCode(t, a.CreateResponse(ctx, form.ID, CreateResponseInput{
		Answers: []AnswerInput{{QuestionID: q1.ID, Answer: "a"}, {QuestionID: q2.ID, Answer: "b"}},
	}), result.CodeInternal)
	assert.Equal(t, "An internal error occurred", err.Message)
	assert.Equal(t, 2, calls)

	list := a.Responses(ctx, owner, form.ID, ListResponsesInput{})
	require.True(t, list.IsOK())
	assert.Zero(t, list.Value().Count)
}

func TestUpdateResponseAnswers(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, nil)
	owner, _ := signUp(t, a, "update@example.com")
	form := mustForm(t, a, owner, "Editable")
	q1 := mustQuestion(t, a, owner, form.ID, CreateQuestionInput{Text: "one", Type: "shorttext"})
	q2 := mustQuestion(t, a, owner, form.ID, CreateQuestionInput{Text: "two", Type: "shorttext"})
	created := a.CreateResponse(ctx, form.ID, CreateResponseInput{
		RespondentName: "Ann",
		Answers:        []AnswerInput{{QuestionID: q1.ID, Answer: "first"}},
	})
	require.True(t, created.IsOK())
	respID := created.Value().ID

	name := "Annie"
	kept := a.UpdateResponse(ctx, owner, form.ID, respID, UpdateResponseInput{RespondentName: &name})
	require.True(t, kept.IsOK(), "update: %v", kept.Err())
	assert.Equal(t, "Annie", kept.Value().RespondentName)
	assert.Equal(t, 1, kept.Value().AnswerCount)

	replacement := []AnswerInput{{QuestionID: q2.ID, Answer: "second"}, {QuestionID: q1.ID, Answer: "third"}}
	replaced := a.UpdateResponse(ctx, owner, form.ID, respID, UpdateResponseInput{Answers: &replacement})
	require.True(t, replaced.IsOK(), "replace: %v", replaced.Err())
	require.Equal(t, 2, replaced.Value().AnswerCount)
	assert.Equal(t, "second", replaced.Value().Answers[0].Value)
	assert.Equal(t, "third", replaced.Value().Answers[1].Value)

	bad := []AnswerInput{{QuestionID: "ghost", Answer: "x"}}
	requireCode(t, a.UpdateResponse(ctx, owner, form.ID, respID, UpdateResponseInput{RespondentName: &name, Answers: &bad}), result.CodeQuestionNotFound)
	still := a.Response(ctx, owner, form.ID, respID)
	require.True(t, still.IsOK())
	assert.Equal(t, 2, still.Value().AnswerCount)

	empty := []AnswerInput{}
	cleared := a.UpdateResponse(ctx, owner, form.ID, respID, UpdateResponseInput{Answers: &empty})
	require.True(t, cleared.IsOK())
	assert.Zero(t, cleared.Value().AnswerCount)
}

func TestDeleteFormCascades(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	a := newTestApp(t, s)
	owner, _ := signUp(t, a, "cascade@example.com")
	form := mustForm(t, a, owner, "Doomed")
	q := mustQuestion(t, a, owner, form.ID, CreateQuestionInput{Text: "q", Type: "shorttext"})
	resp := a.CreateResponse(ctx, form.ID, CreateResponseInput{Answers: []AnswerInput{{QuestionID: q.ID, Answer: "a"}}})
	require.True(t, resp.IsOK())

	del := a.DeleteForm(ctx, owner, form.ID)
	require.True(t, del.IsOK())
	assert.Equal(t, "Form deleted successfully", del.Value().Message)

	requireCode(t, a.Form(ctx, owner, form.ID), result.CodeFormNotFound)
	_, ok, err := s.GetQuestion(q.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = s.GetResponse(resp.Value().ID)
	require.NoError(t, err)
	assert.False(t, ok)
	n, err := s.CountAnswers(resp.Value().ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDeleteUserRevokesTokenAndForms(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	a := newTestApp(t, s)
	owner, token := signUp(t, a, "leaving@example.com")
	form := mustForm(t, a, owner, "Mine")

	res := a.DeleteUser(ctx, owner, owner.UserID, token)
	require.True(t, res.IsOK(), "delete user: %v", res.Err())
	assert.True(t, a.Authenticate(ctx, token).IsAnonymous())
	_, ok, err := s.GetForm(form.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLogoutRevokesToken(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, nil)
	identity, token := signUp(t, a, "logout@example.com")

	res := a.Logout(ctx, identity, token)
	require.True(t, res.IsOK())
	assert.Equal(t, "Logged out successfully", res.Value().Message)
	assert.True(t, a.Authenticate(ctx, token).IsAnonymous())
}

func TestFormsFilterAndSort(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, nil)
	owner, _ := signUp(t, a, "sort@example.com")
	for _, title := range []string{"Beta survey", "alpha poll", "Gamma survey"} {
		mustForm(t, a, owner, title)
	}

	res := a.Forms(ctx, owner, ListFormsInput{Sort: domain.Sort{Field: "title", Order: "asc"}})
	require.True(t, res.IsOK(), "forms: %v", res.Err())
	var titles []string
	for _, f := range res.Value().Forms {
		titles = append(titles, f.Title)
	}
	assert.Equal(t, []string{"Beta survey", "Gamma survey", "alpha poll"}, titles)

	filtered := a.Forms(ctx, owner, ListFormsInput{Filter: domain.FormFilter{Title: "SURVEY"}})
	require.True(t, filtered.IsOK())
	assert.Equal(t, 2, filtered.Value().Count)

	err := requireCode(t, a.Forms(ctx, owner, ListFormsInput{Sort: domain.Sort{Field: "RESPONDENT_NAME"}}), result.CodeValidation)
	assert.Equal(t, "sort.field", err.Details[0].Field)
	requireCode(t, a.Questions(ctx, owner, "any", ListQuestionsInput{Sort: domain.Sort{Order: "SIDEWAYS"}}), result.CodeValidation)
}

type panicStore struct {
	store.Store
}

func (panicStore) GetForm(string) (domain.Form, bool, error) {
	panic("corrupted index")
}

func TestPanicBecomesInternalError(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, panicStore{Store: store.NewMemoryStore()})
	owner, _ := signUp(t, a, "panic@example.com")

	err := requireCode(t, a.Form(ctx, owner, "any"), result.CodeInternal)
	assert.Equal(t, 500, err.HTTPStatus)
}

// viewPanicStore panics inside view enrichment once armed, which runs on
// errgroup workers rather than the operation goroutine.
type viewPanicStore struct {
	store.Store
	armed atomic.Bool
}

func (s *viewPanicStore) CountResponses(formID string) (int, error) {
	if s.armed.Load() {
		panic("count index corrupted")
	}
	return s.Store.CountResponses(formID)
}

func (s *viewPanicStore) ListAnswersByResponse(responseID string) ([]domain.Answer, error) {
	if s.armed.Load() {
		panic("answer index corrupted")
	}
	return s.Store.ListAnswersByResponse(responseID)
}

func TestViewWorkerPanicBecomesInternalError(t *testing.T) {
	ctx := context.Background()
	s := &viewPanicStore{Store: store.NewMemoryStore()}
	a := newTestApp(t, s)
	owner, _ := signUp(t, a, "worker-panic@example.com")
	form := a.CreateForm(ctx, owner, CreateFormInput{Title: "Fragile"})
	require.True(t, form.IsOK(), "create form: %v", form.Err())
	formID := form.Value().ID
	q := a.CreateQuestion(ctx, owner, formID, CreateQuestionInput{Text: "Why?", Type: "shorttext"})
	require.True(t, q.IsOK(), "create question: %v", q.Err())
	resp := a.CreateResponse(ctx, formID, CreateResponseInput{Answers: []AnswerInput{{QuestionID: q.Value().ID, Answer: "because"}}})
	require.True(t, resp.IsOK(), "create response: %v", resp.Err())

	s.armed.Store(true)
	requireCode(t, a.Form(ctx, owner, formID), result.CodeInternal)
	requireCode(t, a.Forms(ctx, owner, ListFormsInput{}), result.CodeInternal)
	requireCode(t, a.Responses(ctx, owner, formID, ListResponsesInput{}), result.CodeInternal)
}

func TestHealth(t *testing.T) {
	a := newTestApp(t, nil)
	res := a.Health(context.Background())
	require.True(t, res.IsOK())
	assert.Equal(t, KindHealth, res.Kind())
	assert.Equal(t, "OK", res.Value().Status)
	assert.Equal(t, defaultVersion, res.Value().Version)
}
