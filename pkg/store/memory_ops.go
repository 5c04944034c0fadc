package store

import "formsapi/pkg/domain"

// memoryOps implements the record-level Store methods over a stateStore.
type memoryOps struct {
	s stateStore
}

func (o memoryOps) CreateUser(u domain.User) error {
	return o.s.write(func(st *memoryState) error { return st.createUser(u) })
}

func (o memoryOps) SaveUser(u domain.User) error {
	return o.s.write(func(st *memoryState) error { return st.saveUser(u) })
}

func (o memoryOps) GetUserByEmail(email string) (domain.User, bool, error) {
	var (
		u  domain.User
		ok bool
	)
	o.s.read(func(st *memoryState) {
		var id string
		if id, ok = st.email[email]; ok {
			u, ok = st.users[id]
		}
	})
	return u, ok, nil
}

func (o memoryOps) GetUserByID(id string) (domain.User, bool, error) {
	var (
		u  domain.User
		ok bool
	)
	o.s.read(func(st *memoryState) { u, ok = st.users[id] })
	return u, ok, nil
}

func (o memoryOps) ListUsers() ([]domain.User, error) {
	var res []domain.User
	o.s.read(func(st *memoryState) { res = st.listUsers() })
	return res, nil
}

func (o memoryOps) DeleteUser(id string) error {
	return o.s.write(func(st *memoryState) error {
		st.deleteUser(id)
		return nil
	})
}

func (o memoryOps) SaveForm(f domain.Form) error {
	return o.s.write(func(st *memoryState) error {
		st.saveForm(f)
		return nil
	})
}

func (o memoryOps) GetForm(id string) (domain.Form, bool, error) {
	var (
		f  domain.Form
		ok bool
	)
	o.s.read(func(st *memoryState) { f, ok = st.forms[id] })
	return f, ok, nil
}

func (o memoryOps) ListForms(q FormQuery) ([]domain.Form, error) {
	var res []domain.Form
	o.s.read(func(st *memoryState) { res = st.listForms(q) })
	return res, nil
}

func (o memoryOps) DeleteForm(id string) error {
	return o.s.write(func(st *memoryState) error {
		st.deleteForm(id)
		return nil
	})
}

func (o memoryOps) SaveQuestion(q domain.Question) error {
	return o.s.write(func(st *memoryState) error {
		st.saveQuestion(q)
		return nil
	})
}

func (o memoryOps) GetQuestion(id string) (domain.Question, bool, error) {
	var (
		q  domain.Question
		ok bool
	)
	o.s.read(func(st *memoryState) {
		q, ok = st.questions[id]
		q = cloneQuestion(q)
	})
	return q, ok, nil
}

func (o memoryOps) ListQuestions(formID string, sort domain.Sort) ([]domain.Question, error) {
	var res []domain.Question
	o.s.read(func(st *memoryState) { res = st.listQuestions(formID, sort) })
	return res, nil
}

func (o memoryOps) CountQuestions(formID string) (int, error) {
	var n int
	o.s.read(func(st *memoryState) { n = st.countQuestions(formID) })
	return n, nil
}

func (o memoryOps) SetQuestionPositions(formID string, orderedIDs []string) error {
	return o.s.write(func(st *memoryState) error { return st.setQuestionPositions(formID, orderedIDs) })
}

func (o memoryOps) DeleteQuestion(id string) error {
	return o.s.write(func(st *memoryState) error {
		st.deleteQuestion(id)
		return nil
	})
}

func (o memoryOps) SaveResponse(r domain.Response) error {
	return o.s.write(func(st *memoryState) error {
		st.saveResponse(r)
		return nil
	})
}

func (o memoryOps) GetResponse(id string) (domain.Response, bool, error) {
	var (
		r  domain.Response
		ok bool
	)
	o.s.read(func(st *memoryState) { r, ok = st.responses[id] })
	return r, ok, nil
}

func (o memoryOps) ListResponses(formID string, sort domain.Sort) ([]domain.Response, error) {
	var res []domain.Response
	o.s.read(func(st *memoryState) { res = st.listResponses(formID, sort) })
	return res, nil
}

func (o memoryOps) CountResponses(formID string) (int, error) {
	var n int
	o.s.read(func(st *memoryState) { n = st.countResponses(formID) })
	return n, nil
}

func (o memoryOps) DeleteResponse(id string) error {
	return o.s.write(func(st *memoryState) error {
		st.deleteResponse(id)
		return nil
	})
}

func (o memoryOps) CreateAnswer(a domain.Answer) error {
	return o.s.write(func(st *memoryState) error {
		st.answers[a.ResponseID] = append(st.answers[a.ResponseID], a)
		return nil
	})
}

func (o memoryOps) ListAnswersByResponse(responseID string) ([]domain.Answer, error) {
	var res []domain.Answer
	o.s.read(func(st *memoryState) {
		res = append([]domain.Answer{}, st.answers[responseID]...)
	})
	return res, nil
}

func (o memoryOps) CountAnswers(responseID string) (int, error) {
	var n int
	o.s.read(func(st *memoryState) { n = len(st.answers[responseID]) })
	return n, nil
}

func (o memoryOps) DeleteAnswersByResponse(responseID string) error {
	return o.s.write(func(st *memoryState) error {
		delete(st.answers, responseID)
		return nil
	})
}
