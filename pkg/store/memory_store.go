package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"formsapi/pkg/domain"
)

// MemoryStore keeps all records in-process. It is used by tests and by the
// service when no database is configured.
type MemoryStore struct {
	memoryOps
	mu    sync.RWMutex
	state memoryState
}

type memoryState struct {
	users     map[string]domain.User
	email     map[string]string // email -> user ID
	forms     map[string]domain.Form
	questions map[string]domain.Question
	responses map[string]domain.Response
	answers   map[string][]domain.Answer // response ID -> answers in insertion order
	seq       map[string]int64           // record ID -> insertion sequence
	next      int64
}

func newMemoryState() memoryState {
	return memoryState{
		users:     make(map[string]domain.User),
		email:     make(map[string]string),
		forms:     make(map[string]domain.Form),
		questions: make(map[string]domain.Question),
		responses: make(map[string]domain.Response),
		answers:   make(map[string][]domain.Answer),
		seq:       make(map[string]int64),
	}
}

func (st memoryState) clone() memoryState {
	out := newMemoryState()
	for k, v := range st.users {
		out.users[k] = v
	}
	for k, v := range st.email {
		out.email[k] = v
	}
	for k, v := range st.forms {
		out.forms[k] = v
	}
	for k, v := range st.questions {
		out.questions[k] = cloneQuestion(v)
	}
	for k, v := range st.responses {
		out.responses[k] = v
	}
	for k, v := range st.answers {
		out.answers[k] = append([]domain.Answer(nil), v...)
	}
	for k, v := range st.seq {
		out.seq[k] = v
	}
	out.next = st.next
	return out
}

func cloneQuestion(q domain.Question) domain.Question {
	q.Options = append([]string(nil), q.Options...)
	return q
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	m := &MemoryStore{state: newMemoryState()}
	m.memoryOps = memoryOps{s: m}
	return m
}

// Transaction stages writes on a copy of the current state and publishes
// the copy only when fn succeeds. Writers are serialized for the duration.
func (m *MemoryStore) Transaction(fn func(tx Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	child := newMemoryTx(m.state.clone())
	if err := fn(child); err != nil {
		return err
	}
	m.state = child.state
	return nil
}

// memoryTx is the Store handed to Transaction callbacks. It is confined to
// one goroutine and so needs no locking of its own.
type memoryTx struct {
	memoryOps
	state memoryState
}

func newMemoryTx(state memoryState) *memoryTx {
	t := &memoryTx{state: state}
	t.memoryOps = memoryOps{s: t}
	return t
}

func (t *memoryTx) Transaction(fn func(tx Store) error) error {
	nested := newMemoryTx(t.state.clone())
	if err := fn(nested); err != nil {
		return err
	}
	t.state = nested.state
	return nil
}

func (m *MemoryStore) read(fn func(st *memoryState)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fn(&m.state)
}

func (m *MemoryStore) write(fn func(st *memoryState) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(&m.state)
}

func (st *memoryState) touch(id string) {
	if _, ok := st.seq[id]; ok {
		return
	}
	st.next++
	st.seq[id] = st.next
}

// users

func (st *memoryState) createUser(u domain.User) error {
	if _, ok := st.email[u.Email]; ok {
		return ErrDuplicateEmail
	}
	st.users[u.ID] = u
	st.email[u.Email] = u.ID
	st.touch(u.ID)
	return nil
}

func (st *memoryState) saveUser(u domain.User) error {
	if owner, ok := st.email[u.Email]; ok && owner != u.ID {
		return ErrDuplicateEmail
	}
	if prev, ok := st.users[u.ID]; ok {
		delete(st.email, prev.Email)
		u.CreatedAt = prev.CreatedAt
	}
	st.users[u.ID] = u
	st.email[u.Email] = u.ID
	st.touch(u.ID)
	return nil
}

func (st *memoryState) listUsers() []domain.User {
	res := make([]domain.User, 0, len(st.users))
	for _, u := range st.users {
		res = append(res, u)
	}
	sort.SliceStable(res, func(i, j int) bool {
		if !res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].CreatedAt.After(res[j].CreatedAt)
		}
		return st.seq[res[i].ID] > st.seq[res[j].ID]
	})
	return res
}

func (st *memoryState) deleteUser(id string) {
	u, ok := st.users[id]
	if !ok {
		return
	}
	for formID, f := range st.forms {
		if f.OwnerID == id {
			st.deleteForm(formID)
		}
	}
	delete(st.email, u.Email)
	delete(st.users, id)
	delete(st.seq, id)
}

// forms

func (st *memoryState) saveForm(f domain.Form) {
	if prev, ok := st.forms[f.ID]; ok {
		f.OwnerID = prev.OwnerID
		f.CreatedAt = prev.CreatedAt
	}
	st.forms[f.ID] = f
	st.touch(f.ID)
}

func (st *memoryState) listForms(q FormQuery) []domain.Form {
	title := strings.ToLower(strings.TrimSpace(q.Filter.Title))
	res := make([]domain.Form, 0)
	for _, f := range st.forms {
		if q.OwnerID != "" && f.OwnerID != q.OwnerID {
			continue
		}
		if title != "" && !strings.Contains(strings.ToLower(f.Title), title) {
			continue
		}
		if !q.Filter.CreatedAfter.IsZero() && f.CreatedAt.Before(q.Filter.CreatedAfter) {
			continue
		}
		if !q.Filter.CreatedBefore.IsZero() && f.CreatedAt.After(q.Filter.CreatedBefore) {
			continue
		}
		res = append(res, f)
	}
	s := resolveSort(q.Sort, FormSortColumns, DefaultFormSort)
	sort.SliceStable(res, func(i, j int) bool {
		a, b := res[i], res[j]
		var cmp int
		switch s.Field {
		case domain.SortTitle:
			cmp = strings.Compare(a.Title, b.Title)
		case domain.SortUpdatedAt:
			cmp = a.UpdatedAt.Compare(b.UpdatedAt)
		default:
			cmp = a.CreatedAt.Compare(b.CreatedAt)
		}
		if cmp == 0 {
			cmp = compareSeq(st.seq[a.ID], st.seq[b.ID])
		}
		if s.Order == domain.SortDesc {
			return cmp > 0
		}
		return cmp < 0
	})
	return res
}

func (st *memoryState) deleteForm(id string) {
	for qid, q := range st.questions {
		if q.FormID == id {
			delete(st.questions, qid)
			delete(st.seq, qid)
		}
	}
	for rid, r := range st.responses {
		if r.FormID == id {
			st.deleteResponse(rid)
		}
	}
	delete(st.forms, id)
	delete(st.seq, id)
}

// questions

func (st *memoryState) saveQuestion(q domain.Question) {
	if prev, ok := st.questions[q.ID]; ok {
		q.FormID = prev.FormID
		q.CreatedAt = prev.CreatedAt
	}
	st.questions[q.ID] = cloneQuestion(q)
	st.touch(q.ID)
}

func (st *memoryState) listQuestions(formID string, sortBy domain.Sort) []domain.Question {
	res := make([]domain.Question, 0)
	for _, q := range st.questions {
		if q.FormID == formID {
			res = append(res, cloneQuestion(q))
		}
	}
	s := resolveSort(sortBy, QuestionSortColumns, DefaultQuestionSort)
	sort.SliceStable(res, func(i, j int) bool {
		a, b := res[i], res[j]
		var cmp int
		switch s.Field {
		case domain.SortCreatedAt:
			cmp = a.CreatedAt.Compare(b.CreatedAt)
		case domain.SortUpdatedAt:
			cmp = a.UpdatedAt.Compare(b.UpdatedAt)
		default:
			cmp = compareInt(a.Position, b.Position)
		}
		if cmp == 0 {
			cmp = compareInt(a.Position, b.Position)
		}
		if s.Order == domain.SortDesc {
			return cmp > 0
		}
		return cmp < 0
	})
	return res
}

func (st *memoryState) countQuestions(formID string) int {
	n := 0
	for _, q := range st.questions {
		if q.FormID == formID {
			n++
		}
	}
	return n
}

func (st *memoryState) setQuestionPositions(formID string, orderedIDs []string) error {
	for _, id := range orderedIDs {
		q, ok := st.questions[id]
		if !ok || q.FormID != formID {
			return ErrUnknownQuestion
		}
	}
	now := time.Now().UTC()
	for i, id := range orderedIDs {
		q := st.questions[id]
		q.Position = i + 1
		q.UpdatedAt = now
		st.questions[id] = q
	}
	return nil
}

func (st *memoryState) deleteQuestion(id string) {
	for rid, answers := range st.answers {
		kept := answers[:0]
		for _, a := range answers {
			if a.QuestionID != id {
				kept = append(kept, a)
			}
		}
		st.answers[rid] = kept
	}
	delete(st.questions, id)
	delete(st.seq, id)
}

// responses

func (st *memoryState) saveResponse(r domain.Response) {
	if prev, ok := st.responses[r.ID]; ok {
		r.FormID = prev.FormID
		r.CreatedAt = prev.CreatedAt
	}
	st.responses[r.ID] = r
	st.touch(r.ID)
}

func (st *memoryState) listResponses(formID string, sortBy domain.Sort) []domain.Response {
	res := make([]domain.Response, 0)
	for _, r := range st.responses {
		if r.FormID == formID {
			res = append(res, r)
		}
	}
	s := resolveSort(sortBy, ResponseSortColumns, DefaultResponseSort)
	sort.SliceStable(res, func(i, j int) bool {
		a, b := res[i], res[j]
		var cmp int
		switch s.Field {
		case domain.SortRespondentName:
			cmp = strings.Compare(a.RespondentName, b.RespondentName)
		case domain.SortUpdatedAt:
			cmp = a.UpdatedAt.Compare(b.UpdatedAt)
		default:
			cmp = a.CreatedAt.Compare(b.CreatedAt)
		}
		if cmp == 0 {
			cmp = compareSeq(st.seq[a.ID], st.seq[b.ID])
		}
		if s.Order == domain.SortDesc {
			return cmp > 0
		}
		return cmp < 0
	})
	return res
}

func (st *memoryState) countResponses(formID string) int {
	n := 0
	for _, r := range st.responses {
		if r.FormID == formID {
			n++
		}
	}
	return n
}

func (st *memoryState) deleteResponse(id string) {
	delete(st.answers, id)
	delete(st.responses, id)
	delete(st.seq, id)
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareSeq(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// stateStore is implemented by MemoryStore (locked) and memoryTx (unlocked).
type stateStore interface {
	read(fn func(st *memoryState))
	write(fn func(st *memoryState) error) error
}

func (t *memoryTx) read(fn func(st *memoryState)) { fn(&t.state) }

func (t *memoryTx) write(fn func(st *memoryState) error) error { return fn(&t.state) }

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*memoryTx)(nil)
)
