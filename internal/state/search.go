package state

import (
	"strings"
	"sync"

	"github.com/kitbuilder587/anime-bot/internal/domain"
)

// SearchState - состояние поиска одного чата.
// Меняется только явными действиями пользователя.
type SearchState struct {
	Query          string
	CurrentPage    int
	ResultsPerPage int
	// HasSearched - был ли submit; до него запросы не делаются
	HasSearched bool
}

func NewSearchState(resultsPerPage int) SearchState {
	if resultsPerPage <= 0 {
		resultsPerPage = domain.DefaultResultsPerPage
	}
	return SearchState{
		CurrentPage:    1,
		ResultsPerPage: resultsPerPage,
	}
}

// WithQuery - новый запрос всегда с первой страницы
func (s SearchState) WithQuery(q string) SearchState {
	s.Query = strings.TrimSpace(q)
	s.CurrentPage = 1
	return s
}

// WithPage не сверяет страницу с выдачей, это решает ответ API.
// Страницы меньше 1 не бывает.
func (s SearchState) WithPage(p int) SearchState {
	if p < 1 {
		p = 1
	}
	s.CurrentPage = p
	return s
}

func (s SearchState) WithResultsPerPage(n int) SearchState {
	s.ResultsPerPage = n
	s.CurrentPage = 1
	return s
}

func (s SearchState) WithHasSearched(v bool) SearchState {
	s.HasSearched = v
	return s
}

// Cleared сбрасывает запрос, страницу и флаг поиска; размер страницы остается
func (s SearchState) Cleared() SearchState {
	s.Query = ""
	s.CurrentPage = 1
	s.HasSearched = false
	return s
}

func (s SearchState) Params() domain.SearchParams {
	return domain.SearchParams{
		Query: s.Query,
		Page:  s.CurrentPage,
		Limit: s.ResultsPerPage,
	}
}

// Skip - запрос еще не разрешен: не было submit или запрос пустой
func (s SearchState) Skip() bool {
	return !s.HasSearched || s.Query == ""
}

// SearchStore - потокобезопасная обертка над SearchState
type SearchStore struct {
	mu    sync.Mutex
	state SearchState
}

func NewSearchStore(resultsPerPage int) *SearchStore {
	return &SearchStore{state: NewSearchState(resultsPerPage)}
}

func (s *SearchStore) update(fn func(SearchState) SearchState) SearchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = fn(s.state)
	return s.state
}

func (s *SearchStore) SetQuery(q string) SearchState {
	return s.update(func(st SearchState) SearchState { return st.WithQuery(q) })
}

func (s *SearchStore) SetPage(p int) SearchState {
	return s.update(func(st SearchState) SearchState { return st.WithPage(p) })
}

func (s *SearchStore) SetResultsPerPage(n int) (SearchState, error) {
	if n <= 0 || n > domain.MaxResultsPerPage {
		return s.State(), domain.ErrInvalidParameters
	}
	return s.update(func(st SearchState) SearchState { return st.WithResultsPerPage(n) }), nil
}

func (s *SearchStore) SetHasSearched(v bool) SearchState {
	return s.update(func(st SearchState) SearchState { return st.WithHasSearched(v) })
}

func (s *SearchStore) Clear() SearchState {
	return s.update(SearchState.Cleared)
}

// Submit - пользователь отправил запрос: query + флаг поиска одним шагом
func (s *SearchStore) Submit(q string) SearchState {
	return s.update(func(st SearchState) SearchState {
		st = st.WithQuery(q)
		return st.WithHasSearched(st.Query != "")
	})
}

func (s *SearchStore) State() SearchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *SearchStore) Params() domain.SearchParams {
	return s.State().Params()
}
