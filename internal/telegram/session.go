package telegram

import (
	"sync"

	"github.com/kitbuilder587/anime-bot/internal/domain"
	"github.com/kitbuilder587/anime-bot/internal/state"
)

type view int

const (
	viewNone view = iota
	viewSearch
	viewDetail
)

// session - состояние одного чата
type session struct {
	search *state.SearchStore
	detail *state.DetailStore

	mu sync.Mutex
	// последняя полученная пагинация, nil до первого ответа
	pagination *domain.Pagination
	// что показывали последним, для /refresh
	shown view
}

func (s *session) setShown(v view) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shown = v
}

func (s *session) lastShown() view {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shown
}

func (s *session) rememberPagination(p domain.Pagination) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pagination = &p
}

func (s *session) forgetPagination() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pagination = nil
}

func (s *session) lastPagination() (domain.Pagination, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pagination == nil {
		return domain.Pagination{}, false
	}
	return *s.pagination, true
}

type sessions struct {
	mu             sync.Mutex
	byChat         map[int64]*session
	resultsPerPage int
}

func newSessions(resultsPerPage int) *sessions {
	return &sessions{
		byChat:         make(map[int64]*session),
		resultsPerPage: resultsPerPage,
	}
}

// get возвращает сессию чата; created - сессия только что заведена
func (s *sessions) get(chatID int64) (sess *session, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.byChat[chatID]; ok {
		return sess, false
	}
	sess = &session{
		search: state.NewSearchStore(s.resultsPerPage),
		detail: state.NewDetailStore(),
	}
	s.byChat[chatID] = sess
	return sess, true
}

func (s *sessions) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byChat)
}
