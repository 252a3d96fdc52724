package bot

import (
	"sync"

	"vidoma-bot/internal/bot/wizard"
)

// session is the per-chat conversational state: the navigation stack behind
// the Back button, the AI consultant toggle and the active order wizard.
// Everything lives in memory; a restart drops all conversations by design.
type session struct {
	mu sync.Mutex

	navStack []string
	aiMode   bool
	wizard   *wizard.Wizard
}

func (s *session) pushNav(screen string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navStack = append(s.navStack, screen)
}

func (s *session) popNav() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.navStack) == 0 {
		return "", false
	}
	top := s.navStack[len(s.navStack)-1]
	s.navStack = s.navStack[:len(s.navStack)-1]
	return top, true
}

func (s *session) clearNav() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navStack = nil
}

func (s *session) setAIMode(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aiMode = on
}

func (s *session) inAIMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aiMode
}

// setWizard replaces the active wizard, cancelling any live one.
func (s *session) setWizard(w *wizard.Wizard) {
	s.mu.Lock()
	old := s.wizard
	s.wizard = w
	s.mu.Unlock()

	if old != nil {
		old.Cancel()
	}
}

// activeWizard returns the live wizard, or nil when none is running.
func (s *session) activeWizard() *wizard.Wizard {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wizard != nil && s.wizard.Done() {
		s.wizard = nil
	}
	return s.wizard
}

// detachWizard drops the wizard reference after a terminal transition.
func (s *session) detachWizard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wizard != nil && s.wizard.Done() {
		s.wizard = nil
	}
}

// sessionStore hands out one session per chat.
type sessionStore struct {
	mu       sync.RWMutex
	sessions map[int64]*session
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[int64]*session)}
}

func (s *sessionStore) get(chatID int64) *session {
	s.mu.RLock()
	sess, ok := s.sessions[chatID]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok = s.sessions[chatID]; ok {
		return sess
	}
	sess = &session{}
	s.sessions[chatID] = sess
	return sess
}
