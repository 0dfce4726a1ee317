package session

import (
	"sync"

	"github.com/ad/go-telegram-buttons/internal/models"
)

// DefaultMaxPerUser caps how many open sessions one user may accumulate.
// Sessions are never evicted by time, so without a cap a long-running
// deployment grows without bound; when the cap is hit the oldest session
// is dropped.
const DefaultMaxPerUser = 64

// Store keeps every user's in-flight sessions plus the two single-slot
// pending-input pointers. Each pointer names the one session whose controls
// were pressed most recently; starting a new "awaiting" replaces the old
// pointer without touching the session that held it.
type Store struct {
	mu         sync.RWMutex
	users      map[int64]*userSessions
	maxPerUser int
}

type userSessions struct {
	sessions map[string]*models.Session
	order    []string // insertion order, for cap eviction

	awaitingLabel string // session id awaiting button-label text, "" if none
	awaitingPost  string // session id awaiting a post destination, "" if none
}

func NewStore() *Store {
	return &Store{
		users:      make(map[int64]*userSessions),
		maxPerUser: DefaultMaxPerUser,
	}
}

func (st *Store) user(ownerID int64) *userSessions {
	us, ok := st.users[ownerID]
	if !ok {
		us = &userSessions{sessions: make(map[string]*models.Session)}
		st.users[ownerID] = us
	}
	return us
}

// Put registers a session under its owner, evicting the owner's oldest
// session if the cap is exceeded.
func (st *Store) Put(ownerID int64, s *models.Session) {
	st.mu.Lock()
	defer st.mu.Unlock()

	us := st.user(ownerID)
	us.sessions[s.ID] = s
	us.order = append(us.order, s.ID)

	for len(us.sessions) > st.maxPerUser && len(us.order) > 0 {
		oldest := us.order[0]
		us.order = us.order[1:]
		if _, ok := us.sessions[oldest]; ok {
			us.remove(oldest)
		}
	}
}

// Get looks up a session strictly within ownerID's registry. An id valid for
// another user is not found here.
func (st *Store) Get(ownerID int64, sessionID string) (*models.Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	us, ok := st.users[ownerID]
	if !ok {
		return nil, false
	}
	s, ok := us.sessions[sessionID]
	return s, ok
}

// Delete removes a session and clears any pending pointer that referenced it.
func (st *Store) Delete(ownerID int64, sessionID string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	us, ok := st.users[ownerID]
	if !ok {
		return
	}
	us.remove(sessionID)
}

func (us *userSessions) remove(sessionID string) {
	delete(us.sessions, sessionID)
	for i, id := range us.order {
		if id == sessionID {
			us.order = append(us.order[:i], us.order[i+1:]...)
			break
		}
	}
	if us.awaitingLabel == sessionID {
		us.awaitingLabel = ""
	}
	if us.awaitingPost == sessionID {
		us.awaitingPost = ""
	}
}

// SetAwaitingLabel points the owner's button-label slot at sessionID,
// replacing any previous pointer.
func (st *Store) SetAwaitingLabel(ownerID int64, sessionID string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.user(ownerID).awaitingLabel = sessionID
}

// AwaitingLabel returns the session id currently awaiting button-label text.
func (st *Store) AwaitingLabel(ownerID int64) (string, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	us, ok := st.users[ownerID]
	if !ok || us.awaitingLabel == "" {
		return "", false
	}
	return us.awaitingLabel, true
}

func (st *Store) ClearAwaitingLabel(ownerID int64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if us, ok := st.users[ownerID]; ok {
		us.awaitingLabel = ""
	}
}

// SetAwaitingPost points the owner's post-destination slot at sessionID,
// replacing any previous pointer.
func (st *Store) SetAwaitingPost(ownerID int64, sessionID string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.user(ownerID).awaitingPost = sessionID
}

// AwaitingPost returns the session id currently awaiting a post destination.
func (st *Store) AwaitingPost(ownerID int64) (string, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	us, ok := st.users[ownerID]
	if !ok || us.awaitingPost == "" {
		return "", false
	}
	return us.awaitingPost, true
}

func (st *Store) ClearAwaitingPost(ownerID int64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if us, ok := st.users[ownerID]; ok {
		us.awaitingPost = ""
	}
}

// Count reports how many sessions ownerID has open.
func (st *Store) Count(ownerID int64) int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	us, ok := st.users[ownerID]
	if !ok {
		return 0
	}
	return len(us.sessions)
}
