package loginflow

import "sync"

// LoginState tracks whether a session token is present. When the storage is a
// Notifier the state follows storage changes; otherwise it is computed once.
type LoginState struct {
	store Storage

	mu          sync.RWMutex
	loggedIn    bool
	unsubscribe func()
}

func NewLoginState(store Storage) *LoginState {
	ls := &LoginState{store: store}
	ls.refresh()
	if n, ok := store.(Notifier); ok {
		ls.unsubscribe = n.Subscribe(func(key string) {
			if key == KeySessionToken {
				ls.refresh()
			}
		})
	}
	return ls
}

func (ls *LoginState) refresh() {
	token, ok := ls.store.Get(KeySessionToken)
	ls.mu.Lock()
	ls.loggedIn = ok && token != ""
	ls.mu.Unlock()
}

func (ls *LoginState) LoggedIn() bool {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	return ls.loggedIn
}

// Logout forgets the session token. The host application session is not
// revoked.
func (ls *LoginState) Logout() {
	ls.store.Remove(KeySessionToken)
	ls.refresh()
}

// Close stops following storage changes.
func (ls *LoginState) Close() {
	if ls.unsubscribe != nil {
		ls.unsubscribe()
		ls.unsubscribe = nil
	}
}
