package loginflow_test

import (
	"testing"

	"github.com/jrsteele09/course-sso/loginflow"
	"github.com/stretchr/testify/assert"
)

func TestTakeReturnPathReadsOnce(t *testing.T) {
	store := loginflow.NewMemoryStorage()
	store.Set(loginflow.KeyReturnURL, "/courses")

	assert.Equal(t, "/courses", loginflow.TakeReturnPath(store))
	assert.Equal(t, loginflow.DefaultReturnPath, loginflow.TakeReturnPath(store))

	_, ok := store.Get(loginflow.KeyReturnURL)
	assert.False(t, ok)
}

func TestMemoryStorageSubscribe(t *testing.T) {
	store := loginflow.NewMemoryStorage()
	var changed []string
	unsubscribe := store.Subscribe(func(key string) { changed = append(changed, key) })

	store.Set("a", "1")
	store.Remove("a")
	store.Remove("a")
	unsubscribe()
	store.Set("b", "2")

	assert.Equal(t, []string{"a", "a"}, changed)
}

func TestLoginStateFollowsStorage(t *testing.T) {
	store := loginflow.NewMemoryStorage()
	state := loginflow.NewLoginState(store)
	defer state.Close()
	assert.False(t, state.LoggedIn())

	store.Set(loginflow.KeySessionToken, "T")
	assert.True(t, state.LoggedIn())

	state.Logout()
	assert.False(t, state.LoggedIn())
	_, ok := store.Get(loginflow.KeySessionToken)
	assert.False(t, ok)
}

func TestRedirectTarget(t *testing.T) {
	tests := []struct {
		name, host, path, token, want string
	}{
		{"plain", "https://learn.example.com", "/courses", "T", "https://learn.example.com/courses?ssoToken=T"},
		{"adds leading slash", "https://learn.example.com", "courses", "T", "https://learn.example.com/courses?ssoToken=T"},
		{"trims host slash", "https://learn.example.com/", "/dashboard", "T", "https://learn.example.com/dashboard?ssoToken=T"},
		{"escapes token", "https://h", "/d", "a+b/c=", "https://h/d?ssoToken=a%2Bb%2Fc%3D"},
		{"existing query", "https://h", "/d?tab=1", "T", "https://h/d?tab=1&ssoToken=T"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, loginflow.RedirectTarget(tt.host, tt.path, tt.token))
		})
	}
}
