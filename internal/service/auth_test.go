package service

import (
	"context"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/visualtk/vnintegration/internal/fakeapi"
	"github.com/visualtk/vnintegration/internal/remote"
	"github.com/visualtk/vnintegration/internal/store"
)

func Test_AuthService_Login(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)

	token, err := env.auth.Login(ctx)
	require.NoError(t, err)
	assert.Equal(t, fakeapi.DefaultToken, token)
	assert.Equal(t, fakeapi.DefaultToken, env.auth.SessionToken())
	assert.True(t, env.auth.Session().Valid())
	assert.Equal(t, 1, env.auth.Session().Logins())

	query := url.Values{}
	query.Set("login", fakeapi.DefaultLogin)
	query.Set("password", fakeapi.DefaultPassword)
	resp, err := http.Get(env.server.URL + remote.LoginPath + "?" + query.Encode())
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := ioutil.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, string(raw), string(env.read(t, LoginResponseFile)))
}

func Test_AuthService_LoginWithoutSession(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, []func(*fakeapi.Server) error{fakeapi.OptionOmitSession()})
	env.auth.Session().Set("previous", time.Now())

	token, err := env.auth.Login(ctx)
	require.Error(t, err)
	assert.True(t, IsAuthError(err))
	assert.Empty(t, token)
	assert.Equal(t, "previous", env.auth.SessionToken())
	assert.Len(t, env.files(t, LoginResponseFile), 1)
}

func Test_AuthService_LoginRejected(t *testing.T) {
	env := newTestEnv(t, []func(*fakeapi.Server) error{fakeapi.OptionCredentials("someone", "else")})

	_, err := env.auth.Login(context.Background())
	require.Error(t, err)
	assert.True(t, IsAuthError(err))
	assert.False(t, env.auth.Session().Valid())
}

func Test_AuthService_LoginFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		isError func(error) bool
	}{
		{"Malformed xml", http.StatusOK, "<logged><session>abc</logged>", IsParseError},
		{"Unavailable", http.StatusServiceUnavailable, "<error/>", IsFetchError},
		{"Forbidden", http.StatusForbidden, "<error/>", IsAuthError},
		{"Empty session", http.StatusOK, "<logged><session>  </session></logged>", IsAuthError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			auth := newStandaloneAuth(t, srv.URL)
			_, err := auth.Login(context.Background())
			require.Error(t, err)
			assert.True(t, tt.isError(err), err.Error())
			assert.Empty(t, auth.SessionToken())
		})
	}
}

func Test_AuthService_LoginKeepsTokenVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<logged><session> abc </session></logged>"))
	}))
	defer srv.Close()

	auth := newStandaloneAuth(t, srv.URL)
	token, err := auth.Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, " abc ", token)
	assert.Equal(t, " abc ", auth.SessionToken())
}

func Test_AuthService_LoginUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	_, err := newStandaloneAuth(t, base).Login(context.Background())
	require.Error(t, err)
	assert.True(t, IsFetchError(err))
}

func Test_NewAuthService(t *testing.T) {
	ctx := context.Background()
	mgr, err := store.NewFileManager(ctx, store.FileConfig{Dir: t.TempDir()})
	require.NoError(t, err)
	client, err := remote.NewClient("http://localhost:1")
	require.NoError(t, err)

	_, err = NewAuthService(ctx, OptionStore(mgr))
	assert.Error(t, err)
	_, err = NewAuthService(ctx, OptionClient(client), OptionStore(mgr))
	assert.Error(t, err)
	_, err = NewAuthService(ctx, OptionClient(client), OptionStore(mgr), OptionOutputFormat("csv"))
	assert.Error(t, err)
	_, err = NewAuthService(ctx, OptionClient(client), OptionStore(mgr), OptionCredentials("usher", ""))
	assert.NoError(t, err)
}

func newStandaloneAuth(t *testing.T, baseURL string) Auth {
	ctx := context.Background()
	mgr, err := store.NewFileManager(ctx, store.FileConfig{Dir: t.TempDir()})
	require.NoError(t, err)
	client, err := remote.NewClient(baseURL, remote.OptionTimeout(2*time.Second))
	require.NoError(t, err)
	auth, err := NewAuthService(ctx, OptionClient(client), OptionStore(mgr), OptionCredentials("usher", "secret"))
	require.NoError(t, err)
	return auth
}
