package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	var got loginRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"sessionSecret":"s3cret"}`))
	}))
	defer srv.Close()

	session, err := NewClient(srv.URL, "ci", nil).Login(context.Background(), Credentials{Username: "runner", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "runner", session.Username)
	assert.Equal(t, "s3cret", session.Secret)
	assert.Equal(t, loginRequest{Credentials: Credentials{Username: "runner", Password: "pw"}, ClientID: "ci"}, got)
}

func TestLogin_EmptyBodyIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	session, err := NewClient(srv.URL, "", nil).Login(context.Background(), Credentials{Username: "runner", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "runner", session.Username)
}

func TestLogin_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/denied":
			http.Error(w, "bad credentials", http.StatusUnauthorized)
		case "/garbage":
			_, _ = w.Write([]byte("<html>"))
		}
	}))
	defer srv.Close()
	creds := Credentials{Username: "runner", Password: "pw"}

	_, err := NewClient(srv.URL+"/denied", "", nil).Login(context.Background(), creds)
	require.ErrorContains(t, err, "401")
	assert.Contains(t, err.Error(), "bad credentials")

	_, err = NewClient(srv.URL+"/garbage", "", nil).Login(context.Background(), creds)
	require.ErrorContains(t, err, "decode")

	_, err = NewClient(srv.URL, "", nil).Login(context.Background(), Credentials{Username: "runner"})
	require.ErrorIs(t, err, ErrMissingCredentials)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewClient(srv.URL, "", nil).Login(ctx, creds)
	require.Error(t, err)
}
