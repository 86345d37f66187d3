package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvndaai/galaxy-sia/internal/config"
)

func TestHTTPSenderSetsHeadersAndBody(t *testing.T) {
	var gotTitle, gotPriority, gotAuth, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTitle = r.Header.Get("Title")
		gotPriority = r.Header.Get("Priority")
		gotAuth = r.Header.Get("Authorization")
		buf := make([]byte, 1024)
		n, _ := r.Body.Read(buf)
		gotBody = string(buf[:n])
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	topic := config.AccountConfig{
		TopicURL: srv.URL,
		Auth:     &config.NtfyAuth{Method: config.AuthToken, Token: "secret"},
	}

	s := NewHTTPSender(nil)
	err := s.Send(context.Background(), topic, "Alarm: Home", "16:38 Event: CL", 3)
	require.NoError(t, err)

	assert.Equal(t, "Alarm: Home", gotTitle)
	assert.Equal(t, "3", gotPriority)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "16:38 Event: CL", gotBody)
}

func TestHTTPSenderBasicAuth(t *testing.T) {
	var gotUser, gotPass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, _ = r.BasicAuth()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	topic := config.AccountConfig{
		TopicURL: srv.URL,
		Auth:     &config.NtfyAuth{Method: config.AuthUserPass, User: "alice", Password: "hunter2"},
	}

	s := NewHTTPSender(nil)
	require.NoError(t, s.Send(context.Background(), topic, "t", "b", 1))
	assert.Equal(t, "alice", gotUser)
	assert.Equal(t, "hunter2", gotPass)
}

func TestHTTPSenderNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	topic := config.AccountConfig{TopicURL: srv.URL}
	s := NewHTTPSender(nil)
	err := s.Send(context.Background(), topic, "t", "b", 1)
	assert.Error(t, err)
}
