package backend_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Rorical/RoriChat/internal/backend"
	"github.com/Rorical/RoriChat/internal/backend/backendtest"
)

func newClient(srv *backendtest.Server) *backend.Client {
	return backend.NewClient(srv.URL+"/", 0, zap.NewNop())
}

func TestGetPrompt(t *testing.T) {
	srv := backendtest.New(t)
	srv.SetPrompt("be brief")

	got, err := newClient(srv).GetPrompt(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "be brief", got)
}

func TestSetPrompt(t *testing.T) {
	srv := backendtest.New(t)
	c := newClient(srv)

	require.NoError(t, c.SetPrompt(context.Background(), "new"))
	assert.Equal(t, []string{"new"}, srv.SetPromptCalls())

	srv.SetSetPromptStatus(http.StatusInternalServerError)
	err := c.SetPrompt(context.Background(), "again")

	var se *backend.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Code)
	assert.Equal(t, "/set-prompt", se.Path)
}

func TestChatSendsContractFields(t *testing.T) {
	srv := backendtest.New(t)
	srv.SetReply("Hi there", "srv-1")

	resp, err := newClient(srv).Chat(context.Background(), backend.ChatRequest{
		Message:      "hello",
		Role:         "coder",
		SystemPrompt: "be brief",
		SessionID:    "abc",
	})
	require.NoError(t, err)
	assert.Equal(t, "Hi there", resp.Reply)
	assert.Equal(t, "srv-1", resp.SessionID)

	calls := srv.ChatCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, backendtest.ChatCall{
		Message:      "hello",
		Role:         "coder",
		SystemPrompt: "be brief",
		SessionID:    "abc",
	}, calls[0])
}

func TestChatErrors(t *testing.T) {
	t.Run("non-2xx", func(t *testing.T) {
		srv := backendtest.New(t)
		srv.SetChatStatus(http.StatusBadGateway)

		_, err := newClient(srv).Chat(context.Background(), backend.ChatRequest{Message: "x"})
		var se *backend.StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusBadGateway, se.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := backendtest.New(t)
		srv.SetRawChatBody("{not json")

		_, err := newClient(srv).Chat(context.Background(), backend.ChatRequest{Message: "x"})
		assert.ErrorIs(t, err, backend.ErrMalformedResponse)
	})

	t.Run("transport", func(t *testing.T) {
		srv := backendtest.New(t)
		url := srv.URL
		srv.Close()

		_, err := backend.NewClient(url, time.Second, nil).Chat(context.Background(), backend.ChatRequest{Message: "x"})
		require.Error(t, err)
		var se *backend.StatusError
		assert.False(t, errors.As(err, &se))
	})

	t.Run("context cancelled", func(t *testing.T) {
		srv := backendtest.New(t)
		release := srv.Hold()
		defer release()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := newClient(srv).Chat(ctx, backend.ChatRequest{Message: "x"})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
