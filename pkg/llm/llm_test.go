package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_DisabledWithoutKey(t *testing.T) {
	c, err := New(Config{Provider: "gemini"}, zap.NewNop())
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrDisabled)
	assert.True(t, IsFailure(err))

	_, err = New(Config{Provider: "mystery", APIKey: "k"}, zap.NewNop())
	assert.Error(t, err)
}

func TestGemini_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("key"))

		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Equal(t, "hello", req.Contents[0].Parts[0].Text)

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Hi "},{"text":"there"}]}}]}`))
	}))
	defer srv.Close()

	c, err := New(Config{Provider: "gemini", APIKey: "secret", BaseURL: srv.URL, Model: "test-model"}, zap.NewNop())
	require.NoError(t, err)
	out, err := c.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Hi there", out)
}

func TestGemini_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewGemini(Config{APIKey: "k", BaseURL: srv.URL}, srv.Client(), zap.NewNop())
	_, err := c.Generate(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, IsFailure(err))
	assert.Contains(t, err.Error(), "rate limit")
}

func TestOpenAI_GroqDefaultsAndAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer gk", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, DefaultGroqModel, req.Model)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  {\"intent\":\"menu\"}  "}}]}`))
	}))
	defer srv.Close()

	c, err := New(Config{Provider: "Groq", APIKey: "gk", BaseURL: srv.URL}, zap.NewNop())
	require.NoError(t, err)
	out, err := c.Generate(context.Background(), "classify")
	require.NoError(t, err)
	assert.Equal(t, `{"intent":"menu"}`, out)
}

func TestOpenAI_EmptyAnswerIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewOpenAI("openai", Config{APIKey: "k", BaseURL: srv.URL}, srv.Client(), zap.NewNop())
	_, err := c.Generate(context.Background(), "x")
	assert.True(t, IsFailure(err))
}

func TestGenerate_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c, err := New(Config{Provider: "openai", APIKey: "k", BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, zap.NewNop())
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), "x")
	require.Error(t, err)
	var cf *CollaboratorFailure
	require.True(t, errors.As(err, &cf))
	assert.Equal(t, "openai", cf.Provider)
}

func TestFunc(t *testing.T) {
	c := Func(func(_ context.Context, p string) (string, error) { return strings.ToUpper(p), nil })
	out, err := c.Generate(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "ABC", out)
}
