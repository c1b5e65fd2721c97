package rest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTitleCase(t *testing.T) {
	table := map[string]string{
		"user-agent":            "User-Agent",
		"x-ratelimit-precision": "X-Ratelimit-Precision",
		"Content-Type":          "Content-Type",
		"authorization":         "Authorization",
		"x--double":             "X--Double",
	}
	for in, wants := range table {
		assert.Equal(t, wants, TitleCase(in))
	}
}

func newServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Transport) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server, New(WithBaseURL(server.URL), WithBotToken("token"))
}

func TestTransport_Do(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		_, transport := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/guilds/1/members", r.URL.Path)
			assert.Equal(t, "limit=1000", r.URL.RawQuery)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.Equal(t, "Bot token", r.Header.Get("Authorization"))
			assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
			assert.Equal(t, "trace", r.Header.Get("X-Audit-Log-Reason"))

			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			assert.JSONEq(t, `{"name":"test"}`, string(body))

			w.Header().Set("X-Test", "yes")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"1"}`))
		})

		resp, err := transport.Do(context.Background(), http.MethodPost, "/guilds/1/members", &Options{
			JSON:    map[string]string{"name": "test"},
			Query:   "?limit=1000",
			Headers: map[string]string{"x-audit-log-reason": "trace"},
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.Status)
		assert.Equal(t, "yes", resp.Headers.Get("X-Test"))
		assert.JSONEq(t, `{"id":"1"}`, string(resp.Body))
	})

	t.Run("multipart", func(t *testing.T) {
		_, transport := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "hello", r.FormValue("content"))

			file, header, err := r.FormFile("file")
			require.NoError(t, err)
			defer file.Close()
			assert.Equal(t, "a.txt", header.Filename)
			data, _ := io.ReadAll(file)
			assert.Equal(t, "contents", string(data))
		})

		_, err := transport.Do(context.Background(), http.MethodPost, "/channels/1/messages", &Options{
			Multipart: []Part{
				{Name: "content", Contents: strings.NewReader("hello")},
				{Name: "file", Filename: "a.txt", Contents: strings.NewReader("contents")},
			},
		})
		require.NoError(t, err)
	})

	t.Run("conflicting bodies", func(t *testing.T) {
		_, transport := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("request should not be sent")
		})

		_, err := transport.Do(context.Background(), http.MethodPost, "/x", &Options{
			JSON:      1,
			Multipart: []Part{{Name: "a"}},
		})
		var restErr *Error
		require.ErrorAs(t, err, &restErr)
		assert.ErrorIs(t, err, errConflictingBodies)
	})

	t.Run("encoding failure", func(t *testing.T) {
		_, transport := newServer(t, func(w http.ResponseWriter, r *http.Request) {})

		_, err := transport.Do(context.Background(), http.MethodPost, "/x", &Options{JSON: make(chan int)})
		var restErr *Error
		require.ErrorAs(t, err, &restErr)
		assert.Zero(t, restErr.Status)
	})

	t.Run("http errors", func(t *testing.T) {
		_, transport := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		resp, err := transport.Do(context.Background(), http.MethodGet, "/missing", nil)
		require.NoError(t, err, "status codes are not errors unless requested")
		assert.Equal(t, http.StatusNotFound, resp.Status)

		_, err = transport.Do(context.Background(), http.MethodGet, "/missing", &Options{HTTPErrors: true})
		var restErr *Error
		require.ErrorAs(t, err, &restErr)
		assert.Equal(t, http.StatusNotFound, restErr.Status)
		assert.ErrorIs(t, err, ErrStatus)
	})

	t.Run("network failure", func(t *testing.T) {
		server, transport := newServer(t, func(w http.ResponseWriter, r *http.Request) {})
		server.Close()

		_, err := transport.Do(context.Background(), http.MethodGet, "/x", nil)
		var restErr *Error
		require.ErrorAs(t, err, &restErr)
		assert.NotNil(t, errors.Unwrap(err))
	})
}

func TestTransport_CircuitBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	transport := New(WithBaseURL(server.URL), WithCircuitBreaker(2, time.Minute))
	for i := 0; i < 2; i++ {
		_, err := transport.Do(context.Background(), http.MethodGet, "/", &Options{HTTPErrors: true})
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, transport.BreakerState())

	_, err := transport.Do(context.Background(), http.MethodGet, "/", nil)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestTransport_Send(t *testing.T) {
	_, transport := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})

	result := <-transport.Send(context.Background(), http.MethodGet, "/ping", nil)
	require.NoError(t, result.Err)
	assert.Equal(t, "pong", string(result.Response.Body))
}

func TestTransport_ResolveURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"), "token must not leak to other hosts")
		assert.Equal(t, "custom", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("data"))
	}))
	defer server.Close()

	transport := New(WithBotToken("token"))
	data, err := transport.ResolveURL(context.Background(), server.URL, map[string]string{"user-agent": "custom"})
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))
}

type roundTripFunc func(r *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func TestTransport_Authorization(t *testing.T) {
	authorized := map[string]string{}
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		authorized[r.URL.String()] = r.Header.Get("Authorization")
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader("")),
			Header:     http.Header{},
		}, nil
	})}

	table := []struct {
		baseURL string
		target  string
		token   bool
	}{
		{"https://discord.com", "https://discord.com/api/v10/users/@me", true},
		{"https://discord.com", "https://discord.com.evil.example/steal", false},
		{"https://discord.com", "http://discord.com/api", false},
		{"https://discord.com/api/v10", "https://discord.com/api/v10", true},
		{"https://discord.com/api/v10", "https://discord.com/api/v10/gateway", true},
		{"https://discord.com/api/v10", "https://discord.com/api/v100/gateway", false},
		{"https://discord.com/api/v10", "https://discord.com/other", false},
	}

	for _, test := range table {
		transport := New(WithBaseURL(test.baseURL), WithBotToken("token"), WithHTTPClient(client))
		_, err := transport.Do(context.Background(), http.MethodGet, test.target, nil)
		require.NoError(t, err)

		if test.token {
			assert.Equal(t, "Bot token", authorized[test.target], test.target)
		} else {
			assert.Empty(t, authorized[test.target], test.target)
		}
	}
}
