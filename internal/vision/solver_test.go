package vision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captured is what the fake endpoint saw in the last request.
type captured struct {
	authorization string
	body          map[string]any
}

// fakeVisionServer answers like an OpenAI-compatible chat-completions
// endpoint and records the request for inspection.
func fakeVisionServer(t *testing.T, status int, answer string, cap *captured) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cap != nil {
			cap.authorization = r.Header.Get("Authorization")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&cap.body))
		}
		w.WriteHeader(status)
		if status == http.StatusOK {
			resp := map[string]any{
				"choices": []map[string]any{
					{"message": map[string]any{"content": answer}},
				},
			}
			json.NewEncoder(w).Encode(resp)
		} else {
			w.Write([]byte(`{"error":{"message":"boom"}}`))
		}
	}))
}

func TestSolve_ReturnsTrimmedAnswer(t *testing.T) {
	var cap captured
	server := fakeVisionServer(t, http.StatusOK, "  aB3xY9\n", &cap)
	defer server.Close()

	solver := NewSolver(server.URL, "sk-test", "gpt-4o")
	got, err := solver.Solve(context.Background(), []byte("fake-png"))

	require.NoError(t, err)
	assert.Equal(t, "aB3xY9", got)
	assert.Equal(t, "Bearer sk-test", cap.authorization)
	assert.Equal(t, "gpt-4o", cap.body["model"])
}

func TestSolve_SendsImageAsDataURL(t *testing.T) {
	var cap captured
	server := fakeVisionServer(t, http.StatusOK, "XK4P", &cap)
	defer server.Close()

	solver := NewSolver(server.URL, "sk-test", "gpt-4o")
	_, err := solver.Solve(context.Background(), []byte{0x89, 0x50, 0x4e, 0x47})
	require.NoError(t, err)

	messages, ok := cap.body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)

	system := messages[0].(map[string]any)
	assert.Equal(t, "system", system["role"])
	assert.Contains(t, system["content"], "CAPTCHA")

	user := messages[1].(map[string]any)
	parts := user["content"].([]any)
	require.Len(t, parts, 2)
	imagePart := parts[1].(map[string]any)
	url := imagePart["image_url"].(map[string]any)["url"].(string)
	assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"))
}

func TestSolve_ErrorPaths(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		errPart string
	}{
		{
			name: "non-200 status surfaces body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte("rate limited"))
			},
			errPart: "status 429",
		},
		{
			name: "empty choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"choices":[]}`))
			},
			errPart: "no choices",
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{not json`))
			},
			errPart: "decode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			solver := NewSolver(server.URL, "sk-test", "gpt-4o")
			_, err := solver.Solve(context.Background(), []byte("img"))

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errPart)
		})
	}
}

func TestSolve_RespectsContextCancellation(t *testing.T) {
	server := fakeVisionServer(t, http.StatusOK, "answer", nil)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	solver := NewSolver(server.URL, "sk-test", "gpt-4o")
	_, err := solver.Solve(ctx, []byte("img"))
	assert.Error(t, err)
}

func TestPing(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr string
	}{
		{"healthy endpoint", http.StatusOK, ""},
		{"bad request still proves reachability", http.StatusBadRequest, ""},
		{"rejected key", http.StatusUnauthorized, "rejected the key"},
		{"forbidden key", http.StatusForbidden, "rejected the key"},
		{"server down", http.StatusServiceUnavailable, "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			solver := NewSolver(server.URL, "sk-test", "gpt-4o")
			err := solver.Ping(context.Background())

			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
