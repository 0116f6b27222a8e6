package pkg_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ts-31/agent-hub/pkg"
)

func TestCompleteMapsRolesAndSystemPrompt(t *testing.T) {
	var got struct {
		SystemInstruction *struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"system_instruction"`
		Contents []struct {
			Role  string `json:"role"`
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"contents"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/models/gemini-2.0-flash:generateContent", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"hello "},{"text":"there"}]}}]}`))
	}))
	defer srv.Close()

	client := pkg.NewGeminiClient("test-key", srv.URL, "gemini-2.0-flash")
	reply, err := client.Complete(context.Background(), "be brief", []pkg.ChatTurn{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hey"},
		{Role: "user", Content: "how are you"},
	})
	require.NoError(t, err)
	require.Equal(t, "hello there", reply)

	require.NotNil(t, got.SystemInstruction)
	require.Equal(t, "be brief", got.SystemInstruction.Parts[0].Text)
	require.Len(t, got.Contents, 3)
	require.Equal(t, "user", got.Contents[0].Role)
	require.Equal(t, "model", got.Contents[1].Role, "assistant turns map to the model role")
	require.Equal(t, "user", got.Contents[2].Role)
}

func TestCompleteNon200IsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"quota exceeded"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := pkg.NewGeminiClient("test-key", srv.URL, "gemini-2.0-flash")
	_, err := client.Complete(context.Background(), "", []pkg.ChatTurn{{Role: "user", Content: "hi"}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "429")
}

func TestCompleteEmptyCandidatesIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	client := pkg.NewGeminiClient("test-key", srv.URL, "gemini-2.0-flash")
	_, err := client.Complete(context.Background(), "", []pkg.ChatTurn{{Role: "user", Content: "hi"}})
	require.Error(t, err)
}

func TestCompleteHonorsContextDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	client := pkg.NewGeminiClient("test-key", srv.URL, "gemini-2.0-flash")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Complete(ctx, "", []pkg.ChatTurn{{Role: "user", Content: "hi"}})
	require.Error(t, err)
}
