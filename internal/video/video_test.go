package video

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// fastPoll keeps the tests quick.
var fastPoll = PollPolicy{Interval: time.Millisecond, MaxAttempts: 5}

func TestCreate(t *testing.T) {
	var gotAuth string
	var gotBody createRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/talks" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": "talk-123"}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "secret-key")
	id, err := c.Create(context.Background(), "https://example.com/face.png", "Hello there.", "en-US-JennyNeural")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id != "talk-123" {
		t.Errorf("id = %q", id)
	}
	if !strings.HasPrefix(gotAuth, "Basic ") {
		t.Errorf("authorization = %q, want Basic credential", gotAuth)
	}
	if gotBody.SourceURL != "https://example.com/face.png" {
		t.Errorf("source_url = %q", gotBody.SourceURL)
	}
	if gotBody.Script.Type != "text" || gotBody.Script.Input != "Hello there." {
		t.Errorf("script = %+v", gotBody.Script)
	}
	if gotBody.Script.Provider.VoiceID != "en-US-JennyNeural" {
		t.Errorf("voice_id = %q", gotBody.Script.Provider.VoiceID)
	}
}

func TestCreateRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"description": "invalid image"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New(srv.URL, "secret-key")
	if _, err := c.Create(context.Background(), "not-a-url", "text", "voice"); err == nil {
		t.Error("expected error for rejected request")
	}
}

func TestStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/talks/talk-123" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"id": "talk-123", "status": "done", "result_url": "https://cdn.example.com/v.mp4"}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "secret-key")
	st, err := c.Status(context.Background(), "talk-123")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Status != StatusDone || st.ResultURL != "https://cdn.example.com/v.mp4" {
		t.Errorf("status = %+v", st)
	}
}

func TestPoll(t *testing.T) {
	t.Run("finishes after a few attempts", func(t *testing.T) {
		var calls int
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls < 3 {
				fmt.Fprint(w, `{"status": "started"}`)
				return
			}
			fmt.Fprint(w, `{"status": "done", "result_url": "https://cdn.example.com/v.mp4"}`)
		}))
		defer srv.Close()

		c := New(srv.URL, "secret-key")
		url, err := c.Poll(context.Background(), "talk-123", fastPoll)
		if err != nil {
			t.Fatalf("Poll: %v", err)
		}
		if url != "https://cdn.example.com/v.mp4" {
			t.Errorf("url = %q", url)
		}
	})

	t.Run("reports generation failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"status": "error"}`)
		}))
		defer srv.Close()

		c := New(srv.URL, "secret-key")
		if _, err := c.Poll(context.Background(), "talk-123", fastPoll); !errors.Is(err, ErrGenerationFailed) {
			t.Errorf("err = %v, want ErrGenerationFailed", err)
		}
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"status": "started"}`)
		}))
		defer srv.Close()

		c := New(srv.URL, "secret-key")
		if _, err := c.Poll(context.Background(), "talk-123", fastPoll); !errors.Is(err, ErrPollExhausted) {
			t.Errorf("err = %v, want ErrPollExhausted", err)
		}
	})

	t.Run("honors context cancellation", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"status": "started"}`)
		}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		c := New(srv.URL, "secret-key")
		if _, err := c.Poll(ctx, "talk-123", PollPolicy{Interval: time.Minute, MaxAttempts: 10}); !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	})
}

func TestBuildScript(t *testing.T) {
	got := BuildScript([]string{
		"Add a concrete example.",
		"Tighten the opening paragraph.",
		"State your conclusion explicitly.",
	})
	for _, want := range []string{
		"Hello!",
		"First, Add a concrete example.",
		"Second, Tighten the opening paragraph.",
		"And finally, State your conclusion explicitly.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("script missing %q:\n%s", want, got)
		}
	}

	short := BuildScript([]string{"Only one."})
	if strings.Contains(short, "Second,") {
		t.Errorf("short script should not enumerate missing items:\n%s", short)
	}
}
