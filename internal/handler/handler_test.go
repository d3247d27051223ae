package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/Zhangboyu-Ian/Ai-classroom/internal/i18n"
	"github.com/Zhangboyu-Ian/Ai-classroom/internal/llm"
	"github.com/Zhangboyu-Ian/Ai-classroom/internal/model"
	"github.com/Zhangboyu-Ian/Ai-classroom/internal/store"
	"github.com/Zhangboyu-Ian/Ai-classroom/internal/video"
)

// newTestServer wires a full router against in-memory storage and fake
// upstream AI and video services.
func newTestServer(t *testing.T) (*httptest.Server, *store.Store) {
	t.Helper()

	if err := i18n.Init("en"); err != nil {
		t.Fatalf("i18n.Init: %v", err)
	}

	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	aiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{
					"role":    "assistant",
					"content": "1. Add a concrete example.\n2. Tighten the opening.\n3. State your conclusion.",
				}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(aiSrv.Close)

	videoSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"id": "talk-123"}`)
			return
		}
		fmt.Fprint(w, `{"id": "talk-123", "status": "done", "result_url": "https://cdn.example.com/v.mp4"}`)
	}))
	t.Cleanup(videoSrv.Close)

	h := New(s, llm.New(aiSrv.URL, "test-key", "test-model"), video.New(videoSrv.URL, "test-key"), model.ServerConfig{
		Lang:          "en",
		VideoImageURL: "https://example.com/face.png",
		VideoVoiceID:  "en-US-JennyNeural",
	})

	r := chi.NewRouter()
	r.Use(i18n.Middleware("en"))
	h.Routes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, s
}

func postJSON(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, decoded
}

func createClass(t *testing.T, baseURL, question string) string {
	t.Helper()
	resp, body := postJSON(t, baseURL+"/api/class", fmt.Sprintf(`{"question": %q}`, question))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create class: status %d", resp.StatusCode)
	}
	code, _ := body["class_code"].(string)
	if len(code) != 4 {
		t.Fatalf("class_code = %q", code)
	}
	return code
}

func TestClassLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)
	code := createClass(t, srv.URL, "Why is X?")

	t.Run("poll classroom", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/class/" + code + "/")
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		defer resp.Body.Close()
		var info model.Classroom
		if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if info.Question != "Why is X?" || info.Status != model.StatusActive {
			t.Errorf("info = %+v", info)
		}
	})

	t.Run("unknown code is 404 with next action", func(t *testing.T) {
		resp, body := postJSON(t, srv.URL+"/api/class/ZZZZ/join", `{}`)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d", resp.StatusCode)
		}
		if msg, _ := body["error"].(string); !strings.Contains(msg, "try again") {
			t.Errorf("error = %q", msg)
		}
	})

	t.Run("close then join is rejected", func(t *testing.T) {
		resp, _ := postJSON(t, srv.URL+"/api/class/"+code+"/close", `{}`)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("close: status %d", resp.StatusCode)
		}
		joinResp, body := postJSON(t, srv.URL+"/api/class/"+code+"/join", `{}`)
		if joinResp.StatusCode != http.StatusConflict {
			t.Errorf("status = %d", joinResp.StatusCode)
		}
		if msg, _ := body["error"].(string); !strings.Contains(msg, "ended") {
			t.Errorf("error = %q", msg)
		}
	})
}

func TestAnswerFlow(t *testing.T) {
	srv, s := newTestServer(t)
	code := createClass(t, srv.URL, "Why is X?")

	resp, body := postJSON(t, srv.URL+"/api/class/"+code+"/join", `{}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("join: status %d", resp.StatusCode)
	}
	studentID, _ := body["student_id"].(string)
	if !strings.HasPrefix(studentID, "S-") {
		t.Fatalf("student_id = %q", studentID)
	}

	t.Run("empty answer rejected", func(t *testing.T) {
		resp, body := postJSON(t, srv.URL+"/api/class/"+code+"/answer",
			fmt.Sprintf(`{"student_id": %q, "answer": "   "}`, studentID))
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d", resp.StatusCode)
		}
		if msg, _ := body["error"].(string); !strings.Contains(msg, "cannot be empty") {
			t.Errorf("error = %q", msg)
		}
		if rows := s.GetAnswersForQuestion(code, "Why is X?"); len(rows) != 0 {
			t.Errorf("nothing should be persisted, got %d rows", len(rows))
		}
	})

	t.Run("answer evaluated and stored", func(t *testing.T) {
		resp, body := postJSON(t, srv.URL+"/api/class/"+code+"/answer",
			fmt.Sprintf(`{"student_id": %q, "answer": "Because of Z."}`, studentID))
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		suggestions, _ := body["suggestions"].([]any)
		if len(suggestions) != 3 {
			t.Errorf("suggestions = %v", body["suggestions"])
		}
		if rows := s.GetAnswersForQuestion(code, "Why is X?"); len(rows) != 1 {
			t.Errorf("expected 1 stored answer, got %d", len(rows))
		}
	})

	t.Run("answers listed for teacher", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/class/" + code + "/answers")
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		defer resp.Body.Close()
		var answers []model.AnswerView
		if err := json.NewDecoder(resp.Body).Decode(&answers); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(answers) != 1 || answers[0].StudentID != studentID {
			t.Errorf("answers = %+v", answers)
		}
	})

	t.Run("csv export", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/class/" + code + "/export")
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		defer resp.Body.Close()
		if got := resp.Header.Get("Content-Type"); !strings.HasPrefix(got, "text/csv") {
			t.Errorf("content-type = %q", got)
		}
	})
}

func TestQuestionUpdate(t *testing.T) {
	srv, s := newTestServer(t)
	code := createClass(t, srv.URL, "Why is X?")

	resp, _ := postJSON(t, srv.URL+"/api/class/"+code+"/question", `{"question": "Why is Y?"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := s.GetClassroomInfo(code).Question; got != "Why is Y?" {
		t.Errorf("question = %q", got)
	}

	t.Run("blank question rejected", func(t *testing.T) {
		resp, _ := postJSON(t, srv.URL+"/api/class/"+code+"/question", `{"question": "  "}`)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d", resp.StatusCode)
		}
	})
}

func TestVideoEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := postJSON(t, srv.URL+"/api/video",
		`{"suggestions": ["Add an example", "Tighten the intro", "Conclude clearly"]}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	taskID, _ := body["task_id"].(string)
	if taskID != "talk-123" {
		t.Fatalf("task_id = %q", taskID)
	}

	stResp, stBody := func() (*http.Response, map[string]any) {
		r, err := http.Get(srv.URL + "/api/video/" + taskID)
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		t.Cleanup(func() { r.Body.Close() })
		var m map[string]any
		if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return r, m
	}()
	if stResp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", stResp.StatusCode)
	}
	if stBody["status"] != "done" || stBody["result_url"] != "https://cdn.example.com/v.mp4" {
		t.Errorf("body = %v", stBody)
	}
}

func TestGenerateQuestionEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := postJSON(t, srv.URL+"/api/question/generate", `{"subject": "physics"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if q, _ := body["question"].(string); q == "" {
		t.Error("expected a generated question")
	}
}
