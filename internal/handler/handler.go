// Package handler exposes the classroom operations as a JSON API.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Zhangboyu-Ian/Ai-classroom/internal/eval"
	"github.com/Zhangboyu-Ian/Ai-classroom/internal/i18n"
	"github.com/Zhangboyu-Ian/Ai-classroom/internal/ident"
	"github.com/Zhangboyu-Ian/Ai-classroom/internal/llm"
	"github.com/Zhangboyu-Ian/Ai-classroom/internal/llm/prompts"
	"github.com/Zhangboyu-Ian/Ai-classroom/internal/model"
	"github.com/Zhangboyu-Ian/Ai-classroom/internal/store"
	"github.com/Zhangboyu-Ian/Ai-classroom/internal/video"
)

const createAttempts = 5

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store  *store.Store
	llm    *llm.Client
	video  *video.Client
	config model.ServerConfig
}

// New creates a new Handler.
func New(s *store.Store, l *llm.Client, v *video.Client, cfg model.ServerConfig) *Handler {
	return &Handler{store: s, llm: l, video: v, config: cfg}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/class", h.handleCreateClass)
		r.Route("/class/{code}", func(r chi.Router) {
			r.Get("/", h.handleGetClass)
			r.Post("/question", h.handleSetQuestion)
			r.Post("/close", h.handleCloseClass)
			r.Post("/join", h.handleJoin)
			r.Post("/answer", h.handleAnswer)
			r.Get("/answers", h.handleListAnswers)
			r.Get("/students", h.handleListStudents)
			r.Get("/export", h.handleExport)
		})
		r.Post("/video", h.handleCreateVideo)
		r.Get("/video/{taskID}", h.handleVideoStatus)
		r.Post("/question/generate", h.handleGenerateQuestion)
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// respondError sends a localized, next-action error message. Internal
// detail stays in the logs.
func respondError(w http.ResponseWriter, r *http.Request, status int, msgID string) {
	respondJSON(w, status, map[string]string{"error": i18n.T(r.Context(), msgID)})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, r, http.StatusBadRequest, "BadRequest")
		return false
	}
	return true
}

func (h *Handler) handleCreateClass(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
	}
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return
	}

	teacherID := ident.NewTeacherID()
	for i := 0; i < createAttempts; i++ {
		code := ident.NewClassCode()
		if h.store.CreateClassroom(code, teacherID, strings.TrimSpace(req.Question)) {
			slog.Info("classroom created", "class_code", code)
			respondJSON(w, http.StatusCreated, map[string]string{
				"class_code": code,
				"teacher_id": teacherID,
			})
			return
		}
	}
	slog.Error("class code allocation exhausted")
	respondError(w, r, http.StatusServiceUnavailable, "JoinFailed")
}

func (h *Handler) handleGetClass(w http.ResponseWriter, r *http.Request) {
	info := h.store.GetClassroomInfo(chi.URLParam(r, "code"))
	if info == nil {
		respondError(w, r, http.StatusNotFound, "ClassNotFound")
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (h *Handler) handleSetQuestion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		respondError(w, r, http.StatusBadRequest, "EmptyQuestion")
		return
	}

	code := chi.URLParam(r, "code")
	if h.store.GetClassroomInfo(code) == nil {
		respondError(w, r, http.StatusNotFound, "ClassNotFound")
		return
	}
	if !h.store.UpdateClassroomQuestion(code, strings.TrimSpace(req.Question)) {
		respondError(w, r, http.StatusInternalServerError, "SaveFailed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleCloseClass(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if h.store.GetClassroomInfo(code) == nil {
		respondError(w, r, http.StatusNotFound, "ClassNotFound")
		return
	}
	if !h.store.CloseClassroom(code) {
		respondError(w, r, http.StatusInternalServerError, "SaveFailed")
		return
	}
	slog.Info("classroom closed", "class_code", code)
	respondJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

func (h *Handler) handleJoin(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	info := h.store.GetClassroomInfo(code)
	if info == nil {
		respondError(w, r, http.StatusNotFound, "ClassNotFound")
		return
	}
	if info.Status != model.StatusActive {
		respondError(w, r, http.StatusConflict, "ClassClosed")
		return
	}

	for i := 0; i < createAttempts; i++ {
		studentID := ident.NewStudentID()
		if h.store.AddStudent(studentID, code) {
			slog.Info("student joined", "class_code", code, "student_id", studentID)
			respondJSON(w, http.StatusCreated, map[string]string{
				"student_id": studentID,
				"question":   info.Question,
			})
			return
		}
	}
	respondError(w, r, http.StatusServiceUnavailable, "JoinFailed")
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StudentID string `json:"student_id"`
		Answer    string `json:"answer"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Answer) == "" {
		respondError(w, r, http.StatusBadRequest, "EmptyAnswer")
		return
	}

	code := chi.URLParam(r, "code")
	info := h.store.GetClassroomInfo(code)
	if info == nil {
		respondError(w, r, http.StatusNotFound, "ClassNotFound")
		return
	}
	if info.Question == "" {
		respondError(w, r, http.StatusConflict, "NoQuestion")
		return
	}

	suggestions := h.llm.SuggestImprovements(r.Context(), info.Question, req.Answer)
	evaluation := eval.Result{
		Score:       0.7,
		Feedback:    "Thank you for your answer.",
		Suggestions: suggestions,
	}
	if !h.store.SaveAnswer(req.StudentID, code, info.Question, req.Answer, evaluation) {
		respondError(w, r, http.StatusInternalServerError, "SaveFailed")
		return
	}
	respondJSON(w, http.StatusCreated, evaluation)
}

func (h *Handler) handleListAnswers(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	info := h.store.GetClassroomInfo(code)
	if info == nil {
		respondError(w, r, http.StatusNotFound, "ClassNotFound")
		return
	}
	question := r.URL.Query().Get("question")
	if question == "" {
		question = info.Question
	}
	respondJSON(w, http.StatusOK, h.store.GetAnswersForQuestion(code, question))
}

func (h *Handler) handleListStudents(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if h.store.GetClassroomInfo(code) == nil {
		respondError(w, r, http.StatusNotFound, "ClassNotFound")
		return
	}
	respondJSON(w, http.StatusOK, h.store.GetClassroomStudents(code))
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if h.store.GetClassroomInfo(code) == nil {
		respondError(w, r, http.StatusNotFound, "ClassNotFound")
		return
	}

	if r.URL.Query().Get("format") == "json" {
		export := h.store.ExportClass(code)
		if export == nil {
			respondError(w, r, http.StatusInternalServerError, "NoData")
			return
		}
		respondJSON(w, http.StatusOK, export)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="classroom_`+code+`.csv"`)
	if err := h.store.ExportCSV(w, code); err != nil {
		slog.Error("csv export failed", "class_code", code, "error", err)
	}
}

func (h *Handler) handleCreateVideo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Suggestions []string `json:"suggestions"`
		ImageURL    string   `json:"image_url"`
		VoiceID     string   `json:"voice_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Suggestions) == 0 {
		respondError(w, r, http.StatusBadRequest, "BadRequest")
		return
	}
	imageURL := req.ImageURL
	if imageURL == "" {
		imageURL = h.config.VideoImageURL
	}
	voiceID := req.VoiceID
	if voiceID == "" {
		voiceID = h.config.VideoVoiceID
	}

	taskID, err := h.video.Create(r.Context(), imageURL, video.BuildScript(eval.CleanSuggestions(req.Suggestions)), voiceID)
	if err != nil {
		slog.Error("video creation failed", "error", err)
		respondError(w, r, http.StatusBadGateway, "VideoCreateFailed")
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"task_id": taskID})
}

func (h *Handler) handleVideoStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.video.Status(r.Context(), chi.URLParam(r, "taskID"))
	if err != nil {
		slog.Error("video status failed", "error", err)
		respondError(w, r, http.StatusBadGateway, "VideoStatusFailed")
		return
	}
	if st.Status == video.StatusError {
		respondJSON(w, http.StatusOK, map[string]string{
			"status": st.Status,
			"error":  i18n.T(r.Context(), "VideoGenerationFailed"),
		})
		return
	}
	respondJSON(w, http.StatusOK, st)
}

func (h *Handler) handleGenerateQuestion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Subject          string   `json:"subject"`
		Difficulty       string   `json:"difficulty"`
		Keywords         []string `json:"keywords"`
		Regenerate       bool     `json:"regenerate"`
		PreviousQuestion string   `json:"previous_question"`
		Attempt          int      `json:"attempt"`
	}
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return
	}

	question, err := h.llm.GenerateQuestion(r.Context(), prompts.QuestionParams{
		Subject:          req.Subject,
		Difficulty:       req.Difficulty,
		Keywords:         req.Keywords,
		Regenerate:       req.Regenerate,
		PreviousQuestion: req.PreviousQuestion,
		Attempt:          req.Attempt,
	})
	if err != nil {
		slog.Error("question generation failed", "error", err)
		respondError(w, r, http.StatusBadGateway, "QuestionGenerationFailed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"question": question})
}
