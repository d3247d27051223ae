// Package session reconciles participant and teacher state with the
// classroom store. Students observe the classroom by polling, so the
// student side is an explicit state machine: a pure Apply function over
// named phases, with a thin agent around it that performs the side
// effects.
package session

import (
	"context"
	"errors"
	"strings"

	"github.com/Zhangboyu-Ian/Ai-classroom/internal/eval"
	"github.com/Zhangboyu-Ian/Ai-classroom/internal/ident"
	"github.com/Zhangboyu-Ian/Ai-classroom/internal/model"
	"github.com/Zhangboyu-Ian/Ai-classroom/internal/video"
)

// Phase names the student's position in the discussion flow.
type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhaseQuestionPosted  Phase = "question_posted"
	PhaseAnswerSubmitted Phase = "answer_submitted"
	PhaseVideoRequested  Phase = "video_requested"
	PhaseVideoReady      Phase = "video_ready"
)

var (
	ErrClassNotFound = errors.New("classroom not found")
	ErrClassClosed   = errors.New("classroom is closed")
	ErrJoinFailed    = errors.New("could not join classroom")
	ErrNotJoined     = errors.New("not joined to a classroom")
	ErrNoQuestion    = errors.New("no question has been posted")
	ErrEmptyAnswer   = errors.New("answer is empty")
	ErrNoAnswer      = errors.New("no answer has been submitted")
	ErrNoVideoTask   = errors.New("no video generation in progress")
	ErrSaveFailed    = errors.New("could not save answer")
	ErrCodeExhausted = errors.New("could not allocate a class code")
	ErrEmptyQuestion = errors.New("question is empty")
	ErrBadIndex      = errors.New("question index out of range")
)

// State is the full student-side view. It is a value: Apply returns a
// new State and never mutates its input.
type State struct {
	Phase      Phase
	ClassCode  string
	StudentID  string
	Question   string
	AnswerText string
	Evaluation *eval.Result

	VideoTaskID string
	VideoURL    string
	VideoError  string
}

// Event is one observed fact to fold into the state.
type Event interface{ isEvent() }

// Joined records a successful classroom join.
type Joined struct {
	ClassCode string
	StudentID string
}

// QuestionSeen records the question text observed on a poll. A changed
// value resets everything downstream of the question; an equal value
// changes nothing.
type QuestionSeen struct{ Question string }

// AnswerAccepted records a persisted answer and its evaluation.
type AnswerAccepted struct {
	Answer     string
	Evaluation eval.Result
}

// VideoCreated records a started generation task.
type VideoCreated struct{ TaskID string }

// VideoDone records a finished generation task.
type VideoDone struct{ URL string }

// VideoFailed records a failed generation task. The student keeps the
// text feedback and may retry.
type VideoFailed struct{ Reason string }

// Left records leaving the classroom.
type Left struct{}

func (Joined) isEvent()         {}
func (QuestionSeen) isEvent()   {}
func (AnswerAccepted) isEvent() {}
func (VideoCreated) isEvent()   {}
func (VideoDone) isEvent()      {}
func (VideoFailed) isEvent()    {}
func (Left) isEvent()           {}

// Apply folds one event into the state.
func Apply(s State, e Event) State {
	switch ev := e.(type) {
	case Joined:
		return State{
			Phase:     PhaseIdle,
			ClassCode: ev.ClassCode,
			StudentID: ev.StudentID,
		}
	case QuestionSeen:
		if ev.Question == s.Question {
			return s
		}
		next := State{
			ClassCode: s.ClassCode,
			StudentID: s.StudentID,
			Question:  ev.Question,
		}
		if ev.Question == "" {
			next.Phase = PhaseIdle
		} else {
			next.Phase = PhaseQuestionPosted
		}
		return next
	case AnswerAccepted:
		evaluation := ev.Evaluation
		return State{
			Phase:      PhaseAnswerSubmitted,
			ClassCode:  s.ClassCode,
			StudentID:  s.StudentID,
			Question:   s.Question,
			AnswerText: ev.Answer,
			Evaluation: &evaluation,
		}
	case VideoCreated:
		s.Phase = PhaseVideoRequested
		s.VideoTaskID = ev.TaskID
		s.VideoURL = ""
		s.VideoError = ""
		return s
	case VideoDone:
		s.Phase = PhaseVideoReady
		s.VideoURL = ev.URL
		return s
	case VideoFailed:
		s.Phase = PhaseAnswerSubmitted
		s.VideoTaskID = ""
		s.VideoURL = ""
		s.VideoError = ev.Reason
		return s
	case Left:
		return State{Phase: PhaseIdle}
	}
	return s
}

// ClassReader is the store surface the student agent needs.
type ClassReader interface {
	GetClassroomInfo(classCode string) *model.Classroom
	AddStudent(studentID, classCode string) bool
	SaveAnswer(studentID, classCode, question, answer string, evaluation eval.Result) bool
}

// Advisor produces improvement suggestions for an answer.
type Advisor interface {
	SuggestImprovements(ctx context.Context, question, answer string) []string
}

// VideoMaker starts and reports on talking-head generation tasks.
type VideoMaker interface {
	Create(ctx context.Context, imageURL, text, voiceID string) (string, error)
	Status(ctx context.Context, taskID string) (*video.TaskStatus, error)
}

// Stored alongside every student submission. The detailed score comes
// later from the teacher-side evaluation; submission itself records the
// acknowledgment and the improvement suggestions.
const (
	submitScore    = 0.7
	submitFeedback = "Thank you for your answer."
)

const joinAttempts = 5

// StudentAgent drives one student's session against the store and the
// AI services.
type StudentAgent struct {
	store ClassReader
	ai    Advisor
	video VideoMaker

	imageURL string
	voiceID  string

	state State
}

// NewStudentAgent creates an agent. imageURL and voiceID configure the
// generated video's presenter.
func NewStudentAgent(store ClassReader, ai Advisor, vid VideoMaker, imageURL, voiceID string) *StudentAgent {
	return &StudentAgent{
		store:    store,
		ai:       ai,
		video:    vid,
		imageURL: imageURL,
		voiceID:  voiceID,
		state:    State{Phase: PhaseIdle},
	}
}

// State returns a copy of the current state.
func (a *StudentAgent) State() State { return a.state }

// Join enters the classroom with a fresh student identifier. It
// distinguishes an unknown code from a closed classroom so the student
// gets the right correction to make.
func (a *StudentAgent) Join(classCode string) error {
	info := a.store.GetClassroomInfo(classCode)
	if info == nil {
		return ErrClassNotFound
	}
	if info.Status != model.StatusActive {
		return ErrClassClosed
	}

	// Identifier collisions are possible, just unlikely. Retry with a
	// fresh one rather than failing the join.
	for i := 0; i < joinAttempts; i++ {
		studentID := ident.NewStudentID()
		if a.store.AddStudent(studentID, classCode) {
			a.state = Apply(a.state, Joined{ClassCode: classCode, StudentID: studentID})
			a.state = Apply(a.state, QuestionSeen{Question: info.Question})
			return nil
		}
	}
	return ErrJoinFailed
}

// Refresh polls the classroom and reconciles the local question with
// what the teacher has posted. Observing the same question is a no-op;
// a different question discards the answer and video state.
func (a *StudentAgent) Refresh() error {
	if a.state.ClassCode == "" {
		return ErrNotJoined
	}
	info := a.store.GetClassroomInfo(a.state.ClassCode)
	if info == nil {
		return ErrClassNotFound
	}
	a.state = Apply(a.state, QuestionSeen{Question: info.Question})
	return nil
}

// SubmitAnswer validates, evaluates, and persists the student's answer.
// A whitespace-only answer is rejected before any side effect.
func (a *StudentAgent) SubmitAnswer(ctx context.Context, text string) error {
	if a.state.ClassCode == "" {
		return ErrNotJoined
	}
	if a.state.Question == "" {
		return ErrNoQuestion
	}
	if strings.TrimSpace(text) == "" {
		return ErrEmptyAnswer
	}

	suggestions := a.ai.SuggestImprovements(ctx, a.state.Question, text)
	evaluation := eval.Result{
		Score:       submitScore,
		Feedback:    submitFeedback,
		Suggestions: suggestions,
	}
	if !a.store.SaveAnswer(a.state.StudentID, a.state.ClassCode, a.state.Question, text, evaluation) {
		return ErrSaveFailed
	}
	a.state = Apply(a.state, AnswerAccepted{Answer: text, Evaluation: evaluation})
	return nil
}

// RequestVideo starts generating a talking-head video that reads the
// improvement suggestions aloud. A creation failure keeps the student
// on the text feedback.
func (a *StudentAgent) RequestVideo(ctx context.Context) error {
	if a.state.Phase != PhaseAnswerSubmitted || a.state.Evaluation == nil {
		return ErrNoAnswer
	}
	script := video.BuildScript(a.state.Evaluation.Suggestions)
	taskID, err := a.video.Create(ctx, a.imageURL, script, a.voiceID)
	if err != nil {
		a.state = Apply(a.state, VideoFailed{Reason: err.Error()})
		return err
	}
	a.state = Apply(a.state, VideoCreated{TaskID: taskID})
	return nil
}

// PollVideo checks the generation task once. It transitions on a
// terminal status and leaves the state alone while the task is still
// running.
func (a *StudentAgent) PollVideo(ctx context.Context) error {
	if a.state.Phase != PhaseVideoRequested || a.state.VideoTaskID == "" {
		return ErrNoVideoTask
	}
	st, err := a.video.Status(ctx, a.state.VideoTaskID)
	if err != nil {
		return err
	}
	switch st.Status {
	case video.StatusDone:
		a.state = Apply(a.state, VideoDone{URL: st.ResultURL})
	case video.StatusError:
		a.state = Apply(a.state, VideoFailed{Reason: "generation failed"})
	}
	return nil
}

// Leave resets the session. Persisted answers are kept.
func (a *StudentAgent) Leave() {
	a.state = Apply(a.state, Left{})
}

// ClassWriter is the store surface the teacher session needs.
type ClassWriter interface {
	CreateClassroom(classCode, teacherID, question string) bool
	UpdateClassroomQuestion(classCode, question string) bool
	CloseClassroom(classCode string) bool
}

// TeacherSession manages the teacher's ordered question list and the
// active-question pointer, propagating the active question to the
// classroom whenever it changes.
type TeacherSession struct {
	store ClassWriter

	TeacherID string
	ClassCode string
	Questions []string
	// Current indexes the active question, -1 when none is selected.
	Current int
}

// NewTeacherSession creates a session with a fresh teacher identifier
// and an empty question list.
func NewTeacherSession(store ClassWriter) *TeacherSession {
	return &TeacherSession{
		store:     store,
		TeacherID: ident.NewTeacherID(),
		Current:   -1,
	}
}

// ActiveQuestion returns the currently selected question, or empty.
func (ts *TeacherSession) ActiveQuestion() string {
	if ts.Current < 0 || ts.Current >= len(ts.Questions) {
		return ""
	}
	return ts.Questions[ts.Current]
}

// CreateClass opens a classroom under a fresh short code, retrying on
// a code collision.
func (ts *TeacherSession) CreateClass() error {
	for i := 0; i < joinAttempts; i++ {
		code := ident.NewClassCode()
		if ts.store.CreateClassroom(code, ts.TeacherID, ts.ActiveQuestion()) {
			ts.ClassCode = code
			return nil
		}
	}
	return ErrCodeExhausted
}

// EndClass closes the classroom. Students can no longer join; stored
// history is kept.
func (ts *TeacherSession) EndClass() bool {
	if ts.ClassCode == "" {
		return false
	}
	return ts.store.CloseClassroom(ts.ClassCode)
}

// AddQuestion appends a question. The first question added becomes
// active automatically.
func (ts *TeacherSession) AddQuestion(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyQuestion
	}
	ts.Questions = append(ts.Questions, text)
	if ts.Current < 0 {
		ts.Current = len(ts.Questions) - 1
		ts.propagate()
	}
	return nil
}

// EditQuestion replaces the question at i. Editing the active question
// re-propagates it.
func (ts *TeacherSession) EditQuestion(i int, text string) error {
	if i < 0 || i >= len(ts.Questions) {
		return ErrBadIndex
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyQuestion
	}
	ts.Questions[i] = text
	if i == ts.Current {
		ts.propagate()
	}
	return nil
}

// DeleteQuestion removes the question at i. When the active question
// is deleted, the question now occupying its slot becomes active, or
// the new last one when the tail was deleted.
func (ts *TeacherSession) DeleteQuestion(i int) error {
	if i < 0 || i >= len(ts.Questions) {
		return ErrBadIndex
	}
	ts.Questions = append(ts.Questions[:i], ts.Questions[i+1:]...)

	switch {
	case ts.Current == i:
		if len(ts.Questions) == 0 {
			ts.Current = -1
		} else if ts.Current >= len(ts.Questions) {
			ts.Current = len(ts.Questions) - 1
		}
		ts.propagate()
	case ts.Current > i:
		ts.Current--
	}
	return nil
}

// MoveUp swaps the question at i with its predecessor. The active
// pointer follows the question it referred to.
func (ts *TeacherSession) MoveUp(i int) error {
	if i <= 0 || i >= len(ts.Questions) {
		return ErrBadIndex
	}
	ts.Questions[i-1], ts.Questions[i] = ts.Questions[i], ts.Questions[i-1]
	switch ts.Current {
	case i:
		ts.Current = i - 1
	case i - 1:
		ts.Current = i
	}
	return nil
}

// MoveDown swaps the question at i with its successor. The active
// pointer follows the question it referred to.
func (ts *TeacherSession) MoveDown(i int) error {
	if i < 0 || i >= len(ts.Questions)-1 {
		return ErrBadIndex
	}
	ts.Questions[i], ts.Questions[i+1] = ts.Questions[i+1], ts.Questions[i]
	switch ts.Current {
	case i:
		ts.Current = i + 1
	case i + 1:
		ts.Current = i
	}
	return nil
}

// Select makes the question at i active and propagates it.
func (ts *TeacherSession) Select(i int) error {
	if i < 0 || i >= len(ts.Questions) {
		return ErrBadIndex
	}
	ts.Current = i
	ts.propagate()
	return nil
}

// Next advances to the following question when there is one.
func (ts *TeacherSession) Next() error {
	if ts.Current+1 >= len(ts.Questions) {
		return ErrBadIndex
	}
	return ts.Select(ts.Current + 1)
}

// Prev steps back to the preceding question when there is one.
func (ts *TeacherSession) Prev() error {
	if ts.Current <= 0 {
		return ErrBadIndex
	}
	return ts.Select(ts.Current - 1)
}

func (ts *TeacherSession) propagate() {
	if ts.ClassCode == "" {
		return
	}
	ts.store.UpdateClassroomQuestion(ts.ClassCode, ts.ActiveQuestion())
}
