package model

import "time"

// ClassStatus represents the lifecycle status of a classroom.
type ClassStatus string

const (
	// StatusActive means the classroom accepts student joins.
	StatusActive ClassStatus = "active"
	// StatusClosed means the classroom no longer accepts joins.
	// History (students, answers) is kept.
	StatusClosed ClassStatus = "closed"
)

// Classroom is a teacher-owned session scoped by a short code.
// Question holds the currently mirrored discussion question; empty
// means the teacher has not pushed one yet.
type Classroom struct {
	ID        int64       `json:"id"`
	ClassCode string      `json:"class_code"`
	CreatedAt time.Time   `json:"created_at"`
	TeacherID string      `json:"teacher_id"`
	Question  string      `json:"question"`
	Status    ClassStatus `json:"status"`
}

// Student is a classroom participant. Rows are write-once at join time.
type Student struct {
	ID        int64     `json:"id"`
	StudentID string    `json:"student_id"`
	ClassCode string    `json:"class_code"`
	JoinedAt  time.Time `json:"joined_at"`
}

// Answer is a stored submission. Rows are append-only: a resubmission
// creates a new row, never an update. Suggestions is the serialized
// form; AnswerView carries the deserialized one.
type Answer struct {
	ID          int64     `json:"id"`
	StudentID   string    `json:"student_id"`
	ClassCode   string    `json:"class_code"`
	Question    string    `json:"question"`
	Answer      string    `json:"answer"`
	Score       float64   `json:"score"`
	Feedback    string    `json:"feedback"`
	Suggestions string    `json:"suggestions"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// AnswerView is an answer as read back for display, with suggestions
// deserialized and re-validated.
type AnswerView struct {
	StudentID   string    `json:"student_id"`
	Answer      string    `json:"answer"`
	Score       float64   `json:"score"`
	Feedback    string    `json:"feedback"`
	Suggestions []string  `json:"suggestions"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// StudentView is a student row as shown in the teacher's roster.
type StudentView struct {
	StudentID string    `json:"student_id"`
	JoinedAt  time.Time `json:"joined_at"`
}

// ServerConfig holds runtime parameters set via CLI flags.
type ServerConfig struct {
	Addr          string
	Lang          string
	VideoImageURL string // default talking-head image for video generation
	VideoVoiceID  string // default TTS voice
}
