// Package store owns all durable classroom state. Every read and
// write goes through this gateway so the uniqueness and referential
// invariants stay in one place.
//
// Failure semantics: operations catch storage errors, log them, and
// return a neutral value (false, nil, or an empty slice). Callers must
// treat the returned value as the only success signal; nothing at this
// layer panics or propagates raw driver errors.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Zhangboyu-Ian/Ai-classroom/internal/eval"
	"github.com/Zhangboyu-Ian/Ai-classroom/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS classrooms (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		class_code TEXT NOT NULL UNIQUE,
		created_at DATETIME NOT NULL,
		teacher_id TEXT NOT NULL,
		question TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'active'
	);

	CREATE TABLE IF NOT EXISTS students (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		student_id TEXT NOT NULL UNIQUE,
		class_code TEXT NOT NULL,
		joined_at DATETIME NOT NULL,
		FOREIGN KEY (class_code) REFERENCES classrooms(class_code)
	);

	CREATE TABLE IF NOT EXISTS answers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		student_id TEXT NOT NULL,
		class_code TEXT NOT NULL,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		score REAL NOT NULL DEFAULT 0,
		feedback TEXT NOT NULL DEFAULT '',
		suggestions TEXT NOT NULL DEFAULT '[]',
		submitted_at DATETIME NOT NULL,
		FOREIGN KEY (student_id) REFERENCES students(student_id),
		FOREIGN KEY (class_code) REFERENCES classrooms(class_code)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateClassroom inserts a new active classroom. Returns false if the
// code is already taken (the caller regenerates and retries) or on
// storage error.
func (s *Store) CreateClassroom(classCode, teacherID, question string) bool {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM classrooms WHERE class_code = ?`, classCode).Scan(&count)
	if err != nil {
		slog.Error("classroom existence check failed", "class_code", classCode, "error", err)
		return false
	}
	if count > 0 {
		slog.Info("classroom code already exists", "class_code", classCode)
		return false
	}

	_, err = s.db.Exec(
		`INSERT INTO classrooms (class_code, created_at, teacher_id, question, status) VALUES (?, ?, ?, ?, ?)`,
		classCode, time.Now(), teacherID, question, model.StatusActive,
	)
	if err != nil {
		slog.Error("failed to create classroom", "class_code", classCode, "error", err)
		return false
	}
	slog.Info("created classroom", "class_code", classCode, "teacher_id", teacherID)
	return true
}

// AddStudent joins a student to a classroom. The existence/status
// check and the insert run in one transaction so a classroom closed
// concurrently cannot admit the student.
func (s *Store) AddStudent(studentID, classCode string) bool {
	tx, err := s.db.Begin()
	if err != nil {
		slog.Error("failed to begin join transaction", "error", err)
		return false
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRow(`SELECT status FROM classrooms WHERE class_code = ?`, classCode).Scan(&status)
	if err == sql.ErrNoRows {
		slog.Info("join rejected: classroom does not exist", "class_code", classCode)
		return false
	}
	if err != nil {
		slog.Error("join status check failed", "class_code", classCode, "error", err)
		return false
	}
	if model.ClassStatus(status) != model.StatusActive {
		slog.Info("join rejected: classroom not active", "class_code", classCode, "status", status)
		return false
	}

	_, err = tx.Exec(
		`INSERT INTO students (student_id, class_code, joined_at) VALUES (?, ?, ?)`,
		studentID, classCode, time.Now(),
	)
	if err != nil {
		slog.Error("failed to insert student", "student_id", studentID, "class_code", classCode, "error", err)
		return false
	}
	if err := tx.Commit(); err != nil {
		slog.Error("join commit failed", "student_id", studentID, "error", err)
		return false
	}
	slog.Info("student joined classroom", "student_id", studentID, "class_code", classCode)
	return true
}

// UpdateClassroomQuestion overwrites the mirrored current question.
// Idempotent; returns false only on storage error.
func (s *Store) UpdateClassroomQuestion(classCode, question string) bool {
	_, err := s.db.Exec(`UPDATE classrooms SET question = ? WHERE class_code = ?`, question, classCode)
	if err != nil {
		slog.Error("failed to update classroom question", "class_code", classCode, "error", err)
		return false
	}
	return true
}

// CloseClassroom transitions a classroom to closed. Terminal for
// student joins; history is kept.
func (s *Store) CloseClassroom(classCode string) bool {
	_, err := s.db.Exec(`UPDATE classrooms SET status = ? WHERE class_code = ?`, model.StatusClosed, classCode)
	if err != nil {
		slog.Error("failed to close classroom", "class_code", classCode, "error", err)
		return false
	}
	return true
}

// GetClassroomInfo returns a snapshot of the classroom row, or nil if
// the code is unknown. This is the primitive students poll to detect a
// new question.
func (s *Store) GetClassroomInfo(classCode string) *model.Classroom {
	var c model.Classroom
	err := s.db.QueryRow(
		`SELECT id, class_code, created_at, teacher_id, question, status FROM classrooms WHERE class_code = ?`,
		classCode,
	).Scan(&c.ID, &c.ClassCode, &c.CreatedAt, &c.TeacherID, &c.Question, &c.Status)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		slog.Error("failed to read classroom", "class_code", classCode, "error", err)
		return nil
	}
	return &c
}

// SaveAnswer appends a new answer row with its normalized evaluation.
// Resubmission of the same question by the same student creates a new
// row, never an update.
func (s *Store) SaveAnswer(studentID, classCode, question, answer string, evaluation eval.Result) bool {
	suggestions, err := json.Marshal(evaluation.Suggestions)
	if err != nil {
		slog.Error("failed to serialize suggestions", "student_id", studentID, "error", err)
		return false
	}
	_, err = s.db.Exec(
		`INSERT INTO answers (student_id, class_code, question, answer, score, feedback, suggestions, submitted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		studentID, classCode, question, answer,
		evaluation.Score, evaluation.Feedback, string(suggestions), time.Now(),
	)
	if err != nil {
		slog.Error("failed to save answer", "student_id", studentID, "class_code", classCode, "error", err)
		return false
	}
	return true
}

// GetAnswersForQuestion returns all answers for a question in a
// classroom, newest first. Stored suggestions are deserialized and
// passed through the same filter applied to fresh AI output; malformed
// payloads become an empty list rather than an error.
func (s *Store) GetAnswersForQuestion(classCode, question string) []model.AnswerView {
	rows, err := s.db.Query(
		`SELECT s.student_id, a.answer, a.score, a.feedback, a.suggestions, a.submitted_at
		 FROM answers a
		 JOIN students s ON a.student_id = s.student_id
		 WHERE a.class_code = ? AND a.question = ?
		 ORDER BY a.submitted_at DESC`,
		classCode, question,
	)
	if err != nil {
		slog.Error("failed to query answers", "class_code", classCode, "error", err)
		return []model.AnswerView{}
	}
	defer rows.Close()

	answers := []model.AnswerView{}
	for rows.Next() {
		var v model.AnswerView
		var raw string
		if err := rows.Scan(&v.StudentID, &v.Answer, &v.Score, &v.Feedback, &raw, &v.SubmittedAt); err != nil {
			slog.Error("failed to scan answer row", "error", err)
			return []model.AnswerView{}
		}
		v.Suggestions = decodeSuggestions(raw)
		answers = append(answers, v)
	}
	if err := rows.Err(); err != nil {
		slog.Error("answer row iteration failed", "error", err)
		return []model.AnswerView{}
	}
	return answers
}

// GetClassroomStudents returns the roster for a classroom.
func (s *Store) GetClassroomStudents(classCode string) []model.StudentView {
	rows, err := s.db.Query(
		`SELECT student_id, joined_at FROM students WHERE class_code = ? ORDER BY joined_at`,
		classCode,
	)
	if err != nil {
		slog.Error("failed to query students", "class_code", classCode, "error", err)
		return []model.StudentView{}
	}
	defer rows.Close()

	students := []model.StudentView{}
	for rows.Next() {
		var v model.StudentView
		if err := rows.Scan(&v.StudentID, &v.JoinedAt); err != nil {
			slog.Error("failed to scan student row", "error", err)
			return []model.StudentView{}
		}
		students = append(students, v)
	}
	if err := rows.Err(); err != nil {
		slog.Error("student row iteration failed", "error", err)
		return []model.StudentView{}
	}
	return students
}

// GetClassroomData returns the export join of students and answers
// ordered by submission time. Empty result, not an error, when the
// classroom has no data.
func (s *Store) GetClassroomData(classCode string) []model.ExportRow {
	rows, err := s.db.Query(
		`SELECT s.student_id, a.question, a.answer, a.score, a.feedback, a.suggestions, a.submitted_at
		 FROM answers a
		 JOIN students s ON a.student_id = s.student_id
		 WHERE a.class_code = ?
		 ORDER BY a.submitted_at`,
		classCode,
	)
	if err != nil {
		slog.Error("failed to query classroom data", "class_code", classCode, "error", err)
		return []model.ExportRow{}
	}
	defer rows.Close()

	data := []model.ExportRow{}
	for rows.Next() {
		var r model.ExportRow
		var raw string
		if err := rows.Scan(&r.StudentID, &r.Question, &r.Answer, &r.Score, &r.Feedback, &raw, &r.SubmittedAt); err != nil {
			slog.Error("failed to scan export row", "error", err)
			return []model.ExportRow{}
		}
		r.Suggestions = decodeSuggestions(raw)
		data = append(data, r)
	}
	if err := rows.Err(); err != nil {
		slog.Error("export row iteration failed", "error", err)
		return []model.ExportRow{}
	}
	return data
}

// decodeSuggestions re-validates a stored suggestion payload. A prior
// buggy write must not surface as a parse failure here.
func decodeSuggestions(raw string) []string {
	if raw == "" {
		return []string{}
	}
	var suggestions []string
	if err := json.Unmarshal([]byte(raw), &suggestions); err != nil {
		slog.Warn("malformed stored suggestions", "raw", raw, "error", err)
		return []string{}
	}
	clean := eval.CleanSuggestions(suggestions)
	if len(clean) > 3 {
		clean = clean[:3]
	}
	if clean == nil {
		return []string{}
	}
	return clean
}
