package model

import "time"

// ExportRow is one line of the classroom export: a join of students
// and answers ordered by submission time.
type ExportRow struct {
	StudentID   string    `json:"student_id"`
	Question    string    `json:"question"`
	Answer      string    `json:"answer"`
	Score       float64   `json:"score"`
	Feedback    string    `json:"feedback"`
	Suggestions []string  `json:"suggestions"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// ClassExport is the top-level JSON structure for classroom export.
type ClassExport struct {
	ClassCode  string      `json:"class_code"`
	TeacherID  string      `json:"teacher_id"`
	CreatedAt  time.Time   `json:"created_at"`
	Status     ClassStatus `json:"status"`
	ExportedAt time.Time   `json:"exported_at"`
	Rows       []ExportRow `json:"rows"`
}
