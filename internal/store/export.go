package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Zhangboyu-Ian/Ai-classroom/internal/model"
)

// ExportCSV writes the classroom data join as CSV. An empty classroom
// produces a header-only file, not an error.
func (s *Store) ExportCSV(w io.Writer, classCode string) error {
	rows := s.GetClassroomData(classCode)

	cw := csv.NewWriter(w)
	header := []string{"student_id", "question", "answer", "score", "feedback", "suggestions", "submitted_at"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			r.StudentID,
			r.Question,
			r.Answer,
			strconv.FormatFloat(r.Score, 'f', -1, 64),
			r.Feedback,
			strings.Join(r.Suggestions, "; "),
			r.SubmittedAt.Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportClass builds the JSON export structure for a classroom, or nil
// if the classroom does not exist.
func (s *Store) ExportClass(classCode string) *model.ClassExport {
	info := s.GetClassroomInfo(classCode)
	if info == nil {
		return nil
	}
	return &model.ClassExport{
		ClassCode:  info.ClassCode,
		TeacherID:  info.TeacherID,
		CreatedAt:  info.CreatedAt,
		Status:     info.Status,
		ExportedAt: time.Now(),
		Rows:       s.GetClassroomData(classCode),
	}
}
