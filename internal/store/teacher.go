package store

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/evalia/evalia/internal/model"
)

// CreateTeacher inserts a new teacher account.
func (s *Store) CreateTeacher(t model.Teacher) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO teachers (label, code_hash, active, created_at) VALUES (?, ?, ?, ?)`,
		t.Label, t.CodeHash, t.Active, time.Now(),
	)
	if err != nil {
		slog.Error("failed to create teacher", "label", t.Label, "error", err)
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	slog.Info("created teacher account", "id", id, "label", t.Label)
	return id, nil
}

// GetTeacherByID returns a teacher account by ID, or nil when absent.
func (s *Store) GetTeacherByID(id int64) (*model.Teacher, error) {
	var t model.Teacher
	err := s.db.QueryRow(
		`SELECT id, label, code_hash, active, created_at FROM teachers WHERE id = ?`, id,
	).Scan(&t.ID, &t.Label, &t.CodeHash, &t.Active, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTeachers returns all teacher accounts.
func (s *Store) ListTeachers() ([]model.Teacher, error) {
	rows, err := s.db.Query(
		`SELECT id, label, code_hash, active, created_at FROM teachers ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var teachers []model.Teacher
	for rows.Next() {
		var t model.Teacher
		if err := rows.Scan(&t.ID, &t.Label, &t.CodeHash, &t.Active, &t.CreatedAt); err != nil {
			return nil, err
		}
		teachers = append(teachers, t)
	}
	return teachers, rows.Err()
}

// TeacherCount returns the total number of teacher accounts.
func (s *Store) TeacherCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM teachers`).Scan(&count)
	return count, err
}
