package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ProjectModel provides access to the projects table.
type ProjectModel struct {
	db *sqlx.DB
}

// NewProjectModel creates a ProjectModel backed by db.
func NewProjectModel(db *sqlx.DB) *ProjectModel {
	return &ProjectModel{db: db}
}

// GetProjectOrCreateOne returns the project with the given external id,
// creating it lazily on first reference.
func (m *ProjectModel) GetProjectOrCreateOne(ctx context.Context, projectID string) (*Project, error) {
	var project Project
	err := m.db.GetContext(ctx, &project,
		`SELECT id, project_id, created_at FROM projects WHERE project_id = ?`, projectID)
	if err == nil {
		return &project, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("looking up project %q: %w", projectID, err)
	}

	res, err := m.db.ExecContext(ctx,
		`INSERT INTO projects (project_id) VALUES (?)`, projectID)
	if err != nil {
		// A concurrent request may have created it between the two statements.
		var existing Project
		if gerr := m.db.GetContext(ctx, &existing,
			`SELECT id, project_id, created_at FROM projects WHERE project_id = ?`, projectID); gerr == nil {
			return &existing, nil
		}
		return nil, fmt.Errorf("creating project %q: %w", projectID, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading new project id: %w", err)
	}

	err = m.db.GetContext(ctx, &project,
		`SELECT id, project_id, created_at FROM projects WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("re-reading project %q: %w", projectID, err)
	}
	return &project, nil
}

// GetAllProjects returns one page of projects plus the total page count.
// Paging is 1-indexed.
func (m *ProjectModel) GetAllProjects(ctx context.Context, page, pageSize int) ([]Project, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	var total int
	if err := m.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM projects`); err != nil {
		return nil, 0, fmt.Errorf("counting projects: %w", err)
	}

	totalPages := total / pageSize
	if total%pageSize > 0 {
		totalPages++
	}

	var projects []Project
	err := m.db.SelectContext(ctx, &projects,
		`SELECT id, project_id, created_at FROM projects ORDER BY id LIMIT ? OFFSET ?`,
		pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("listing projects: %w", err)
	}
	return projects, totalPages, nil
}
