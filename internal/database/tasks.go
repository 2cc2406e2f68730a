package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/taskboard-app/taskboard/internal/models"
)

// TaskRepository handles task database operations
type TaskRepository struct {
	db *DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, user_id, project_id, assignee_id, context_id, title, description,
		status, priority, eisenhower_quadrant, kanban_column, kanban_order,
		is_blocked, blocked_reason, tags, due_at, remind_at, completed_at, created_at, updated_at`

// Create inserts a task at the end of its kanban column. The sibling set is
// locked before the slot is computed, the same lock MoveInColumn takes, so
// creates serialize against concurrent creates and moves in the column. When
// two writers still race for one slot (an empty column has no rows to lock)
// the deferred board-slot constraint rejects one at commit and the caller
// gets ErrConflict to retry on.
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.KanbanColumn == "" {
		task.KanbanColumn = models.DefaultKanbanColumn
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx,
		`SELECT id FROM tasks
		 WHERE user_id = $1 AND project_id IS NOT DISTINCT FROM $2 AND kanban_column = $3
		 ORDER BY id
		 FOR UPDATE`,
		task.UserID, task.ProjectID, task.KanbanColumn,
	)
	if err != nil {
		if isSerializationError(err) {
			return fmt.Errorf("create task: %w", ErrConflict)
		}
		return fmt.Errorf("failed to lock siblings: %w", err)
	}

	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(kanban_order) + 1, 0) FROM tasks
		 WHERE user_id = $1 AND project_id IS NOT DISTINCT FROM $2 AND kanban_column = $3`,
		task.UserID, task.ProjectID, task.KanbanColumn,
	).Scan(&task.KanbanOrder)
	if err != nil {
		return fmt.Errorf("failed to pick board slot: %w", err)
	}

	query := `
		INSERT INTO tasks (id, user_id, project_id, assignee_id, context_id, title, description,
			status, priority, eisenhower_quadrant, kanban_column, kanban_order,
			is_blocked, blocked_reason, tags, due_at, remind_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $18)
		RETURNING created_at, updated_at
	`

	now := time.Now()
	err = tx.QueryRowContext(ctx, query,
		task.ID,
		task.UserID,
		task.ProjectID,
		task.AssigneeID,
		task.ContextID,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		task.EisenhowerQuadrant,
		task.KanbanColumn,
		task.KanbanOrder,
		task.IsBlocked,
		task.BlockedReason,
		pq.Array(task.Tags),
		task.DueAt,
		task.RemindAt,
		now,
	).Scan(&task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isSerializationError(err) || isUniqueViolation(err) {
			return fmt.Errorf("create task: %w", ErrConflict)
		}
		return fmt.Errorf("failed to commit create: %w", err)
	}
	return nil
}

func scanTask(row interface{ Scan(...any) error }) (*models.Task, error) {
	task := &models.Task{}
	var projectID, assigneeID, contextID uuid.NullUUID
	var description, blockedReason sql.NullString
	var quadrant sql.NullString
	var dueAt, remindAt, completedAt sql.NullTime
	var tags pq.StringArray

	err := row.Scan(
		&task.ID,
		&task.UserID,
		&projectID,
		&assigneeID,
		&contextID,
		&task.Title,
		&description,
		&task.Status,
		&task.Priority,
		&quadrant,
		&task.KanbanColumn,
		&task.KanbanOrder,
		&task.IsBlocked,
		&blockedReason,
		&tags,
		&dueAt,
		&remindAt,
		&completedAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Description = description.String
	task.BlockedReason = blockedReason.String
	task.Tags = tags
	if projectID.Valid {
		v := projectID.UUID
		task.ProjectID = &v
	}
	if assigneeID.Valid {
		v := assigneeID.UUID
		task.AssigneeID = &v
	}
	if contextID.Valid {
		v := contextID.UUID
		task.ContextID = &v
	}
	if quadrant.Valid {
		q := models.EisenhowerQuadrant(quadrant.String)
		task.EisenhowerQuadrant = &q
	}
	if dueAt.Valid {
		task.DueAt = &dueAt.Time
	}
	if remindAt.Valid {
		task.RemindAt = &remindAt.Time
	}
	if completedAt.Valid {
		task.CompletedAt = &completedAt.Time
	}
	return task, nil
}

// GetByID retrieves a task by ID
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// TaskFilter narrows List results. Nil fields are ignored.
type TaskFilter struct {
	Status    *models.TaskStatus
	ProjectID *uuid.UUID
	Priority  *models.Priority
	Quadrant  *models.EisenhowerQuadrant
	Column    *string
}

// List retrieves tasks for a user, optionally filtered
func (r *TaskRepository) List(ctx context.Context, userID uuid.UUID, filter TaskFilter) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1`
	args := []any{userID}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.ProjectID != nil {
		args = append(args, *filter.ProjectID)
		query += fmt.Sprintf(" AND project_id = $%d", len(args))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		query += fmt.Sprintf(" AND priority = $%d", len(args))
	}
	if filter.Quadrant != nil {
		args = append(args, *filter.Quadrant)
		query += fmt.Sprintf(" AND eisenhower_quadrant = $%d", len(args))
	}
	if filter.Column != nil {
		args = append(args, *filter.Column)
		query += fmt.Sprintf(" AND kanban_column = $%d", len(args))
	}

	query += " ORDER BY kanban_column, kanban_order, created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return tasks, nil
}

// Update persists all mutable fields of a task
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	query := `
		UPDATE tasks
		SET title = $2, description = $3, status = $4, priority = $5,
			eisenhower_quadrant = $6, is_blocked = $7, blocked_reason = $8,
			tags = $9, due_at = $10, remind_at = $11, completed_at = $12, updated_at = $13
		WHERE id = $1
		RETURNING updated_at
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		task.EisenhowerQuadrant,
		task.IsBlocked,
		task.BlockedReason,
		pq.Array(task.Tags),
		task.DueAt,
		task.RemindAt,
		task.CompletedAt,
		now,
	).Scan(&task.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("task %s: %w", task.ID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return nil
}

// Delete removes a task and closes the gap it leaves in its kanban column
func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var userID uuid.UUID
	var projectID uuid.NullUUID
	var column string
	var order int
	err = tx.QueryRowContext(ctx,
		`SELECT user_id, project_id, kanban_column, kanban_order FROM tasks WHERE id = $1 FOR UPDATE`,
		id,
	).Scan(&userID, &projectID, &column, &order)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to lock task: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE tasks SET kanban_order = kanban_order - 1
		 WHERE user_id = $1 AND project_id IS NOT DISTINCT FROM $2
		   AND kanban_column = $3 AND kanban_order > $4`,
		userID, projectID, column, order,
	)
	if err != nil {
		return fmt.Errorf("failed to renumber siblings: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isSerializationError(err) || isUniqueViolation(err) {
			return fmt.Errorf("delete task: %w", ErrConflict)
		}
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

// MoveInColumn moves a task to the given column at a 0-based position among
// its siblings, shifting displaced siblings by one. The whole renumbering
// runs in one transaction under row locks; concurrent moves on the same
// column serialize or fail with ErrConflict.
func (r *TaskRepository) MoveInColumn(ctx context.Context, id uuid.UUID, column string, position int) (*models.Task, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var userID uuid.UUID
	var projectID uuid.NullUUID
	var oldColumn string
	var oldOrder int
	err = tx.QueryRowContext(ctx,
		`SELECT user_id, project_id, kanban_column, kanban_order FROM tasks WHERE id = $1 FOR UPDATE`,
		id,
	).Scan(&userID, &projectID, &oldColumn, &oldOrder)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock task: %w", err)
	}

	// Lock every sibling in the affected columns before renumbering
	_, err = tx.ExecContext(ctx,
		`SELECT id FROM tasks
		 WHERE user_id = $1 AND project_id IS NOT DISTINCT FROM $2
		   AND kanban_column IN ($3, $4)
		 ORDER BY id
		 FOR UPDATE`,
		userID, projectID, oldColumn, column,
	)
	if err != nil {
		if isSerializationError(err) {
			return nil, fmt.Errorf("move task: %w", ErrConflict)
		}
		return nil, fmt.Errorf("failed to lock siblings: %w", err)
	}

	var destCount int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks
		 WHERE user_id = $1 AND project_id IS NOT DISTINCT FROM $2 AND kanban_column = $3 AND id <> $4`,
		userID, projectID, column, id,
	).Scan(&destCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count destination siblings: %w", err)
	}

	position = clampPosition(position, destCount)

	if column == oldColumn {
		if lo, hi, delta, ok := shiftBounds(oldOrder, position); ok {
			_, err = tx.ExecContext(ctx,
				`UPDATE tasks SET kanban_order = kanban_order + $7
				 WHERE user_id = $1 AND project_id IS NOT DISTINCT FROM $2
				   AND kanban_column = $3 AND kanban_order >= $4 AND kanban_order <= $5 AND id <> $6`,
				userID, projectID, column, lo, hi, id, delta,
			)
			if err != nil {
				return nil, fmt.Errorf("failed to shift siblings: %w", err)
			}
		}
	} else {
		// Close the gap in the source column
		_, err = tx.ExecContext(ctx,
			`UPDATE tasks SET kanban_order = kanban_order - 1
			 WHERE user_id = $1 AND project_id IS NOT DISTINCT FROM $2
			   AND kanban_column = $3 AND kanban_order > $4`,
			userID, projectID, oldColumn, oldOrder,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to close source gap: %w", err)
		}

		// Open a gap in the destination column
		_, err = tx.ExecContext(ctx,
			`UPDATE tasks SET kanban_order = kanban_order + 1
			 WHERE user_id = $1 AND project_id IS NOT DISTINCT FROM $2
			   AND kanban_column = $3 AND kanban_order >= $4`,
			userID, projectID, column, position,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to open destination gap: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE tasks SET kanban_column = $2, kanban_order = $3, updated_at = $4 WHERE id = $1`,
		id, column, position, time.Now(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to move task: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isSerializationError(err) || isUniqueViolation(err) {
			return nil, fmt.Errorf("move task: %w", ErrConflict)
		}
		return nil, fmt.Errorf("failed to commit move: %w", err)
	}

	return r.GetByID(ctx, id)
}

// ListWithDueWindows returns active tasks whose derived reminder time falls
// at or before until. leadTime is the default offset applied when a task has
// a due date but no explicit remind time. Used by the scheduler's horizon scan.
func (r *TaskRepository) ListWithDueWindows(ctx context.Context, until time.Time, leadTime time.Duration) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + `
		FROM tasks
		WHERE status NOT IN ('done', 'archived')
		  AND (remind_at IS NOT NULL OR due_at IS NOT NULL)
		  AND (COALESCE(remind_at, due_at - $2::interval) <= $1 OR due_at <= $1)
		ORDER BY COALESCE(remind_at, due_at)`

	interval := fmt.Sprintf("%d seconds", int(leadTime.Seconds()))
	rows, err := r.db.QueryContext(ctx, query, until, interval)
	if err != nil {
		return nil, fmt.Errorf("failed to query due tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating due tasks: %w", err)
	}

	return tasks, nil
}
