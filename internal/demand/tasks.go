package demand

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"leadboard/internal/domain"
	"leadboard/internal/store"
)

func (r *Repo) AddTask(ctx context.Context, demandID, title string) (domain.Task, error) {
	return r.AddTaskWithLink(ctx, demandID, title, "")
}

// AddTaskWithLink appends a task at max(order)+1.
func (r *Repo) AddTaskWithLink(ctx context.Context, demandID, title, link string) (domain.Task, error) {
	d, err := r.lookup(demandID)
	if err != nil {
		return domain.Task{}, err
	}
	if strings.TrimSpace(title) == "" {
		return domain.Task{}, fmt.Errorf("task title is required: %w", domain.ErrInvalid)
	}
	t := domain.Task{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(title),
		Order:     d.NextTaskOrder(),
		CreatedAt: r.now().UTC(),
		Link:      strings.TrimSpace(link),
	}
	d.Tasks = append(d.Tasks, t)
	if err := r.write(ctx, demandID, map[string]any{"tasks": d.Tasks}); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

func (r *Repo) lookupTask(demandID, taskID string) (domain.Demand, int, error) {
	d, err := r.lookup(demandID)
	if err != nil {
		return domain.Demand{}, -1, err
	}
	idx := d.TaskIndex(taskID)
	if idx < 0 {
		return domain.Demand{}, -1, fmt.Errorf("task %s in demand %s: %w", taskID, demandID, domain.ErrNotFound)
	}
	return d, idx, nil
}

// TaskPatch edits one task. In-progress state is only changed through SetTaskInProgress.
type TaskPatch struct {
	Title     *string
	Completed *bool
	Order     *int
	Link      *string
}

func (r *Repo) UpdateTask(ctx context.Context, demandID, taskID string, p TaskPatch) error {
	d, idx, err := r.lookupTask(demandID, taskID)
	if err != nil {
		return err
	}
	t := &d.Tasks[idx]
	if p.Title != nil {
		if strings.TrimSpace(*p.Title) == "" {
			return fmt.Errorf("task title is required: %w", domain.ErrInvalid)
		}
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
		if t.Completed {
			t.InProgress = false
		}
	}
	if p.Order != nil {
		t.Order = *p.Order
	}
	if p.Link != nil {
		t.Link = strings.TrimSpace(*p.Link)
	}
	return r.write(ctx, demandID, map[string]any{"tasks": d.Tasks})
}

func (r *Repo) DeleteTask(ctx context.Context, demandID, taskID string) error {
	d, idx, err := r.lookupTask(demandID, taskID)
	if err != nil {
		return err
	}
	d.Tasks = append(d.Tasks[:idx], d.Tasks[idx+1:]...)
	return r.write(ctx, demandID, map[string]any{"tasks": d.Tasks})
}

// ToggleTask flips completed; completing a task also stops it. Returns the task as written.
func (r *Repo) ToggleTask(ctx context.Context, demandID, taskID string) (domain.Task, error) {
	d, idx, err := r.lookupTask(demandID, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	t := &d.Tasks[idx]
	t.Completed = !t.Completed
	if t.Completed {
		t.InProgress = false
	}
	out := *t
	if err := r.write(ctx, demandID, map[string]any{"tasks": d.Tasks}); err != nil {
		return domain.Task{}, err
	}
	return out, nil
}

// SetTaskInProgress toggles the target task and stops every other task of the user. All
// touched demands are written in one atomic batch. Completed tasks cannot be started.
func (r *Repo) SetTaskInProgress(ctx context.Context, demandID, taskID string) error {
	target, idx, err := r.lookupTask(demandID, taskID)
	if err != nil {
		return err
	}
	if target.Tasks[idx].Completed && !target.Tasks[idx].InProgress {
		return fmt.Errorf("task %s is completed: %w", taskID, domain.ErrInvalid)
	}

	var ops []store.Op
	for _, cached := range r.Demands() {
		if cached.ID == demandID {
			continue
		}
		d := clone(cached)
		changed := false
		for i := range d.Tasks {
			if d.Tasks[i].InProgress {
				d.Tasks[i].InProgress = false
				changed = true
			}
		}
		if changed {
			ops = append(ops, store.UpdateOp(Collection, d.ID, map[string]any{
				"tasks":     d.Tasks,
				"updatedAt": store.ServerTimestamp,
			}))
		}
	}
	for i := range target.Tasks {
		if i == idx {
			target.Tasks[i].InProgress = !target.Tasks[i].InProgress
		} else {
			target.Tasks[i].InProgress = false
		}
	}
	ops = append(ops, store.UpdateOp(Collection, demandID, map[string]any{
		"tasks":     target.Tasks,
		"updatedAt": store.ServerTimestamp,
	}))
	if err := r.store.Batch(ctx, ops); err != nil {
		return fmt.Errorf("set task in progress: %w", err)
	}
	return nil
}

type CurrentTask struct {
	Task   domain.Task   `json:"task"`
	Demand domain.Demand `json:"demand"`
}

// CurrentTask returns the first in-progress, incomplete task in cache order, or nil.
func (r *Repo) CurrentTask() *CurrentTask {
	for _, d := range r.Demands() {
		for _, t := range d.Tasks {
			if t.InProgress && !t.Completed {
				return &CurrentTask{Task: t, Demand: clone(d)}
			}
		}
	}
	return nil
}
