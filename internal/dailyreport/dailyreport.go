// Package dailyreport persists the rolling window of daily standup entries.
package dailyreport

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"leadboard/internal/domain"
	"leadboard/internal/logging"
	"leadboard/internal/store"
)

const Collection = "dailyReports"

const (
	DefaultRetentionDays = 3
	DefaultMaxEntries    = 3
)

type Options struct {
	Now func() time.Time
	// Location anchors calendar days. Defaults to time.Local.
	Location      *time.Location
	RetentionDays int
	MaxEntries    int
	Logger        *zap.Logger
}

type Repo struct {
	store         store.Store
	now           func() time.Time
	loc           *time.Location
	retentionDays int
	maxEntries    int
	log           *zap.Logger
}

func New(st store.Store, opts Options) *Repo {
	r := &Repo{
		store:         st,
		now:           opts.Now,
		loc:           opts.Location,
		retentionDays: opts.RetentionDays,
		maxEntries:    opts.MaxEntries,
		log:           logging.OrNop(opts.Logger).Named("daily"),
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.loc == nil {
		r.loc = time.Local
	}
	if r.retentionDays <= 0 {
		r.retentionDays = DefaultRetentionDays
	}
	if r.maxEntries <= 0 {
		r.maxEntries = DefaultMaxEntries
	}
	return r
}

// DocID is the deterministic entry id for a user and target date.
func DocID(userID, targetDate string) string {
	return userID + "_" + strings.Join(strings.Fields(targetDate), "")
}

// Today returns the current calendar day in the repository location.
func (r *Repo) Today() time.Time {
	now := r.now().In(r.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, r.loc)
}

// Tomorrow is the default target date for newly logged work.
func (r *Repo) Tomorrow() time.Time { return r.Today().AddDate(0, 0, 1) }

// Location returns the calendar location used for target dates.
func (r *Repo) Location() *time.Location { return r.loc }

func requireUser(userID string) error {
	if userID == "" {
		return domain.ErrUnauthenticated
	}
	return nil
}

type dated struct {
	entry  domain.DailyEntry
	target time.Time
}

// Load returns the user's kept entries, newest target date first. Entries whose target date
// is older than the retention horizon, and entries beyond the max count, are deleted in one
// batch before returning.
func (r *Repo) Load(ctx context.Context, userID string) ([]domain.DailyEntry, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	docs, err := r.store.Query(ctx, Collection, store.Eq("userId", userID))
	if err != nil {
		return nil, fmt.Errorf("load daily entries: %w", err)
	}
	cutoff := r.now().In(r.loc).AddDate(0, 0, -r.retentionDays)

	var (
		kept  []dated
		stale []string
	)
	for _, doc := range docs {
		var e domain.DailyEntry
		if err := doc.DataTo(&e); err != nil {
			r.log.Warn("drop undecodable daily entry", zap.String("id", doc.ID()), zap.Error(err))
			stale = append(stale, doc.ID())
			continue
		}
		e.ID = doc.ID()
		target, err := domain.ParseDate(e.TargetDate, r.loc)
		if err != nil || target.Before(cutoff) {
			stale = append(stale, e.ID)
			continue
		}
		kept = append(kept, dated{entry: e, target: target})
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].target.After(kept[j].target) })
	if len(kept) > r.maxEntries {
		for _, d := range kept[r.maxEntries:] {
			stale = append(stale, d.entry.ID)
		}
		kept = kept[:r.maxEntries]
	}

	if len(stale) > 0 {
		ops := make([]store.Op, 0, len(stale))
		for _, id := range stale {
			ops = append(ops, store.DeleteOp(Collection, id))
		}
		if err := r.store.Batch(ctx, ops); err != nil {
			return nil, fmt.Errorf("prune daily entries: %w", err)
		}
		r.log.Debug("pruned daily entries", zap.String("user", userID), zap.Int("count", len(stale)))
	}

	out := make([]domain.DailyEntry, 0, len(kept))
	for _, d := range kept {
		out = append(out, d.entry)
	}
	return out, nil
}

// Save upserts the entry keyed by (userID, targetDate), then prunes like Load.
func (r *Repo) Save(ctx context.Context, userID string, e domain.DailyEntry) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if _, err := domain.ParseDate(e.TargetDate, r.loc); err != nil {
		return fmt.Errorf("target date %q: %w", e.TargetDate, domain.ErrInvalid)
	}
	if e.ReportItems == nil {
		e.ReportItems = []domain.ReportItem{}
	}
	if e.Comments == nil {
		e.Comments = []domain.Comment{}
	}
	id := DocID(userID, e.TargetDate)
	err := r.store.Set(ctx, Collection, id, map[string]any{
		"userId":               userID,
		"targetDate":           e.TargetDate,
		"workDate":             e.WorkDate,
		"reportItems":          e.ReportItems,
		"comments":             e.Comments,
		"includeTasksInReport": e.IncludeTasksInReport,
		"updatedAt":            store.ServerTimestamp,
	}, true)
	if err != nil {
		return fmt.Errorf("save daily entry %s: %w", id, err)
	}
	_, err = r.Load(ctx, userID)
	return err
}

// Get returns one entry, or nil when it is absent or unreadable.
func (r *Repo) Get(ctx context.Context, userID, targetDate string) (*domain.DailyEntry, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	doc, err := r.store.Get(ctx, Collection, DocID(userID, targetDate))
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrPermissionDenied) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get daily entry: %w", err)
	}
	var e domain.DailyEntry
	if err := doc.DataTo(&e); err != nil {
		return nil, err
	}
	e.ID = doc.ID()
	return &e, nil
}

type CompletedTask struct {
	DemandCode string
	TaskTitle  string
	Sistema    string
}

// AddCompletedTask logs a finished task into tomorrow's entry. A task already logged for the
// same demand is ignored.
func (r *Repo) AddCompletedTask(ctx context.Context, userID string, t CompletedTask) error {
	entries, err := r.Load(ctx, userID)
	if err != nil {
		return err
	}
	target := domain.FormatDate(r.Tomorrow())
	work := domain.FormatDate(r.Today())

	var entry *domain.DailyEntry
	for i := range entries {
		if entries[i].TargetDate == target {
			entry = &entries[i]
			break
		}
	}
	if entry == nil {
		entry = &domain.DailyEntry{
			TargetDate:           target,
			WorkDate:             work,
			IncludeTasksInReport: true,
		}
	}
	for _, it := range entry.ReportItems {
		if it.DemandCode == t.DemandCode && it.Text == t.TaskTitle {
			return nil
		}
	}
	if entry.WorkDate == "" {
		entry.WorkDate = work
	}
	entry.ReportItems = append(entry.ReportItems, domain.ReportItem{
		ID:         uuid.NewString(),
		Text:       t.TaskTitle,
		Sistema:    t.Sistema,
		DemandCode: t.DemandCode,
	})
	return r.Save(ctx, userID, *entry)
}

// entryFor returns the stored entry for targetDate or a fresh one whose work date is the day before.
func (r *Repo) entryFor(ctx context.Context, userID, targetDate string) (domain.DailyEntry, error) {
	e, err := r.Get(ctx, userID, targetDate)
	if err != nil {
		return domain.DailyEntry{}, err
	}
	if e != nil {
		return *e, nil
	}
	target, err := domain.ParseDate(targetDate, r.loc)
	if err != nil {
		return domain.DailyEntry{}, fmt.Errorf("target date %q: %w", targetDate, domain.ErrInvalid)
	}
	return domain.DailyEntry{
		TargetDate:           targetDate,
		WorkDate:             domain.FormatDate(target.AddDate(0, 0, -1)),
		IncludeTasksInReport: true,
	}, nil
}

func (r *Repo) AddComment(ctx context.Context, userID, targetDate, text string) (domain.Comment, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Comment{}, fmt.Errorf("comment text is required: %w", domain.ErrInvalid)
	}
	e, err := r.entryFor(ctx, userID, targetDate)
	if err != nil {
		return domain.Comment{}, err
	}
	c := domain.Comment{ID: uuid.NewString(), Text: strings.TrimSpace(text)}
	e.Comments = append(e.Comments, c)
	if err := r.Save(ctx, userID, e); err != nil {
		return domain.Comment{}, err
	}
	return c, nil
}

func (r *Repo) RemoveComment(ctx context.Context, userID, targetDate, commentID string) error {
	e, err := r.Get(ctx, userID, targetDate)
	if err != nil {
		return err
	}
	if e == nil {
		return fmt.Errorf("daily entry %s: %w", targetDate, domain.ErrNotFound)
	}
	for i, c := range e.Comments {
		if c.ID == commentID {
			e.Comments = append(e.Comments[:i], e.Comments[i+1:]...)
			return r.Save(ctx, userID, *e)
		}
	}
	return fmt.Errorf("comment %s: %w", commentID, domain.ErrNotFound)
}

func (r *Repo) SetIncludeTasks(ctx context.Context, userID, targetDate string, include bool) error {
	e, err := r.entryFor(ctx, userID, targetDate)
	if err != nil {
		return err
	}
	e.IncludeTasksInReport = include
	return r.Save(ctx, userID, e)
}
