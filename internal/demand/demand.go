// Package demand mirrors the signed-in user's demands from the document store and owns every
// mutation on them.
package demand

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"leadboard/internal/domain"
	"leadboard/internal/identity"
	"leadboard/internal/logging"
	"leadboard/internal/observable"
	"leadboard/internal/store"
)

const Collection = "demands"

// TaskTemplate seeds a default task on new demands.
type TaskTemplate struct {
	Title string
	Link  string
}

// DefaultTasks are seeded when a demand is created with default tasks and no templates are configured.
var DefaultTasks = []TaskTemplate{
	{Title: "Verificar igualdade das chaves do KeyVault entre ambientes"},
	{Title: "Criar documento de release", Link: "https://dev.azure.com/leadboard/_wiki/wikis/release-notes"},
	{Title: "Equalizar branches"},
}

// Badge colors for the reserved fields.
const (
	ConsultoriaColor = "blue"
	SistemaColor     = "green"
)

// Identity is the slice of identity.Session the repository consumes.
type Identity interface {
	UID() string
	OnAuthStateChange(fn func(*identity.User)) func()
}

// State is what consumers observe: demands sorted by order, and whether the first snapshot
// for the current user is still pending.
type State struct {
	Demands []domain.Demand
	Loading bool
}

type Options struct {
	// Now stamps embedded children (task createdAt). Defaults to time.Now.
	Now          func() time.Time
	DefaultTasks []TaskTemplate
	Logger       *zap.Logger
}

type Repo struct {
	store    store.Store
	identity Identity
	now      func() time.Time
	defaults []TaskTemplate
	log      *zap.Logger

	state observable.Value[State]

	// setMu orders generation checks with state publication.
	setMu sync.Mutex

	mu       sync.Mutex
	gen      int
	uid      string
	stop     func()
	loaded   *observable.Latch
	unsubID  func()
	watchCtx context.Context
	cancel   context.CancelFunc
}

func New(st store.Store, id Identity, opts Options) *Repo {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	defaults := opts.DefaultTasks
	if defaults == nil {
		defaults = DefaultTasks
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Repo{
		store:    st,
		identity: id,
		now:      now,
		defaults: defaults,
		log:      logging.OrNop(opts.Logger).Named("demand"),
		loaded:   observable.NewLatch(),
		watchCtx: ctx,
		cancel:   cancel,
	}
}

// Start follows identity changes: every established identity opens a fresh live query for
// that user, identity loss clears the cache.
func (r *Repo) Start() {
	unsub := r.identity.OnAuthStateChange(func(u *identity.User) {
		if u == nil {
			r.teardown()
			return
		}
		r.open(u.UID)
	})
	r.mu.Lock()
	r.unsubID = unsub
	r.mu.Unlock()
}

// Close stops following identity and tears down the live query.
func (r *Repo) Close() {
	r.mu.Lock()
	unsub := r.unsubID
	r.unsubID = nil
	r.mu.Unlock()
	if unsub != nil {
		unsub()
	}
	r.teardown()
	r.cancel()
}

func (r *Repo) open(uid string) {
	r.mu.Lock()
	r.gen++
	gen := r.gen
	old := r.stop
	r.stop = nil
	r.uid = uid
	if r.loaded.Fired() {
		r.loaded = observable.NewLatch()
	}
	r.mu.Unlock()
	if old != nil {
		old()
	}

	r.setMu.Lock()
	r.state.Set(State{Loading: true})
	r.setMu.Unlock()

	stop, err := r.store.Watch(r.watchCtx, Collection,
		func(docs []store.Document) { r.onSnapshot(gen, docs) },
		func(err error) { r.onWatchError(gen, err) },
		store.Eq("userId", uid))
	if err != nil {
		r.onWatchError(gen, err)
		return
	}
	r.mu.Lock()
	if r.gen == gen {
		r.stop = stop
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	stop()
}

func (r *Repo) teardown() {
	r.mu.Lock()
	r.gen++
	old := r.stop
	r.stop = nil
	r.uid = ""
	sig := r.loaded
	r.mu.Unlock()
	if old != nil {
		old()
	}
	r.setMu.Lock()
	r.state.Set(State{})
	r.setMu.Unlock()
	sig.Fire()
}

func (r *Repo) onSnapshot(gen int, docs []store.Document) {
	list := make([]domain.Demand, 0, len(docs))
	for _, doc := range docs {
		var d domain.Demand
		if err := doc.DataTo(&d); err != nil {
			r.log.Warn("skip undecodable demand", zap.String("id", doc.ID()), zap.Error(err))
			continue
		}
		d.ID = doc.ID()
		list = append(list, d)
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Order < list[j].Order })

	r.setMu.Lock()
	defer r.setMu.Unlock()
	r.mu.Lock()
	current := r.gen == gen
	sig := r.loaded
	r.mu.Unlock()
	if !current {
		return
	}
	r.state.Set(State{Demands: list})
	sig.Fire()
}

func (r *Repo) onWatchError(gen int, err error) {
	r.log.Error("demand subscription failed", zap.Error(err))
	r.setMu.Lock()
	defer r.setMu.Unlock()
	r.mu.Lock()
	current := r.gen == gen
	sig := r.loaded
	r.mu.Unlock()
	if !current {
		return
	}
	r.state.Set(State{})
	sig.Fire()
}

// WaitLoaded blocks until the first snapshot for the current identity arrived, the identity
// resolved to signed out, or ctx ends.
func (r *Repo) WaitLoaded(ctx context.Context) error {
	r.mu.Lock()
	sig := r.loaded
	r.mu.Unlock()
	select {
	case <-sig.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Repo) State() State { return r.state.Get() }

// Demands returns the cached demands sorted by order.
func (r *Repo) Demands() []domain.Demand { return r.state.Get().Demands }

// Subscribe calls fn on every published state. fn runs on the delivering goroutine and must
// not write to the store synchronously.
func (r *Repo) Subscribe(fn func(State)) func() { return r.state.Subscribe(fn) }

// Get returns a copy of the cached demand.
func (r *Repo) Get(id string) (domain.Demand, bool) {
	for _, d := range r.Demands() {
		if d.ID == id {
			return clone(d), true
		}
	}
	return domain.Demand{}, false
}

func clone(d domain.Demand) domain.Demand {
	d.Tasks = append([]domain.Task(nil), d.Tasks...)
	d.CustomFields = append([]domain.CustomField(nil), d.CustomFields...)
	if d.CompletedAt != nil {
		t := *d.CompletedAt
		d.CompletedAt = &t
	}
	return d
}

func (r *Repo) requireUser() (string, error) {
	uid := r.identity.UID()
	if uid == "" {
		return "", domain.ErrUnauthenticated
	}
	return uid, nil
}

// lookup checks identity then resolves id against the cache.
func (r *Repo) lookup(id string) (domain.Demand, error) {
	if _, err := r.requireUser(); err != nil {
		return domain.Demand{}, err
	}
	d, ok := r.Get(id)
	if !ok {
		return domain.Demand{}, fmt.Errorf("demand %s: %w", id, domain.ErrNotFound)
	}
	return d, nil
}

func completedAtFor(status domain.Status) any {
	if status == domain.StatusConcluido {
		return store.ServerTimestamp
	}
	return nil
}

type NewDemand struct {
	Code            string
	Title           string
	Priority        domain.Priority
	UseDefaultTasks bool
	Status          domain.Status
	Consultoria     string
	Sistema         string
}

// CreateDemand appends a demand after the current last one. Sistema is not seeded here;
// callers attach it with UpdateSistema.
func (r *Repo) CreateDemand(ctx context.Context, in NewDemand) (string, error) {
	uid, err := r.requireUser()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(in.Code) == "" || strings.TrimSpace(in.Title) == "" {
		return "", fmt.Errorf("code and title are required: %w", domain.ErrInvalid)
	}
	if in.Status == "" {
		in.Status = domain.StatusSetup
	}
	if !in.Priority.Valid() {
		return "", fmt.Errorf("priority %q: %w", in.Priority, domain.ErrInvalid)
	}
	if !in.Status.Valid() {
		return "", fmt.Errorf("status %q: %w", in.Status, domain.ErrInvalid)
	}

	order := 0
	for _, d := range r.Demands() {
		if d.Order+1 > order {
			order = d.Order + 1
		}
	}
	now := r.now().UTC()
	tasks := []domain.Task{}
	if in.UseDefaultTasks {
		for i, tpl := range r.defaults {
			tasks = append(tasks, domain.Task{
				ID:        uuid.NewString(),
				Title:     tpl.Title,
				Order:     i,
				CreatedAt: now,
				Link:      tpl.Link,
			})
		}
	}
	fields := []domain.CustomField{{
		ID:    uuid.NewString(),
		Name:  domain.FieldConsultoria,
		Value: in.Consultoria,
		Color: ConsultoriaColor,
	}}

	id, err := r.store.Create(ctx, Collection, map[string]any{
		"code":         strings.TrimSpace(in.Code),
		"title":        strings.TrimSpace(in.Title),
		"priority":     in.Priority,
		"status":       in.Status,
		"order":        order,
		"userId":       uid,
		"createdAt":    store.ServerTimestamp,
		"updatedAt":    store.ServerTimestamp,
		"completedAt":  completedAtFor(in.Status),
		"tasks":        tasks,
		"customFields": fields,
	})
	if err != nil {
		return "", fmt.Errorf("create demand: %w", err)
	}
	r.log.Debug("demand created", zap.String("id", id), zap.String("code", in.Code))
	return id, nil
}

func (r *Repo) write(ctx context.Context, id string, data map[string]any) error {
	data["updatedAt"] = store.ServerTimestamp
	if err := r.store.Update(ctx, Collection, id, data); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("demand %s: %w", id, domain.ErrNotFound)
		}
		return fmt.Errorf("update demand %s: %w", id, err)
	}
	return nil
}

// UpdateStatus sets status and keeps completedAt consistent with it.
func (r *Repo) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	if !status.Valid() {
		return fmt.Errorf("status %q: %w", status, domain.ErrInvalid)
	}
	if _, err := r.lookup(id); err != nil {
		return err
	}
	return r.write(ctx, id, map[string]any{
		"status":      status,
		"completedAt": completedAtFor(status),
	})
}

func (r *Repo) UpdateConsultoria(ctx context.Context, id, value string) error {
	return r.setNamedField(ctx, id, domain.FieldConsultoria, value, ConsultoriaColor)
}

func (r *Repo) UpdateSistema(ctx context.Context, id, value string) error {
	return r.setNamedField(ctx, id, domain.FieldSistema, value, SistemaColor)
}

func (r *Repo) setNamedField(ctx context.Context, id, name, value, color string) error {
	d, err := r.lookup(id)
	if err != nil {
		return err
	}
	found := false
	for i := range d.CustomFields {
		if d.CustomFields[i].Name == name {
			d.CustomFields[i].Value = value
			found = true
			break
		}
	}
	if !found {
		d.CustomFields = append(d.CustomFields, domain.CustomField{
			ID:    uuid.NewString(),
			Name:  name,
			Value: value,
			Color: color,
		})
	}
	return r.write(ctx, id, map[string]any{"customFields": d.CustomFields})
}

// DemandPatch holds optional replacements; nil fields are left untouched.
type DemandPatch struct {
	Code         *string
	Title        *string
	Priority     *domain.Priority
	Status       *domain.Status
	Order        *int
	Tasks        []domain.Task
	CustomFields []domain.CustomField
}

func (r *Repo) UpdateDemand(ctx context.Context, id string, p DemandPatch) error {
	cur, err := r.lookup(id)
	if err != nil {
		return err
	}
	data := map[string]any{}
	if p.Code != nil {
		if strings.TrimSpace(*p.Code) == "" {
			return fmt.Errorf("code is required: %w", domain.ErrInvalid)
		}
		data["code"] = strings.TrimSpace(*p.Code)
	}
	if p.Title != nil {
		if strings.TrimSpace(*p.Title) == "" {
			return fmt.Errorf("title is required: %w", domain.ErrInvalid)
		}
		data["title"] = strings.TrimSpace(*p.Title)
	}
	if p.Priority != nil {
		if !p.Priority.Valid() {
			return fmt.Errorf("priority %q: %w", *p.Priority, domain.ErrInvalid)
		}
		data["priority"] = *p.Priority
	}
	if p.Status != nil {
		if !p.Status.Valid() {
			return fmt.Errorf("status %q: %w", *p.Status, domain.ErrInvalid)
		}
		data["status"] = *p.Status
		data["completedAt"] = completedAtFor(*p.Status)
	}
	if p.Order != nil {
		data["order"] = *p.Order
	}
	if p.Tasks != nil {
		data["tasks"] = keepInProgress(cur.Tasks, p.Tasks)
	}
	if p.CustomFields != nil {
		data["customFields"] = p.CustomFields
	}
	return r.write(ctx, id, data)
}

// keepInProgress copies the in-progress flag from the cached tasks so a replacement list cannot
// start tasks; only SetTaskInProgress does that.
func keepInProgress(cached, patched []domain.Task) []domain.Task {
	started := map[string]bool{}
	for _, t := range cached {
		if t.InProgress {
			started[t.ID] = true
		}
	}
	out := make([]domain.Task, len(patched))
	for i, t := range patched {
		t.InProgress = started[t.ID] && !t.Completed
		out[i] = t
	}
	return out
}

// DeleteDemand removes a demand of the signed-in user; ids outside the cache are ErrNotFound.
func (r *Repo) DeleteDemand(ctx context.Context, id string) error {
	if _, err := r.lookup(id); err != nil {
		return err
	}
	if err := r.store.Delete(ctx, Collection, id); err != nil {
		return fmt.Errorf("delete demand %s: %w", id, err)
	}
	return nil
}

// ReorderDemands assigns order = index to each id in one atomic batch.
func (r *Repo) ReorderDemands(ctx context.Context, orderedIDs []string) error {
	if _, err := r.requireUser(); err != nil {
		return err
	}
	ops := make([]store.Op, 0, len(orderedIDs))
	for i, id := range orderedIDs {
		if _, ok := r.Get(id); !ok {
			return fmt.Errorf("demand %s: %w", id, domain.ErrNotFound)
		}
		ops = append(ops, store.UpdateOp(Collection, id, map[string]any{
			"order":     i,
			"updatedAt": store.ServerTimestamp,
		}))
	}
	if err := r.store.Batch(ctx, ops); err != nil {
		return fmt.Errorf("reorder demands: %w", err)
	}
	return nil
}
