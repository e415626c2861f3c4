// Package app wires the store, identity and repositories into one workspace.
package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"leadboard/internal/config"
	"leadboard/internal/dailyreport"
	"leadboard/internal/db"
	"leadboard/internal/demand"
	"leadboard/internal/docs"
	"leadboard/internal/domain"
	"leadboard/internal/identity"
	"leadboard/internal/logging"
	"leadboard/internal/store"
	"leadboard/internal/store/firestorestore"
	"leadboard/internal/store/sqlitestore"
	"leadboard/internal/view"
	"leadboard/internal/workers"
)

type Options struct {
	// Now drives every clock in the workspace. Defaults to time.Now.
	Now func() time.Time
}

type Workspace struct {
	Config  *config.Config
	Log     *zap.Logger
	Store   store.Store
	Session *identity.Session
	Demands *demand.Repo
	Daily   *dailyreport.Repo
	Docs    *docs.Repo
	Workers *workers.Manager

	now func() time.Time
}

// Open builds the configured store and identity verifier, then the repositories on top.
// The demand repository is already following the session when Open returns.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger, opts Options) (*Workspace, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log = logging.OrNop(log)
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	var (
		st       store.Store
		verifier identity.Verifier
	)
	switch cfg.Store.Backend {
	case config.BackendFirestore:
		fbApp, err := firestorestore.NewApp(ctx, cfg.Store.Firebase.ProjectID, cfg.Store.Firebase.CredentialsFile)
		if err != nil {
			return nil, err
		}
		fs, err := firestorestore.Open(ctx, fbApp, log.Named("firestore"))
		if err != nil {
			return nil, err
		}
		st = fs
		if cfg.Auth.Mode == config.AuthFirebase {
			authClient, err := fbApp.Auth(ctx)
			if err != nil {
				fs.Close()
				return nil, fmt.Errorf("firebase auth client: %w", err)
			}
			verifier = identity.FirebaseVerifier{Client: authClient}
		}
	default:
		sq, err := sqlitestore.Open(ctx, db.Config{Workspace: cfg.Store.Workspace}, sqlitestore.Options{Now: now, Logger: log})
		if err != nil {
			return nil, err
		}
		st = sq
	}
	switch cfg.Auth.Mode {
	case config.AuthLocal:
		verifier = identity.StaticVerifier{UID: cfg.Auth.LocalUser}
	case config.AuthJWT:
		verifier = identity.JWTVerifier{Secret: os.Getenv(cfg.Auth.JWTSecretEnv)}
	}

	templates := make([]demand.TaskTemplate, 0, len(cfg.Board.DefaultTasks))
	for _, t := range cfg.Board.DefaultTasks {
		templates = append(templates, demand.TaskTemplate{Title: t.Title, Link: t.Link})
	}

	w := &Workspace{
		Config:  cfg,
		Log:     log,
		Store:   st,
		Session: identity.NewSession(verifier, log.Named("identity")),
		now:     now,
	}
	w.Demands = demand.New(st, w.Session, demand.Options{Now: now, DefaultTasks: templates, Logger: log})
	w.Daily = dailyreport.New(st, dailyreport.Options{
		Now:           now,
		Location:      loc,
		RetentionDays: cfg.Report.RetentionDays,
		MaxEntries:    cfg.Report.MaxEntries,
		Logger:        log,
	})
	w.Docs = docs.New(st, log)
	w.Workers = workers.NewManager(log)
	w.Workers.Register(workers.RetentionWorker{Daily: w.Daily, UserID: w.Session.UID, Every: cfg.Report.RetentionSweep})
	w.Demands.Start()
	return w, nil
}

// Close stops workers, listeners and the store.
func (w *Workspace) Close() error {
	w.Workers.Stop()
	w.Demands.Close()
	return w.Store.Close()
}

// UserID is the signed-in user or "".
func (w *Workspace) UserID() string { return w.Session.UID() }

// SignInLocal restores the session for the configured local user and waits for the first
// demand snapshot.
func (w *Workspace) SignInLocal(ctx context.Context) error {
	return w.Restore(ctx, w.Config.Auth.LocalUser)
}

// Restore resolves the session from token and waits for the demand mirror.
func (w *Workspace) Restore(ctx context.Context, token string) error {
	if _, err := w.Session.Restore(ctx, token); err != nil {
		return err
	}
	return w.Demands.WaitLoaded(ctx)
}

// SignIn switches the session to the token's user and waits for that user's demands.
func (w *Workspace) SignIn(ctx context.Context, token string) (*identity.User, error) {
	u, err := w.Session.SignIn(ctx, token)
	if err != nil {
		return nil, err
	}
	return u, w.Demands.WaitLoaded(ctx)
}

// CreateDemand creates the demand and attaches its Sistema field when one is given.
func (w *Workspace) CreateDemand(ctx context.Context, in demand.NewDemand) (string, error) {
	id, err := w.Demands.CreateDemand(ctx, in)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(in.Sistema) != "" {
		if err := w.Demands.UpdateSistema(ctx, id, strings.TrimSpace(in.Sistema)); err != nil {
			return id, err
		}
	}
	return id, nil
}

// CompleteTask toggles a task and, when it became completed, logs it into tomorrow's daily
// entry with the demand code and Sistema.
func (w *Workspace) CompleteTask(ctx context.Context, demandID, taskID string) (domain.Task, error) {
	d, ok := w.Demands.Get(demandID)
	task, err := w.Demands.ToggleTask(ctx, demandID, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if !task.Completed || !ok {
		return task, nil
	}
	err = w.Daily.AddCompletedTask(ctx, w.UserID(), dailyreport.CompletedTask{
		DemandCode: d.Code,
		TaskTitle:  task.Title,
		Sistema:    d.FieldValue(domain.FieldSistema),
	})
	if err != nil {
		return task, fmt.Errorf("log completed task: %w", err)
	}
	return task, nil
}

// PendingTasks groups open work using the configured criticality and limit.
func (w *Workspace) PendingTasks() []view.PendingGroup {
	return view.PendingTasksByStatus(w.Demands.Demands(), w.Config.Criticality(), w.Config.Board.PendingLimit)
}

// RecentlyCompleted lists tasks completed on demands touched within the configured window.
func (w *Workspace) RecentlyCompleted() []view.CompletedTask {
	return view.CompletedTasksSince(w.Demands.Demands(), w.now(), w.Config.Report.CompletedWindow)
}

// DailyReport renders the standup text for targetDate; empty means tomorrow.
func (w *Workspace) DailyReport(ctx context.Context, targetDate string) (string, error) {
	if targetDate == "" {
		targetDate = domain.FormatDate(w.Daily.Tomorrow())
	}
	date, err := domain.ParseDate(targetDate, w.Daily.Location())
	if err != nil {
		return "", fmt.Errorf("target date %q: %w", targetDate, domain.ErrInvalid)
	}
	entry, err := w.Daily.Get(ctx, w.UserID(), targetDate)
	if err != nil {
		return "", err
	}
	report := view.Report{Date: date}
	if entry != nil {
		for _, c := range entry.Comments {
			report.Comments = append(report.Comments, c.Text)
		}
		report.Groups = view.GroupCompletedTasks(view.EntryItems(*entry), w.Config.Report.OtherLabel)
		report.IncludeTasks = entry.IncludeTasksInReport
	}
	return view.RenderReport(report), nil
}

// RecentReport renders tasks completed within the window straight from the demands.
func (w *Workspace) RecentReport() string {
	return view.RenderReport(view.Report{
		Date:         w.now().In(w.Daily.Location()),
		Groups:       view.GroupCompletedTasks(w.RecentlyCompleted(), w.Config.Report.NoSystemLabel),
		IncludeTasks: true,
	})
}
