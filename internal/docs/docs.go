// Package docs stores release notes and technical documentation per user.
package docs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"leadboard/internal/domain"
	"leadboard/internal/logging"
	"leadboard/internal/store"
)

const (
	ReleaseCollection = "releaseDocs"
	TechCollection    = "techDocs"
)

type Repo struct {
	store store.Store
	log   *zap.Logger
}

func New(st store.Store, log *zap.Logger) *Repo {
	return &Repo{store: st, log: logging.OrNop(log).Named("docs")}
}

func requireUser(userID string) error {
	if userID == "" {
		return domain.ErrUnauthenticated
	}
	return nil
}

// optional maps an empty string to the delete-field sentinel so clearing removes the key.
func optional(v string) any {
	if strings.TrimSpace(v) == "" {
		return store.DeleteField
	}
	return strings.TrimSpace(v)
}

// fetch loads one owned document; absent, unreadable or foreign documents yield found=false.
func (r *Repo) fetch(ctx context.Context, collection, userID, id string, v any, owner func() string) (bool, error) {
	doc, err := r.store.Get(ctx, collection, id)
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrPermissionDenied) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	if err := doc.DataTo(v); err != nil {
		return false, err
	}
	if owner() != userID {
		r.log.Warn("document owned by another user", zap.String("collection", collection), zap.String("id", id))
		return false, nil
	}
	return true, nil
}

func (r *Repo) ListReleaseDocs(ctx context.Context, userID, demandCode string) ([]domain.ReleaseDoc, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	filters := []store.Filter{store.Eq("userId", userID)}
	if demandCode != "" {
		filters = append(filters, store.Eq("demandCode", demandCode))
	}
	docs, err := r.store.Query(ctx, ReleaseCollection, filters...)
	if err != nil {
		return nil, fmt.Errorf("list release docs: %w", err)
	}
	out := make([]domain.ReleaseDoc, 0, len(docs))
	for _, doc := range docs {
		var d domain.ReleaseDoc
		if err := doc.DataTo(&d); err != nil {
			r.log.Warn("skip undecodable release doc", zap.String("id", doc.ID()), zap.Error(err))
			continue
		}
		d.ID = doc.ID()
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// GetReleaseDoc returns nil when the document does not exist or cannot be read.
func (r *Repo) GetReleaseDoc(ctx context.Context, userID, id string) (*domain.ReleaseDoc, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	var d domain.ReleaseDoc
	ok, err := r.fetch(ctx, ReleaseCollection, userID, id, &d, func() string { return d.UserID })
	if err != nil || !ok {
		return nil, err
	}
	d.ID = id
	return &d, nil
}

type NewReleaseDoc struct {
	DemandCode string
	Title      string
	Version    string
	Content    string
}

func (r *Repo) CreateReleaseDoc(ctx context.Context, userID string, in NewReleaseDoc) (string, error) {
	if err := requireUser(userID); err != nil {
		return "", err
	}
	if strings.TrimSpace(in.Title) == "" {
		return "", fmt.Errorf("title is required: %w", domain.ErrInvalid)
	}
	data := map[string]any{
		"userId":     userID,
		"demandCode": strings.TrimSpace(in.DemandCode),
		"title":      strings.TrimSpace(in.Title),
		"content":    in.Content,
		"createdAt":  store.ServerTimestamp,
		"updatedAt":  store.ServerTimestamp,
	}
	if v := strings.TrimSpace(in.Version); v != "" {
		data["version"] = v
	}
	id, err := r.store.Create(ctx, ReleaseCollection, data)
	if err != nil {
		return "", fmt.Errorf("create release doc: %w", err)
	}
	return id, nil
}

type ReleaseDocPatch struct {
	DemandCode *string
	Title      *string
	// Version set to "" removes it.
	Version *string
	Content *string
}

func (r *Repo) UpdateReleaseDoc(ctx context.Context, userID, id string, p ReleaseDocPatch) error {
	cur, err := r.GetReleaseDoc(ctx, userID, id)
	if err != nil {
		return err
	}
	if cur == nil {
		return fmt.Errorf("release doc %s: %w", id, domain.ErrNotFound)
	}
	data := map[string]any{"updatedAt": store.ServerTimestamp}
	if p.DemandCode != nil {
		data["demandCode"] = strings.TrimSpace(*p.DemandCode)
	}
	if p.Title != nil {
		if strings.TrimSpace(*p.Title) == "" {
			return fmt.Errorf("title is required: %w", domain.ErrInvalid)
		}
		data["title"] = strings.TrimSpace(*p.Title)
	}
	if p.Version != nil {
		data["version"] = optional(*p.Version)
	}
	if p.Content != nil {
		data["content"] = *p.Content
	}
	if err := r.store.Update(ctx, ReleaseCollection, id, data); err != nil {
		return fmt.Errorf("update release doc %s: %w", id, err)
	}
	return nil
}

func (r *Repo) DeleteReleaseDoc(ctx context.Context, userID, id string) error {
	cur, err := r.GetReleaseDoc(ctx, userID, id)
	if err != nil {
		return err
	}
	if cur == nil {
		return fmt.Errorf("release doc %s: %w", id, domain.ErrNotFound)
	}
	return r.store.Delete(ctx, ReleaseCollection, id)
}

func (r *Repo) ListTechDocs(ctx context.Context, userID, category string) ([]domain.TechDoc, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	filters := []store.Filter{store.Eq("userId", userID)}
	if category != "" {
		filters = append(filters, store.Eq("category", category))
	}
	docs, err := r.store.Query(ctx, TechCollection, filters...)
	if err != nil {
		return nil, fmt.Errorf("list tech docs: %w", err)
	}
	out := make([]domain.TechDoc, 0, len(docs))
	for _, doc := range docs {
		var d domain.TechDoc
		if err := doc.DataTo(&d); err != nil {
			r.log.Warn("skip undecodable tech doc", zap.String("id", doc.ID()), zap.Error(err))
			continue
		}
		d.ID = doc.ID()
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool { return strings.ToLower(out[i].Title) < strings.ToLower(out[j].Title) })
	return out, nil
}

// GetTechDoc returns nil when the document does not exist or cannot be read.
func (r *Repo) GetTechDoc(ctx context.Context, userID, id string) (*domain.TechDoc, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	var d domain.TechDoc
	ok, err := r.fetch(ctx, TechCollection, userID, id, &d, func() string { return d.UserID })
	if err != nil || !ok {
		return nil, err
	}
	d.ID = id
	return &d, nil
}

type NewTechDoc struct {
	Title    string
	Category string
	Content  string
	Tags     []string
}

func cleanTags(tags []string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func (r *Repo) CreateTechDoc(ctx context.Context, userID string, in NewTechDoc) (string, error) {
	if err := requireUser(userID); err != nil {
		return "", err
	}
	if strings.TrimSpace(in.Title) == "" {
		return "", fmt.Errorf("title is required: %w", domain.ErrInvalid)
	}
	data := map[string]any{
		"userId":    userID,
		"title":     strings.TrimSpace(in.Title),
		"content":   in.Content,
		"tags":      cleanTags(in.Tags),
		"createdAt": store.ServerTimestamp,
		"updatedAt": store.ServerTimestamp,
	}
	if c := strings.TrimSpace(in.Category); c != "" {
		data["category"] = c
	}
	id, err := r.store.Create(ctx, TechCollection, data)
	if err != nil {
		return "", fmt.Errorf("create tech doc: %w", err)
	}
	return id, nil
}

type TechDocPatch struct {
	Title *string
	// Category set to "" removes it.
	Category *string
	Content  *string
	Tags     []string
}

func (r *Repo) UpdateTechDoc(ctx context.Context, userID, id string, p TechDocPatch) error {
	cur, err := r.GetTechDoc(ctx, userID, id)
	if err != nil {
		return err
	}
	if cur == nil {
		return fmt.Errorf("tech doc %s: %w", id, domain.ErrNotFound)
	}
	data := map[string]any{"updatedAt": store.ServerTimestamp}
	if p.Title != nil {
		if strings.TrimSpace(*p.Title) == "" {
			return fmt.Errorf("title is required: %w", domain.ErrInvalid)
		}
		data["title"] = strings.TrimSpace(*p.Title)
	}
	if p.Category != nil {
		data["category"] = optional(*p.Category)
	}
	if p.Content != nil {
		data["content"] = *p.Content
	}
	if p.Tags != nil {
		data["tags"] = cleanTags(p.Tags)
	}
	if err := r.store.Update(ctx, TechCollection, id, data); err != nil {
		return fmt.Errorf("update tech doc %s: %w", id, err)
	}
	return nil
}

func (r *Repo) DeleteTechDoc(ctx context.Context, userID, id string) error {
	cur, err := r.GetTechDoc(ctx, userID, id)
	if err != nil {
		return err
	}
	if cur == nil {
		return fmt.Errorf("tech doc %s: %w", id, domain.ErrNotFound)
	}
	return r.store.Delete(ctx, TechCollection, id)
}
