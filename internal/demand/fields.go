package demand

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"leadboard/internal/domain"
	"leadboard/internal/view"
)

func (r *Repo) AddCustomField(ctx context.Context, demandID string, f domain.CustomField) (domain.CustomField, error) {
	d, err := r.lookup(demandID)
	if err != nil {
		return domain.CustomField{}, err
	}
	if strings.TrimSpace(f.Name) == "" {
		return domain.CustomField{}, fmt.Errorf("field name is required: %w", domain.ErrInvalid)
	}
	f.ID = uuid.NewString()
	f.Name = strings.TrimSpace(f.Name)
	d.CustomFields = append(d.CustomFields, f)
	if err := r.write(ctx, demandID, map[string]any{"customFields": d.CustomFields}); err != nil {
		return domain.CustomField{}, err
	}
	return f, nil
}

type FieldPatch struct {
	Name  *string
	Value *string
	Color *string
}

func (r *Repo) lookupField(demandID, fieldID string) (domain.Demand, int, error) {
	d, err := r.lookup(demandID)
	if err != nil {
		return domain.Demand{}, -1, err
	}
	for i, f := range d.CustomFields {
		if f.ID == fieldID {
			return d, i, nil
		}
	}
	return domain.Demand{}, -1, fmt.Errorf("field %s in demand %s: %w", fieldID, demandID, domain.ErrNotFound)
}

func (r *Repo) UpdateCustomField(ctx context.Context, demandID, fieldID string, p FieldPatch) error {
	d, idx, err := r.lookupField(demandID, fieldID)
	if err != nil {
		return err
	}
	f := &d.CustomFields[idx]
	if p.Name != nil {
		if strings.TrimSpace(*p.Name) == "" {
			return fmt.Errorf("field name is required: %w", domain.ErrInvalid)
		}
		f.Name = strings.TrimSpace(*p.Name)
	}
	if p.Value != nil {
		f.Value = *p.Value
	}
	if p.Color != nil {
		f.Color = *p.Color
	}
	return r.write(ctx, demandID, map[string]any{"customFields": d.CustomFields})
}

func (r *Repo) DeleteCustomField(ctx context.Context, demandID, fieldID string) error {
	d, idx, err := r.lookupField(demandID, fieldID)
	if err != nil {
		return err
	}
	d.CustomFields = append(d.CustomFields[:idx], d.CustomFields[idx+1:]...)
	return r.write(ctx, demandID, map[string]any{"customFields": d.CustomFields})
}

// Filter applies f to the cached demands.
func (r *Repo) Filter(f view.DemandFilter) []domain.Demand {
	return view.FilterDemands(r.Demands(), f)
}
