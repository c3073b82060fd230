package db

import (
	"context"
	"errors"
	"strings"

	"rfid_tool_kiosk/apperr"
	"rfid_tool_kiosk/models"

	"gorm.io/gorm"
)

// CreateTool inserts a tool. The case-insensitive name check is advisory:
// two concurrent creates with the same name can both pass it.
func (r *Repo) CreateTool(ctx context.Context, t *models.Tool) error {
	t.Name = strings.TrimSpace(t.Name)
	if t.Category = strings.TrimSpace(t.Category); t.Category == "" {
		t.Category = models.DefaultCategory
	}
	if t.Status == "" {
		t.Status = models.ToolAvailable
	}

	existing, err := r.FindToolByName(ctx, t.Name)
	if err != nil {
		return err
	}
	if existing != nil {
		return apperr.Duplicate("name", nil)
	}
	return translate(r.DB.WithContext(ctx).Create(t).Error)
}

func (r *Repo) FindToolByID(ctx context.Context, id uint) (*models.Tool, error) {
	return firstTool(r.DB.WithContext(ctx).Where("id = ?", id))
}

func (r *Repo) FindToolByUID(ctx context.Context, uid string) (*models.Tool, error) {
	return firstTool(r.DB.WithContext(ctx).Where("rfid_uid = ?", uid))
}

func (r *Repo) FindToolByName(ctx context.Context, name string) (*models.Tool, error) {
	return firstTool(r.DB.WithContext(ctx).Where("LOWER(name) = LOWER(?)", strings.TrimSpace(name)))
}

func firstTool(q *gorm.DB) (*models.Tool, error) {
	var t models.Tool
	if err := q.First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translate(err)
	}
	return &t, nil
}

// SetToolStatus is used by the lending engine inside a unit of work.
func (r *Repo) SetToolStatus(ctx context.Context, id uint, status models.ToolStatus) error {
	res := r.DB.WithContext(ctx).Model(&models.Tool{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, "tool not found")
	}
	return nil
}

// UpdateTool applies a partial update. status is owned by the lending engine
// and is rejected here.
func (r *Repo) UpdateTool(ctx context.Context, id uint, changes map[string]any) error {
	if _, ok := changes["status"]; ok {
		return apperr.New(apperr.Validation, "tool status changes only through borrow/return")
	}
	res := r.DB.WithContext(ctx).Model(&models.Tool{}).Where("id = ?", id).Updates(changes)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, "tool not found")
	}
	return nil
}

func (r *Repo) ListTools(ctx context.Context, limit, offset int) ([]models.Tool, error) {
	q := r.DB.WithContext(ctx).Order("name ASC, id ASC")
	if offset > 0 {
		q = q.Offset(offset)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var tools []models.Tool
	if err := q.Find(&tools).Error; err != nil {
		return nil, translate(err)
	}
	return tools, nil
}
