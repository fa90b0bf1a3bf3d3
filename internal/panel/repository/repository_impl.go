package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	paneldomain "github.com/smallbiznis/netbill/internal/panel/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() paneldomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, p *paneldomain.Panel) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO panels (id, type, name, api_url, api_key, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.Type,
		p.Name,
		p.APIURL,
		p.APIKey,
		p.CreatedAt,
		p.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*paneldomain.Panel, error) {
	var panel paneldomain.Panel
	err := db.WithContext(ctx).Raw(
		`SELECT id, type, name, api_url, api_key, created_at, updated_at
		 FROM panels WHERE id = ?`,
		id,
	).Scan(&panel).Error
	if err != nil {
		return nil, err
	}
	if panel.ID == 0 {
		return nil, nil
	}
	return &panel, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]paneldomain.Panel, error) {
	var panels []paneldomain.Panel
	err := db.WithContext(ctx).Raw(
		`SELECT id, type, name, api_url, api_key, created_at, updated_at
		 FROM panels ORDER BY created_at ASC`,
	).Scan(&panels).Error
	if err != nil {
		return nil, err
	}
	return panels, nil
}
