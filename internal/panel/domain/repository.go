package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, panel *Panel) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Panel, error)
	List(ctx context.Context, db *gorm.DB) ([]Panel, error)
}
