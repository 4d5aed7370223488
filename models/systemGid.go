package models

import (
	"context"
	"time"

	"gorm.io/gorm/clause"

	"github.com/mmdatafocus/adaudit_backend/config"
)

// SystemGid is the system-of-record identifier table. The reconciliation
// pipeline only ever reads it; rows are maintained through the admin API.
type SystemGid struct {
	ID          int       `gorm:"primary_key" json:"id"`
	Gid         string    `gorm:"size:100;not null;unique" json:"gid"`
	DisplayName string    `gorm:"size:255" json:"display_name"`
	Email       string    `gorm:"size:255" json:"email"`
	Department  string    `gorm:"size:255" json:"department"`
	IsActive    *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// FetchSystemGidSet reads the live GID set fresh; never cached across runs.
func FetchSystemGidSet(ctx context.Context) (map[string]struct{}, error) {
	db := config.GetDB()
	var gids []string
	err := db.WithContext(ctx).Model(&SystemGid{}).
		Where("gid IS NOT NULL AND gid != ''").
		Pluck("gid", &gids).Error
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(gids))
	for _, g := range gids {
		set[g] = struct{}{}
	}
	return set, nil
}

// FetchAllSystemGids returns full rows for the system-of-record export.
func FetchAllSystemGids(ctx context.Context) ([]*SystemGid, error) {
	db := config.GetDB()
	var rows []*SystemGid
	err := db.WithContext(ctx).
		Where("gid IS NOT NULL AND gid != ''").
		Order("gid ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

type NewSystemGid struct {
	Gid         string `json:"gid" binding:"required"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Department  string `json:"department"`
	IsActive    *bool  `json:"is_active"`
}

func CreateSystemGid(ctx context.Context, input *NewSystemGid) (*SystemGid, error) {
	row := SystemGid{
		Gid:         input.Gid,
		DisplayName: input.DisplayName,
		Email:       input.Email,
		Department:  input.Department,
		IsActive:    input.IsActive,
	}
	if err := config.GetDB().WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// UpsertSystemGids bulk-loads GID rows, updating existing GIDs in place.
// Used by the import endpoint when syncing from an HR extract.
func UpsertSystemGids(ctx context.Context, rows []SystemGid) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	err := config.GetDB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "gid"}},
			DoUpdates: clause.AssignmentColumns([]string{"display_name", "email", "department", "is_active"}),
		}).
		CreateInBatches(rows, 500).Error
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}
