package model

import "time"

// Project scopes assets to an owning user. Only the ownership fields the
// pipeline consults are modeled here.
type Project struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	OwnerID   string    `gorm:"column:owner_id;not null;index" json:"ownerId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Project) TableName() string { return "projects" }

// UserSetting stores per-user overrides. A user-supplied Tripo key takes
// priority over the process-wide key.
type UserSetting struct {
	UserID      string    `gorm:"primaryKey" json:"userId"`
	TripoAPIKey string    `gorm:"column:tripo_api_key" json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (UserSetting) TableName() string { return "user_settings" }
