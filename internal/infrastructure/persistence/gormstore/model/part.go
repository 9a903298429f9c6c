package model

import "time"

type Part struct {
	ID          uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	Code        string    `gorm:"column:code;size:64;not null;uniqueIndex"`
	Description string    `gorm:"column:description;type:text;not null;default:''"`
	Client      string    `gorm:"column:client;type:text;not null;default:''"`
	Active      bool      `gorm:"column:active;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;not null;autoCreateTime"`
}

func (Part) TableName() string {
	return "parts"
}
