package models

import (
	"time"

	"gorm.io/datatypes"
)

// Resume 简历主表, parsed_json 保存完整的结构化结果
type Resume struct {
	ID         string         `gorm:"type:char(36);primaryKey"`
	Filename   string         `gorm:"type:varchar(255);not null;default:''"`
	Path       string         `gorm:"type:varchar(1024);not null;default:''"`
	RawText    string         `gorm:"type:longtext"`
	ParsedJSON datatypes.JSON `gorm:"type:json"`
	CreatedAt  time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt  time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (Resume) TableName() string {
	return "resumes"
}
