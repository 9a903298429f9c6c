package model

import "time"

type RNC struct {
	ID            uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	Number        uint64 `gorm:"column:num_rnc;not null;uniqueIndex:ux_rncs_num_rnc"`
	Title         string `gorm:"column:title;type:text;not null"`
	CriticalLevel string `gorm:"column:critical_level;size:16;not null"`
	PartCode      string `gorm:"column:part_code;size:64;not null;index"`
	PartID        uint64 `gorm:"column:part_id;not null;index"`
	Status        string `gorm:"column:status;size:16;not null;index"`
	Condition     string `gorm:"column:condition;size:32;not null;index"`
	Observations  string `gorm:"column:observations;type:text;not null;default:''"`

	RootCause               string     `gorm:"column:root_cause;type:text;not null;default:''"`
	CorrectiveAction        string     `gorm:"column:corrective_action;type:text;not null;default:''"`
	PreventiveAction        string     `gorm:"column:preventive_action;type:text;not null;default:''"`
	AnalysisObservations    string     `gorm:"column:analysis_observations;type:text;not null;default:''"`
	EstimatedReworkTime     float64    `gorm:"column:estimated_rework_time;not null;default:0"`
	RequiresExternalSupport bool       `gorm:"column:requires_external_support;not null;default:false"`
	QualityVerified         bool       `gorm:"column:quality_verified;not null;default:false"`
	AnalysisDate            *time.Time `gorm:"column:analysis_date"`
	AnalysisUserID          *uint64    `gorm:"column:analysis_user_id"`

	ReworkDescription  string     `gorm:"column:rework_description;type:text;not null;default:''"`
	ActionsTaken       string     `gorm:"column:actions_taken;type:text;not null;default:''"`
	MaterialsUsed      string     `gorm:"column:materials_used;type:text;not null;default:''"`
	TimeSpent          float64    `gorm:"column:time_spent;not null;default:0"`
	ReworkObservations string     `gorm:"column:rework_observations;type:text;not null;default:''"`
	ReworkDate         *time.Time `gorm:"column:rework_date"`
	ReworkUserID       *uint64    `gorm:"column:rework_user_id"`

	ClosingNotes string `gorm:"column:closing_notes;type:text;not null;default:''"`

	DateOfOccurrence time.Time  `gorm:"column:date_of_occurrence;not null;index"`
	OpeningDate      time.Time  `gorm:"column:opening_date;not null"`
	ClosingDate      *time.Time `gorm:"column:closing_date"`

	OpenByID             uint64  `gorm:"column:open_by_id;not null;index"`
	CurrentResponsibleID *uint64 `gorm:"column:current_responsible_id"`
	ClosedByID           *uint64 `gorm:"column:closed_by_id"`

	UpdatedAt time.Time `gorm:"column:updated_at;not null;autoUpdateTime"`
}

func (RNC) TableName() string {
	return "rncs"
}
