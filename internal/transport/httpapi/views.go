package httpapi

import (
	"time"

	"rncflow/internal/domain/rnc"
)

type reportView struct {
	ID            uint64 `json:"id"`
	Number        uint64 `json:"num_rnc"`
	Title         string `json:"title"`
	CriticalLevel string `json:"critical_level"`
	PartCode      string `json:"part_code"`
	PartID        uint64 `json:"part_id"`
	Status        string `json:"status"`
	Condition     string `json:"condition"`
	Observations  string `json:"observations,omitempty"`
	CloseRNC      bool   `json:"close_rnc"`

	RootCause               string     `json:"root_cause,omitempty"`
	CorrectiveAction        string     `json:"corrective_action,omitempty"`
	PreventiveAction        string     `json:"preventive_action,omitempty"`
	AnalysisObservations    string     `json:"analysis_observations,omitempty"`
	EstimatedReworkTime     float64    `json:"estimated_rework_time,omitempty"`
	RequiresExternalSupport bool       `json:"requires_external_support"`
	QualityVerified         bool       `json:"quality_verified"`
	AnalysisDate            *time.Time `json:"analysis_date,omitempty"`
	AnalysisUserID          *uint64    `json:"analysis_user_id,omitempty"`

	ReworkDescription  string     `json:"rework_description,omitempty"`
	ActionsTaken       string     `json:"actions_taken,omitempty"`
	MaterialsUsed      string     `json:"materials_used,omitempty"`
	TimeSpent          float64    `json:"time_spent,omitempty"`
	ReworkObservations string     `json:"rework_observations,omitempty"`
	ReworkDate         *time.Time `json:"rework_date,omitempty"`
	ReworkUserID       *uint64    `json:"rework_user_id,omitempty"`

	ClosingNotes string `json:"closing_notes,omitempty"`

	DateOfOccurrence time.Time  `json:"date_of_occurrence"`
	OpeningDate      time.Time  `json:"opening_date"`
	ClosingDate      *time.Time `json:"closing_date,omitempty"`

	OpenByID             uint64  `json:"open_by_id"`
	CurrentResponsibleID *uint64 `json:"current_responsible_id,omitempty"`
	ClosedByID           *uint64 `json:"closed_by_id,omitempty"`
}

func toReportView(r rnc.RNC) reportView {
	return reportView{
		ID:            r.ID,
		Number:        r.Number,
		Title:         r.Title,
		CriticalLevel: string(r.CriticalLevel),
		PartCode:      r.PartCode,
		PartID:        r.PartID,
		Status:        string(r.Status),
		Condition:     string(r.Condition),
		Observations:  r.Observations,
		CloseRNC:      r.IsClosed(),

		RootCause:               r.RootCause,
		CorrectiveAction:        r.CorrectiveAction,
		PreventiveAction:        r.PreventiveAction,
		AnalysisObservations:    r.AnalysisObservations,
		EstimatedReworkTime:     r.EstimatedReworkTime,
		RequiresExternalSupport: r.RequiresExternalSupport,
		QualityVerified:         r.QualityVerified,
		AnalysisDate:            r.AnalysisDate,
		AnalysisUserID:          r.AnalysisUserID,

		ReworkDescription:  r.ReworkDescription,
		ActionsTaken:       r.ActionsTaken,
		MaterialsUsed:      r.MaterialsUsed,
		TimeSpent:          r.TimeSpent,
		ReworkObservations: r.ReworkObservations,
		ReworkDate:         r.ReworkDate,
		ReworkUserID:       r.ReworkUserID,

		ClosingNotes: r.ClosingNotes,

		DateOfOccurrence: r.DateOfOccurrence,
		OpeningDate:      r.OpeningDate,
		ClosingDate:      r.ClosingDate,

		OpenByID:             r.OpenByID,
		CurrentResponsibleID: r.CurrentResponsibleID,
		ClosedByID:           r.ClosedByID,
	}
}

func toReportViews(items []rnc.RNC) []reportView {
	out := make([]reportView, 0, len(items))
	for _, item := range items {
		out = append(out, toReportView(item))
	}
	return out
}

type openRequest struct {
	Title         string `json:"title"`
	CriticalLevel string `json:"critical_level"`
	PartCode      string `json:"part_code"`
	Observations  string `json:"observations"`
}

type analysisRequest struct {
	RootCause               string  `json:"root_cause"`
	CorrectiveAction        string  `json:"corrective_action"`
	PreventiveAction        string  `json:"preventive_action"`
	Observations            string  `json:"analysis_observations"`
	EstimatedReworkTime     float64 `json:"estimated_rework_time"`
	RequiresExternalSupport bool    `json:"requires_external_support"`
	QualityVerified         bool    `json:"quality_verified"`
	CloseRNC                bool    `json:"close_rnc"`
	Refused                 bool    `json:"refused"`
	ResponsibleID           *uint64 `json:"responsible_id"`
}

func (req analysisRequest) toDomain() rnc.Analysis {
	return rnc.Analysis{
		RootCause:               req.RootCause,
		CorrectiveAction:        req.CorrectiveAction,
		PreventiveAction:        req.PreventiveAction,
		Observations:            req.Observations,
		EstimatedReworkTime:     req.EstimatedReworkTime,
		RequiresExternalSupport: req.RequiresExternalSupport,
		QualityVerified:         req.QualityVerified,
		CloseRNC:                req.CloseRNC,
		Refused:                 req.Refused,
		ResponsibleID:           req.ResponsibleID,
	}
}

type reworkRequest struct {
	Description   string  `json:"rework_description"`
	ActionsTaken  string  `json:"actions_taken"`
	MaterialsUsed string  `json:"materials_used"`
	TimeSpent     float64 `json:"time_spent"`
	Observations  string  `json:"rework_observations"`
	ResponsibleID *uint64 `json:"responsible_id"`
}

func (req reworkRequest) toDomain() rnc.Rework {
	return rnc.Rework{
		Description:   req.Description,
		ActionsTaken:  req.ActionsTaken,
		MaterialsUsed: req.MaterialsUsed,
		TimeSpent:     req.TimeSpent,
		Observations:  req.Observations,
		ResponsibleID: req.ResponsibleID,
	}
}

type closeRequest struct {
	Notes string `json:"closing_notes"`
}

type updateRequest struct {
	Title         *string `json:"title"`
	CriticalLevel *string `json:"critical_level"`
	Observations  *string `json:"observations"`
	ResponsibleID *uint64 `json:"responsible_id"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    uint64    `json:"user_id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
}

type createUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type userView struct {
	ID     uint64 `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Active bool   `json:"active"`
}

func toUserView(u rnc.User) userView {
	return userView{ID: u.ID, Name: u.Name, Email: u.Email, Role: string(u.Role), Active: u.Active}
}

type partView struct {
	ID          uint64 `json:"id"`
	Code        string `json:"code"`
	Description string `json:"description"`
	Client      string `json:"client"`
	Active      bool   `json:"active"`
}

func toPartView(p rnc.Part) partView {
	return partView{ID: p.ID, Code: p.Code, Description: p.Description, Client: p.Client, Active: p.Active}
}
