package repository

import (
	"time"

	"rncflow/internal/domain/rnc"
	"rncflow/internal/infrastructure/persistence/gormstore/model"
)

func toRNCRow(r rnc.RNC) model.RNC {
	return model.RNC{
		ID:                      r.ID,
		Number:                  r.Number,
		Title:                   r.Title,
		CriticalLevel:           string(r.CriticalLevel),
		PartCode:                r.PartCode,
		PartID:                  r.PartID,
		Status:                  string(r.Status),
		Condition:               string(r.Condition),
		Observations:            r.Observations,
		RootCause:               r.RootCause,
		CorrectiveAction:        r.CorrectiveAction,
		PreventiveAction:        r.PreventiveAction,
		AnalysisObservations:    r.AnalysisObservations,
		EstimatedReworkTime:     r.EstimatedReworkTime,
		RequiresExternalSupport: r.RequiresExternalSupport,
		QualityVerified:         r.QualityVerified,
		AnalysisDate:            utcPtr(r.AnalysisDate),
		AnalysisUserID:          r.AnalysisUserID,
		ReworkDescription:       r.ReworkDescription,
		ActionsTaken:            r.ActionsTaken,
		MaterialsUsed:           r.MaterialsUsed,
		TimeSpent:               r.TimeSpent,
		ReworkObservations:      r.ReworkObservations,
		ReworkDate:              utcPtr(r.ReworkDate),
		ReworkUserID:            r.ReworkUserID,
		ClosingNotes:            r.ClosingNotes,
		DateOfOccurrence:        r.DateOfOccurrence.UTC(),
		OpeningDate:             r.OpeningDate.UTC(),
		ClosingDate:             utcPtr(r.ClosingDate),
		OpenByID:                r.OpenByID,
		CurrentResponsibleID:    r.CurrentResponsibleID,
		ClosedByID:              r.ClosedByID,
	}
}

func fromRNCRow(row model.RNC) rnc.RNC {
	return rnc.RNC{
		ID:                      row.ID,
		Number:                  row.Number,
		Title:                   row.Title,
		CriticalLevel:           rnc.CriticalLevel(row.CriticalLevel),
		PartCode:                row.PartCode,
		PartID:                  row.PartID,
		Status:                  rnc.Status(row.Status),
		Condition:               rnc.Condition(row.Condition),
		Observations:            row.Observations,
		RootCause:               row.RootCause,
		CorrectiveAction:        row.CorrectiveAction,
		PreventiveAction:        row.PreventiveAction,
		AnalysisObservations:    row.AnalysisObservations,
		EstimatedReworkTime:     row.EstimatedReworkTime,
		RequiresExternalSupport: row.RequiresExternalSupport,
		QualityVerified:         row.QualityVerified,
		AnalysisDate:            utcPtr(row.AnalysisDate),
		AnalysisUserID:          row.AnalysisUserID,
		ReworkDescription:       row.ReworkDescription,
		ActionsTaken:            row.ActionsTaken,
		MaterialsUsed:           row.MaterialsUsed,
		TimeSpent:               row.TimeSpent,
		ReworkObservations:      row.ReworkObservations,
		ReworkDate:              utcPtr(row.ReworkDate),
		ReworkUserID:            row.ReworkUserID,
		ClosingNotes:            row.ClosingNotes,
		DateOfOccurrence:        row.DateOfOccurrence.UTC(),
		OpeningDate:             row.OpeningDate.UTC(),
		ClosingDate:             utcPtr(row.ClosingDate),
		OpenByID:                row.OpenByID,
		CurrentResponsibleID:    row.CurrentResponsibleID,
		ClosedByID:              row.ClosedByID,
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func fromPartRow(row model.Part) rnc.Part {
	return rnc.Part{
		ID:          row.ID,
		Code:        row.Code,
		Description: row.Description,
		Client:      row.Client,
		Active:      row.Active,
	}
}

func fromUserRow(row model.User) rnc.User {
	return rnc.User{
		ID:           row.ID,
		Name:         row.Name,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		Role:         rnc.Role(row.Role),
		Active:       row.Active,
	}
}
