package rnc

import (
	"fmt"
	"strings"
	"time"
)

// Draft is what an operator submits to open a report.
type Draft struct {
	Title         string
	CriticalLevel string
	PartCode      string
	Observations  string
}

func (d Draft) Normalize() (Draft, CriticalLevel, error) {
	d.Title = strings.TrimSpace(d.Title)
	d.PartCode = strings.TrimSpace(d.PartCode)
	d.Observations = strings.TrimSpace(d.Observations)

	if d.Title == "" {
		return Draft{}, "", fmt.Errorf("%w: title", ErrFieldRequired)
	}
	if d.PartCode == "" {
		return Draft{}, "", fmt.Errorf("%w: part_code", ErrFieldRequired)
	}
	level, err := ParseCriticalLevel(d.CriticalLevel)
	if err != nil {
		return Draft{}, "", err
	}
	d.CriticalLevel = string(level)
	return d, level, nil
}

// NewRNC builds a freshly opened report. Authorization and the duplicate check happen in the caller's transaction.
func NewRNC(number uint64, draft Draft, part Part, actor Actor, now time.Time) (RNC, error) {
	if err := Authorize(ActionOpen, actor.Role); err != nil {
		return RNC{}, err
	}
	draft, level, err := draft.Normalize()
	if err != nil {
		return RNC{}, err
	}

	return RNC{
		Number:           number,
		Title:            draft.Title,
		CriticalLevel:    level,
		PartCode:         part.Code,
		PartID:           part.ID,
		Status:           StatusOpen,
		Condition:        ConditionInAnalysis,
		Observations:     draft.Observations,
		DateOfOccurrence: now,
		OpeningDate:      now,
		OpenByID:         actor.UserID,
	}, nil
}

// Analysis is the quality stage payload.
type Analysis struct {
	RootCause               string
	CorrectiveAction        string
	PreventiveAction        string
	Observations            string
	EstimatedReworkTime     float64
	RequiresExternalSupport bool
	QualityVerified         bool
	CloseRNC                bool
	Refused                 bool
	ResponsibleID           *uint64
}

func (a Analysis) validate() error {
	if strings.TrimSpace(a.RootCause) == "" {
		return fmt.Errorf("%w: root_cause", ErrFieldRequired)
	}
	if strings.TrimSpace(a.CorrectiveAction) == "" {
		return fmt.Errorf("%w: corrective_action", ErrFieldRequired)
	}
	if a.EstimatedReworkTime < 0 {
		return fmt.Errorf("%w: estimated_rework_time must not be negative", ErrInvalidField)
	}
	if a.Refused && !a.CloseRNC {
		return fmt.Errorf("%w: refused requires close_rnc", ErrInvalidField)
	}
	return nil
}

func ApplyAnalysis(r *RNC, a Analysis, actor Actor, now time.Time) error {
	if err := CheckTransition(*r, ActionAnalyze, actor); err != nil {
		return err
	}
	if err := a.validate(); err != nil {
		return err
	}

	r.RootCause = strings.TrimSpace(a.RootCause)
	r.CorrectiveAction = strings.TrimSpace(a.CorrectiveAction)
	r.PreventiveAction = strings.TrimSpace(a.PreventiveAction)
	r.AnalysisObservations = strings.TrimSpace(a.Observations)
	r.EstimatedReworkTime = a.EstimatedReworkTime
	r.RequiresExternalSupport = a.RequiresExternalSupport
	r.QualityVerified = a.QualityVerified
	r.AnalysisDate = &now
	r.AnalysisUserID = actor.userIDPtr()
	if a.ResponsibleID != nil {
		r.CurrentResponsibleID = a.ResponsibleID
	}

	switch {
	case !a.CloseRNC:
		r.Condition = ConditionAwaitingRework
	case a.Refused:
		closeRNC(r, ConditionScrapped, actor, now)
	default:
		closeRNC(r, ConditionApproved, actor, now)
	}
	return nil
}

// Rework is the technician stage payload.
type Rework struct {
	Description   string
	ActionsTaken  string
	MaterialsUsed string
	TimeSpent     float64
	Observations  string
	ResponsibleID *uint64
}

func (w Rework) validate() error {
	if strings.TrimSpace(w.Description) == "" {
		return fmt.Errorf("%w: rework_description", ErrFieldRequired)
	}
	if strings.TrimSpace(w.ActionsTaken) == "" {
		return fmt.Errorf("%w: actions_taken", ErrFieldRequired)
	}
	if w.TimeSpent < 0 {
		return fmt.Errorf("%w: time_spent must not be negative", ErrInvalidField)
	}
	return nil
}

func ApplyRework(r *RNC, w Rework, actor Actor, now time.Time) error {
	if err := CheckTransition(*r, ActionRework, actor); err != nil {
		return err
	}
	if !r.HasAnalysis() {
		return fmt.Errorf("%w: rnc %d", ErrAnalysisMissing, r.Number)
	}
	if err := w.validate(); err != nil {
		return err
	}

	r.ReworkDescription = strings.TrimSpace(w.Description)
	r.ActionsTaken = strings.TrimSpace(w.ActionsTaken)
	r.MaterialsUsed = strings.TrimSpace(w.MaterialsUsed)
	r.TimeSpent = w.TimeSpent
	r.ReworkObservations = strings.TrimSpace(w.Observations)
	r.ReworkDate = &now
	r.ReworkUserID = actor.userIDPtr()
	r.Condition = ConditionAwaitingVerification
	if w.ResponsibleID != nil {
		r.CurrentResponsibleID = w.ResponsibleID
	}
	return nil
}

// ApplyClose closes without touching the condition.
func ApplyClose(r *RNC, note string, actor Actor, now time.Time) error {
	if err := CheckTransition(*r, ActionClose, actor); err != nil {
		return err
	}
	r.ClosingNotes = strings.TrimSpace(note)
	closeRNC(r, r.Condition, actor, now)
	return nil
}

// Update is the generic edit path. Nil fields are left unchanged.
type Update struct {
	Title         *string
	CriticalLevel *string
	Observations  *string
	ResponsibleID *uint64
}

func ApplyUpdate(r *RNC, u Update, actor Actor) error {
	if err := CheckTransition(*r, ActionUpdate, actor); err != nil {
		return err
	}

	if u.Title != nil {
		title := strings.TrimSpace(*u.Title)
		if title == "" {
			return fmt.Errorf("%w: title", ErrFieldRequired)
		}
		r.Title = title
	}
	if u.CriticalLevel != nil {
		level, err := ParseCriticalLevel(*u.CriticalLevel)
		if err != nil {
			return err
		}
		r.CriticalLevel = level
	}
	if u.Observations != nil {
		r.Observations = strings.TrimSpace(*u.Observations)
	}

	if u.ResponsibleID != nil {
		r.CurrentResponsibleID = u.ResponsibleID
	} else {
		r.CurrentResponsibleID = actor.userIDPtr()
	}
	return nil
}

func closeRNC(r *RNC, condition Condition, actor Actor, now time.Time) {
	r.Status = StatusClosed
	r.Condition = condition
	r.ClosingDate = &now
	r.ClosedByID = actor.userIDPtr()
}
