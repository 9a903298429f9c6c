package rnc

import (
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusOpen   Status = "ABERTO"
	StatusClosed Status = "FECHADO"
)

type Condition string

const (
	ConditionInAnalysis           Condition = "EM_ANALISE"
	ConditionAwaitingRework       Condition = "AGUARDANDO_RETRABALHO"
	ConditionAwaitingVerification Condition = "AGUARDANDO_VERIFICACAO"
	ConditionApproved             Condition = "APROVADO"
	ConditionScrapped             Condition = "REFUGO"
)

// Terminal conditions are always paired with StatusClosed.
func (c Condition) Terminal() bool {
	return c == ConditionApproved || c == ConditionScrapped
}

type CriticalLevel string

const (
	CriticalLow      CriticalLevel = "BAIXA"
	CriticalMedium   CriticalLevel = "MEDIA"
	CriticalHigh     CriticalLevel = "ALTA"
	CriticalCritical CriticalLevel = "CRITICA"
)

var (
	allStatuses       = []Status{StatusOpen, StatusClosed}
	allConditions     = []Condition{ConditionInAnalysis, ConditionAwaitingRework, ConditionAwaitingVerification, ConditionApproved, ConditionScrapped}
	allCriticalLevels = []CriticalLevel{CriticalLow, CriticalMedium, CriticalHigh, CriticalCritical}
)

func ParseStatus(raw string) (Status, error) {
	for _, s := range allStatuses {
		if strings.EqualFold(strings.TrimSpace(raw), string(s)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
}

func ParseCondition(raw string) (Condition, error) {
	for _, c := range allConditions {
		if strings.EqualFold(strings.TrimSpace(raw), string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCondition, raw)
}

func ParseCriticalLevel(raw string) (CriticalLevel, error) {
	for _, l := range allCriticalLevels {
		if strings.EqualFold(strings.TrimSpace(raw), string(l)) {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCriticalLevel, raw)
}

// RNC is a non-conformance report. It is never deleted; the record is its own audit trail.
type RNC struct {
	ID            uint64
	Number        uint64
	Title         string
	CriticalLevel CriticalLevel
	PartCode      string
	PartID        uint64
	Status        Status
	Condition     Condition
	Observations  string

	RootCause               string
	CorrectiveAction        string
	PreventiveAction        string
	AnalysisObservations    string
	EstimatedReworkTime     float64
	RequiresExternalSupport bool
	QualityVerified         bool
	AnalysisDate            *time.Time
	AnalysisUserID          *uint64

	ReworkDescription  string
	ActionsTaken       string
	MaterialsUsed      string
	TimeSpent          float64
	ReworkObservations string
	ReworkDate         *time.Time
	ReworkUserID       *uint64

	ClosingNotes string

	DateOfOccurrence time.Time
	OpeningDate      time.Time
	ClosingDate      *time.Time

	OpenByID             uint64
	CurrentResponsibleID *uint64
	ClosedByID           *uint64
}

func (r RNC) IsClosed() bool {
	return r.Status == StatusClosed
}

// HasAnalysis reports whether the quality stage recorded a root cause and a corrective action.
func (r RNC) HasAnalysis() bool {
	return strings.TrimSpace(r.RootCause) != "" && strings.TrimSpace(r.CorrectiveAction) != ""
}

func (r RNC) HasRework() bool {
	return r.ReworkDate != nil
}

type Part struct {
	ID          uint64
	Code        string
	Description string
	Client      string
	Active      bool
}

type User struct {
	ID           uint64
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Active       bool
}

// Actor is the verified identity performing a workflow action.
type Actor struct {
	UserID uint64
	Role   Role
}

func (a Actor) userIDPtr() *uint64 {
	id := a.UserID
	return &id
}
