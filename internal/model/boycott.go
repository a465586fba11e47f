package model

import "time"

// BoycottImpact はボイコットの想定影響度を表す。
type BoycottImpact string

const (
	ImpactLow      BoycottImpact = "low"
	ImpactMedium   BoycottImpact = "medium"
	ImpactHigh     BoycottImpact = "high"
	ImpactVeryHigh BoycottImpact = "very-high"
)

// Valid は既知の影響度かどうかを返す。
func (i BoycottImpact) Valid() bool {
	switch i {
	case ImpactLow, ImpactMedium, ImpactHigh, ImpactVeryHigh:
		return true
	}
	return false
}

// BoycottStatus はボイコットの進行状態を表す。
// active から successful / ended / deactivated のいずれかへ遷移する。
type BoycottStatus string

const (
	BoycottStatusActive      BoycottStatus = "active"
	BoycottStatusSuccessful  BoycottStatus = "successful"
	BoycottStatusEnded       BoycottStatus = "ended"
	BoycottStatusDeactivated BoycottStatus = "deactivated"
)

// Boycott はユーザーが組織するボイコットキャンペーンを表す。
// ParticipantsCountはboycott_participantsの集計値で、保存カラムではない。
type Boycott struct {
	ID                string
	Title             string
	Description       string
	Company           string
	Subject           string
	CategoryID        string
	CategoryName      string
	Impact            BoycottImpact
	Status            BoycottStatus
	StartDate         time.Time
	EndDate           *time.Time
	OrganizerID       string
	ParticipantsCount int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// BoycottStats はボイコット全体の統計値を表す。
type BoycottStats struct {
	Active            int
	TotalParticipants int
	Successful        int
	CompaniesChanged  int
}
