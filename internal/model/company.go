package model

import "time"

// Company は評価対象の企業を表す。
type Company struct {
	ID          string
	Name        string
	Industry    string
	Description string
	WebsiteURL  string
	LogoURL     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CompanyRating はcompany_ratings_viewの1行を表す。
// 平均評価は該当カテゴリのレビューが無い場合nilとなる。
type CompanyRating struct {
	Company
	AvgEthics          *float64
	AvgEnvironment     *float64
	AvgPolitics        *float64
	AvgOverall         *float64
	RecommendCount     int
	NeutralCount       int
	DiscourageCount    int
	ActiveBoycottCount int
	TotalRatings       int
}

// ReviewCategory はレビューの評価観点を表す。
type ReviewCategory string

const (
	ReviewCategoryEthics      ReviewCategory = "ethics"
	ReviewCategoryEnvironment ReviewCategory = "environment"
	ReviewCategoryPolitics    ReviewCategory = "politics"
	ReviewCategoryOverall     ReviewCategory = "overall"
)

// ReviewCategories は全レビューカテゴリを表示順に返す。
func ReviewCategories() []ReviewCategory {
	return []ReviewCategory{
		ReviewCategoryEthics,
		ReviewCategoryEnvironment,
		ReviewCategoryPolitics,
		ReviewCategoryOverall,
	}
}

// Valid は既知のカテゴリかどうかを返す。
func (c ReviewCategory) Valid() bool {
	switch c {
	case ReviewCategoryEthics, ReviewCategoryEnvironment, ReviewCategoryPolitics, ReviewCategoryOverall:
		return true
	}
	return false
}

// Review はユーザーの企業レビューを表す。(user, company, category)ごとに1件。
type Review struct {
	ID          string
	UserID      string
	CompanyID   string
	CompanyName string
	Category    ReviewCategory
	Rating      int
	ReviewText  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// StanceType は企業に対する推奨度を表す。
type StanceType string

const (
	StanceRecommend  StanceType = "recommend"
	StanceNeutral    StanceType = "neutral"
	StanceDiscourage StanceType = "discourage"
)

// Valid は既知のスタンスかどうかを返す。
func (s StanceType) Valid() bool {
	switch s {
	case StanceRecommend, StanceNeutral, StanceDiscourage:
		return true
	}
	return false
}

// Stance はユーザーの企業に対するスタンスを表す。(user, company)ごとに1件。
type Stance struct {
	ID                string
	UserID            string
	CompanyID         string
	CompanyName       string
	Stance            StanceType
	EthicsRating      *int
	EnvironmentRating *int
	PoliticsRating    *int
	OverallRating     *int
	Notes             string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Category はボイコットの分類を表す。
type Category struct {
	ID          string
	Name        string
	Color       string
	Description string
	CreatedAt   time.Time
}
