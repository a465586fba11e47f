package model

import "time"

// ProfileType はプロフィールの種別を表す。
type ProfileType string

const (
	ProfileTypeUser    ProfileType = "user"
	ProfileTypeCreator ProfileType = "creator"
)

// Valid は既知の種別かどうかを返す。
func (p ProfileType) Valid() bool {
	return p == ProfileTypeUser || p == ProfileTypeCreator
}

// Profile はユーザーの公開プロフィールを表す。usersと1対1。
type Profile struct {
	UserID      string
	DisplayName string
	Username    string
	Bio         string
	AvatarURL   string
	ProfileType ProfileType
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsCreator はクリエイタープロフィールかどうかを返す。
func (p *Profile) IsCreator() bool {
	return p.ProfileType == ProfileTypeCreator
}

// ProfileStats はプロフィールに表示する集計値を表す。
type ProfileStats struct {
	Followers       int
	Following       int
	Posts           int
	RecommendCount  int
	NeutralCount    int
	DiscourageCount int
}

// Follow はユーザー間のフォロー関係を表す。
type Follow struct {
	ID          string
	FollowerID  string
	FollowingID string
	CreatedAt   time.Time
}
