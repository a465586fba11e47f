package postcodec

import "github.com/hitoshi/ethicheck/internal/model"

// inferLegacyKind はkindカラム導入前に保存された行の種別をカラムの組み合わせから推定する。
// 企業名と評価値があればレビュー、is_boycottならボイコット告知、それ以外は通常投稿。
func inferLegacyKind(r Record) model.PostKind {
	switch {
	case r.CompanyName != "" && r.CompanyRating != nil:
		return model.PostKindReview
	case r.IsBoycott:
		return model.PostKindBoycott
	default:
		return model.PostKindPlain
	}
}
