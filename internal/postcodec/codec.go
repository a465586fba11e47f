// Package postcodec は構造化された投稿インテント（レビュー、スタンス、ボイコット告知、通常投稿）と
// フィードに保存される投稿本文との相互変換を提供する。
//
// エンコードは作成時に一度だけ行われ、種別はposts.kindに明示的に保存される。
// デコードは表示用のビューを組み立てる純粋関数で、失敗せず入力を変更しない。
// kindカラムを持たない過去の行はlegacy.goの推定ロジックで種別を決定する。
package postcodec

import "github.com/hitoshi/ethicheck/internal/model"

// Body はエンコード済みの投稿本文と、投稿行に保存する構造化カラムを表す。
// Kindが Plain / Review / BoycottAnnouncement のどれであるかを示すタグとなる。
type Body struct {
	Kind            model.PostKind
	Content         string
	CompanyName     string
	CompanyCategory string
	CompanyRating   *int
	IsBoycott       bool
}

// Record はデコーダが読み取る投稿行のカラムを表す。
type Record struct {
	Kind            model.PostKind
	Content         string
	CompanyName     string
	CompanyCategory string
	CompanyRating   *int
	IsBoycott       bool
}

// RecordFromPost は保存済みの投稿からデコード用のRecordを組み立てる。
func RecordFromPost(p *model.Post) Record {
	return Record{
		Kind:            p.Kind,
		Content:         p.Content,
		CompanyName:     p.CompanyName,
		CompanyCategory: p.CompanyCategory,
		CompanyRating:   p.CompanyRating,
		IsBoycott:       p.IsBoycott,
	}
}

// CompanyBlock はレビュー投稿に表示する企業情報ブロック。
type CompanyBlock struct {
	Name     string
	Rating   int
	Category string
}

// BoycottBlock はボイコット告知投稿に表示するボイコット情報ブロック。
type BoycottBlock struct {
	Title             string
	Company           string
	Subject           string
	Description       string
	ParticipantsCount int
	Category          string
}

// View は投稿カードの描画に使うデコード結果。
// CompanyとBoycottは同時に設定されない。
type View struct {
	Kind         model.PostKind
	CleanContent string
	Company      *CompanyBlock
	Boycott      *BoycottBlock

	// Legacy はkindカラムが空の行を推定でデコードした場合にtrueとなる。
	Legacy bool
	// Degraded は期待した形式で解釈できず、本文をそのまま表示した場合にtrueとなる。
	Degraded bool
}

const (
	defaultBoycottTitle   = "Boycott Campaign"
	defaultBoycottCompany = "Unknown Company"
	defaultBoycottSubject = "Corporate accountability"
	defaultBoycottGroup   = "General"

	boycottHashtag = "#Boycott"
	targetPrefix   = "Target:"
	subjectPrefix  = "Subject:"
)
