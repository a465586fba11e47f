package postcodec

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hitoshi/ethicheck/internal/model"
)

// ReviewIntent は企業レビューの投稿インテント。
type ReviewIntent struct {
	CompanyName string
	Category    model.ReviewCategory
	Rating      int
	ReviewText  string
}

// StanceIntent は企業スタンスの投稿インテント。
type StanceIntent struct {
	CompanyName     string
	CompanyCategory string
	Stance          model.StanceType
	Notes           string
}

// BoycottIntent はボイコット告知の投稿インテント。
type BoycottIntent struct {
	Title       string
	Company     string
	Subject     string
	Category    string
	Description string
}

// PlainIntent は通常のテキスト投稿インテント。
type PlainIntent struct {
	Text string
}

// InteractionKind は投稿作成操作の種別を表す。
type InteractionKind string

const (
	InteractionPlain   InteractionKind = "plain"
	InteractionReview  InteractionKind = "review"
	InteractionStance  InteractionKind = "stance"
	InteractionBoycott InteractionKind = "boycott"
)

// Intent は投稿作成操作の記述子 {kind, fields} を表す。
// Kindに対応するフィールドのみが参照される。
type Intent struct {
	Kind    InteractionKind
	Plain   *PlainIntent
	Review  *ReviewIntent
	Stance  *StanceIntent
	Boycott *BoycottIntent
}

// ErrUnknownInteraction はIntentの種別が未知、または対応するフィールドが欠けている場合に返される。
var ErrUnknownInteraction = errors.New("postcodec: unknown interaction")

// Encode は投稿作成操作を単一の経路でエンコードする。
// フィールド内容の検証は呼び出し側の責務で、ここでは行わない。
func Encode(in Intent) (Body, error) {
	switch in.Kind {
	case InteractionPlain:
		if in.Plain != nil {
			return EncodePlain(*in.Plain), nil
		}
	case InteractionReview:
		if in.Review != nil {
			return EncodeReview(*in.Review), nil
		}
	case InteractionStance:
		if in.Stance != nil {
			return EncodeStance(*in.Stance), nil
		}
	case InteractionBoycott:
		if in.Boycott != nil {
			return EncodeBoycottAnnouncement(*in.Boycott), nil
		}
	}
	return Body{}, fmt.Errorf("%w: %q", ErrUnknownInteraction, in.Kind)
}

// EncodePlain は本文をそのまま保持する通常投稿を生成する。
func EncodePlain(in PlainIntent) Body {
	return Body{Kind: model.PostKindPlain, Content: in.Text}
}

// EncodeReview は星評価ヘッダ付きのレビュー投稿を生成する。
//
//	★★★★☆ 4/5 - Acme (ethics)
//
//	Solid labor record.
//
// カテゴリがoverallの場合は括弧書きを付けない。
func EncodeReview(in ReviewIntent) Body {
	rating := in.Rating
	return Body{
		Kind:            model.PostKindReview,
		Content:         ReviewHeader(in.Rating, in.CompanyName, string(in.Category)) + "\n\n" + in.ReviewText,
		CompanyName:     in.CompanyName,
		CompanyCategory: string(in.Category),
		CompanyRating:   &rating,
	}
}

// ReviewHeader はレビュー投稿の1行目を組み立てる。
// 星の数は0から5に丸める。
func ReviewHeader(rating int, companyName, category string) string {
	filled := min(max(rating, 0), 5)

	var b strings.Builder
	b.WriteString(strings.Repeat("★", filled))
	b.WriteString(strings.Repeat("☆", 5-filled))
	fmt.Fprintf(&b, " %d/5 - %s", rating, companyName)
	if category != "" && category != string(model.ReviewCategoryOverall) {
		fmt.Fprintf(&b, " (%s)", category)
	}
	return b.String()
}

// EncodeStance は「I recommend Acme. ...」形式の通常投稿を生成する。
// 企業名とカテゴリは構造化カラムにも保存するが、評価値は持たない。
func EncodeStance(in StanceIntent) Body {
	return Body{
		Kind:            model.PostKindPlain,
		Content:         fmt.Sprintf("I %s %s. %s", stanceVerb(in.Stance), in.CompanyName, in.Notes),
		CompanyName:     in.CompanyName,
		CompanyCategory: in.CompanyCategory,
	}
}

func stanceVerb(s model.StanceType) string {
	switch s {
	case model.StanceRecommend:
		return "recommend"
	case model.StanceDiscourage:
		return "discourage"
	default:
		return "am neutral on"
	}
}

// EncodeBoycottAnnouncement はボイコット告知投稿を生成する。
//
//	{title}
//	Target: {company}
//	Subject: {subject}
//	{description}
//
//	#Boycott
func EncodeBoycottAnnouncement(in BoycottIntent) Body {
	var b strings.Builder
	b.WriteString(in.Title)
	b.WriteString("\n" + targetPrefix + " " + in.Company)
	b.WriteString("\n" + subjectPrefix + " " + in.Subject)
	b.WriteString("\n" + in.Description)
	b.WriteString("\n\n" + boycottHashtag)

	return Body{
		Kind:            model.PostKindBoycott,
		Content:         b.String(),
		CompanyName:     in.Company,
		CompanyCategory: in.Category,
		IsBoycott:       true,
	}
}

// ValidateBoycottLayout は告知本文から元の値を読み戻せなくなる入力を検出する。
// タイトル、対象企業、主題はそれぞれ1行として書き出され、タイトル行はTarget:やSubject:で
// 始まってはならない。説明は#Boycottを含む最初の行の手前までとして読み戻される。
func ValidateBoycottLayout(in BoycottIntent) error {
	for _, f := range []struct{ name, value string }{
		{"title", in.Title},
		{"company", in.Company},
		{"subject", in.Subject},
	} {
		if strings.ContainsAny(f.value, "\r\n") {
			return model.NewValidationError(f.name, "改行を含めることはできません")
		}
	}

	title := strings.TrimSpace(in.Title)
	if strings.HasPrefix(title, targetPrefix) || strings.HasPrefix(title, subjectPrefix) {
		return model.NewValidationError("title", fmt.Sprintf("%s または %s で始めることはできません", targetPrefix, subjectPrefix))
	}
	if strings.Contains(in.Description, boycottHashtag) {
		return model.NewValidationError("description", fmt.Sprintf("%s を含めることはできません", boycottHashtag))
	}
	return nil
}
