package postcodec

import (
	"regexp"
	"strings"

	"github.com/hitoshi/ethicheck/internal/model"
)

// reviewHeaderPattern は保存済みカラムと一致しないヘッダ（企業名変更前の行など）を除去するための緩いパターン。
var reviewHeaderPattern = regexp.MustCompile(`^[★☆]+[ \t]+\d/5[ \t]+-[ \t]+[^()+\n]*(?:\([^)\n]*\))?[ \t]*(?:\r?\n[ \t]*)*`)

// Decode は投稿行を表示用のViewに変換する。
// 失敗することはなく、解釈できない場合は本文をそのまま表示する通常投稿として扱う。
func Decode(r Record) View {
	kind := r.Kind
	legacy := false
	if kind == "" {
		kind = inferLegacyKind(r)
		legacy = true
	}

	var v View
	switch kind {
	case model.PostKindReview:
		if r.CompanyName == "" || r.CompanyRating == nil {
			v = decodePlain(r)
			v.Degraded = true
		} else {
			v = decodeReview(r)
		}
	case model.PostKindBoycott:
		v = decodeBoycott(r)
	case model.PostKindPlain:
		v = decodePlain(r)
	default:
		v = decodePlain(r)
		v.Degraded = true
	}
	v.Legacy = legacy
	return v
}

// DecodeWithParticipants はDecodeの結果にボイコット参加者数の集計値を反映する。
// ボイコット告知以外の投稿では countは無視される。
func DecodeWithParticipants(r Record, count int) View {
	v := Decode(r)
	if v.Boycott != nil {
		v.Boycott.ParticipantsCount = count
	}
	return v
}

func decodePlain(r Record) View {
	return View{Kind: model.PostKindPlain, CleanContent: r.Content}
}

func decodeReview(r Record) View {
	clean, ok := stripReviewHeader(r)
	return View{
		Kind:         model.PostKindReview,
		CleanContent: clean,
		Company: &CompanyBlock{
			Name:     r.CompanyName,
			Rating:   *r.CompanyRating,
			Category: r.CompanyCategory,
		},
		Degraded: !ok,
	}
}

// stripReviewHeader はレビュー本文の先頭にある星評価ヘッダを取り除く。
// まず保存済みカラムから再構築したヘッダと完全一致を試し、次に緩いパターンを試す。
// どちらにも一致しない場合は本文をそのまま返す。
func stripReviewHeader(r Record) (string, bool) {
	header := ReviewHeader(*r.CompanyRating, r.CompanyName, r.CompanyCategory)
	if rest, found := strings.CutPrefix(r.Content, header); found {
		if rest == "" || rest[0] == '\n' || rest[0] == '\r' {
			return strings.TrimSpace(rest), true
		}
	}

	if loc := reviewHeaderPattern.FindStringIndex(r.Content); loc != nil {
		return strings.TrimSpace(r.Content[loc[1]:]), true
	}
	return r.Content, false
}

func decodeBoycott(r Record) View {
	lines := strings.Split(strings.ReplaceAll(r.Content, "\r\n", "\n"), "\n")

	titleIdx := -1
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			titleIdx = i
			break
		}
	}

	block := &BoycottBlock{
		Title:    defaultBoycottTitle,
		Company:  r.CompanyName,
		Subject:  defaultBoycottSubject,
		Category: r.CompanyCategory,
	}
	if block.Company == "" {
		block.Company = defaultBoycottCompany
	}
	if block.Category == "" {
		block.Category = defaultBoycottGroup
	}
	if titleIdx < 0 {
		return View{Kind: model.PostKindBoycott, Boycott: block, Degraded: true}
	}
	block.Title = strings.TrimSpace(lines[titleIdx])

	targetFound := false
	subjectIdx := -1
	for i := titleIdx; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if !targetFound {
			if v, ok := prefixedValue(line, targetPrefix); ok {
				block.Company = v
				targetFound = true
			}
		}
		if subjectIdx < 0 {
			if v, ok := prefixedValue(line, subjectPrefix); ok {
				block.Subject = v
				subjectIdx = i
			}
		}
	}

	from, to := titleIdx+1, len(lines)
	if subjectIdx >= 0 {
		from = subjectIdx + 1
		for i := from; i < len(lines); i++ {
			if strings.Contains(lines[i], boycottHashtag) {
				to = i
				break
			}
		}
	}
	block.Description = strings.TrimSpace(strings.Join(lines[from:to], "\n"))

	return View{
		Kind:         model.PostKindBoycott,
		CleanContent: block.Description,
		Boycott:      block,
		Degraded:     !targetFound || subjectIdx < 0,
	}
}

// prefixedValue はlineがprefixで始まる場合に、その後ろの値を返す。値が空の場合は見つからなかったものとする。
func prefixedValue(line, prefix string) (string, bool) {
	rest, ok := strings.CutPrefix(line, prefix)
	if !ok {
		return "", false
	}
	rest = strings.TrimSpace(rest)
	return rest, rest != ""
}
