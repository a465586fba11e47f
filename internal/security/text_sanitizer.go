// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer はユーザーが入力したプレーンテキスト（投稿本文、レビュー、ボイコット説明など）から
// HTMLタグを取り除く。クライアントはテキストとして描画するため、タグを一切残さない。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はユーザー入力テキストのサニタイズ機能のインターフェース。
type TextSanitizer interface {
	// Clean はHTMLタグとscript/style要素の中身を除去し、エンティティを元の文字に戻す。
	// エンティティで表記されたタグも除去する。前後の空白は保持する。
	Clean(s string) string
}

// textSanitizer はbluemondayのStrictPolicyを使ったTextSanitizerの実装。
// ポリシーはスレッドセーフで、複数goroutineから共有できる。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// maxCleanPasses はエンティティが多重にエスケープされた入力に対する除去の繰り返し上限。
const maxCleanPasses = 5

// Clean はHTMLタグを除去したテキストを返す。
// StrictPolicyは & や < をエスケープして出力するため、結果をアンエスケープして次の入力にする。
// &lt;script&gt; のようなエンティティ表記のタグはアンエスケープで実際のタグになるので、
// 出力が変化しなくなるまで除去を繰り返す。上限に達した場合はエスケープされたままの文字列を返す。
func (s *textSanitizer) Clean(in string) string {
	if !strings.ContainsAny(in, "<>&") {
		return in
	}

	cur := in
	for range maxCleanPasses {
		next := html.UnescapeString(s.policy.Sanitize(cur))
		if next == cur {
			return cur
		}
		cur = next
	}
	return s.policy.Sanitize(cur)
}
