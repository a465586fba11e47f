package security

import (
	"html"
	"strings"
	"testing"
)

// TestClean_StripsTags はHTMLタグが除去されテキストが残ることを検証する。
func TestClean_StripsTags(t *testing.T) {
	s := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"プレーンテキストはそのまま", "Solid labor record.", "Solid labor record."},
		{"前後の空白を保持", "  padded  ", "  padded  "},
		{"改行を保持", "line1\n\nline2", "line1\n\nline2"},
		{"強調タグを除去", "<b>Great</b> company", "Great company"},
		{"アンパサンドを復元", "Tom & Jerry", "Tom & Jerry"},
		{"タグ混在のアンパサンド", "<i>R&D</i> spend", "R&D spend"},
		{"星評価の記号を保持", "★★★★☆ 4/5", "★★★★☆ 4/5"},
		{"空文字列", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Clean(tt.input); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestClean_XSSPayloads は代表的なXSSペイロードからタグが残らないことを検証する。
func TestClean_XSSPayloads(t *testing.T) {
	s := NewTextSanitizer()

	payloads := []string{
		`<script>alert('xss')</script>hello`,
		`<img src=x onerror=alert(1)>hello`,
		`<a href="javascript:alert(1)">hello</a>`,
		`<iframe src="https://evil.example"></iframe>hello`,
		`<style>body{display:none}</style>hello`,
	}

	for _, p := range payloads {
		got := s.Clean(p)
		if strings.Contains(got, "<") {
			t.Errorf("Clean(%q) = %q, tag remains", p, got)
		}
		if strings.Contains(got, "alert") {
			t.Errorf("Clean(%q) = %q, script body remains", p, got)
		}
		if !strings.Contains(got, "hello") {
			t.Errorf("Clean(%q) = %q, text lost", p, got)
		}
	}
}

// TestClean_EntityEncodedMarkup はエンティティで表記されたタグがアンエスケープ後に復活しないことを検証する。
func TestClean_EntityEncodedMarkup(t *testing.T) {
	s := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"scriptタグ", "&lt;script&gt;alert(1)&lt;/script&gt;", ""},
		{"imgタグ", "&lt;img src=x onerror=alert(1)&gt;", ""},
		{"前後のテキストは残す", "before &lt;b&gt;bold&lt;/b&gt; after", "before bold after"},
		{"二重エスケープ", "&amp;lt;script&amp;gt;alert(1)&amp;lt;/script&amp;gt;ok", "ok"},
		{"数値文字参照", "&#60;iframe src=x&#62;&#60;/iframe&#62;hi", "hi"},
		{"タグでない不等号", "a &lt; b", "a < b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Clean(tt.input)
			if got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if strings.Contains(got, "<script") || strings.Contains(got, "<img") || strings.Contains(got, "<iframe") {
				t.Errorf("Clean(%q) = %q, tag remains", tt.input, got)
			}
		})
	}
}

// TestClean_DeeplyEscapedStaysEscaped は繰り返しの上限を超える入力がタグとして返らないことを検証する。
func TestClean_DeeplyEscapedStaysEscaped(t *testing.T) {
	s := NewTextSanitizer()

	in := "<script>x</script>"
	for range maxCleanPasses + 2 {
		in = html.EscapeString(in)
	}
	got := s.Clean(in)
	if strings.Contains(got, "<") {
		t.Errorf("Clean() = %q, contains a raw '<'", got)
	}
}

// TestClean_Idempotent は2回適用しても結果が変わらないことを検証する。
func TestClean_Idempotent(t *testing.T) {
	s := NewTextSanitizer()
	in := "<p>Boycott <em>Acme</em> & friends</p>"
	once := s.Clean(in)
	if twice := s.Clean(once); twice != once {
		t.Errorf("not idempotent: %q -> %q", once, twice)
	}
}

// TestTextSanitizerInterface はtextSanitizerがインターフェースを満たすことを検証する。
func TestTextSanitizerInterface(t *testing.T) {
	var _ TextSanitizer = NewTextSanitizer()
}
