package company

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const (
	defaultLogoTimeout = 10 * time.Second
	defaultLogoMaxSize = 1024 * 1024
	userAgent          = "EthiCheck/1.0 (+logo-resolver)"
)

// SSRFValidator はSSRF検証のインターフェース。
// security.SSRFGuardServiceを抽象化してテストで差し替えられるようにする。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration) *http.Client
}

// logoCandidate はHTMLから検出したロゴ候補。
type logoCandidate struct {
	URL   string
	Score int
}

// LogoResolver は企業サイトのトップページからロゴ画像のURLを検出する。
type LogoResolver struct {
	ssrfGuard SSRFValidator
	timeout   time.Duration
	maxSize   int64
}

// NewLogoResolver はLogoResolverを生成する。timeoutとmaxSizeが0以下の場合は既定値を使う。
func NewLogoResolver(ssrfGuard SSRFValidator, timeout time.Duration, maxSize int64) *LogoResolver {
	if timeout <= 0 {
		timeout = defaultLogoTimeout
	}
	if maxSize <= 0 {
		maxSize = defaultLogoMaxSize
	}
	return &LogoResolver{ssrfGuard: ssrfGuard, timeout: timeout, maxSize: maxSize}
}

// Resolve はWebサイトURLからロゴの絶対URLを返す。
// 優先順位は apple-touch-icon > icon > og:image。いずれも無い場合は /favicon.ico が
// 画像として取得できればそれを返し、取得できなければ空文字列を返す。
func (r *LogoResolver) Resolve(ctx context.Context, websiteURL string) (string, error) {
	if websiteURL == "" {
		return "", nil
	}
	if err := r.ssrfGuard.ValidateURL(websiteURL); err != nil {
		return "", fmt.Errorf("website URL rejected: %w", err)
	}

	body, finalURL, contentType, err := r.get(ctx, websiteURL, "text/html,application/xhtml+xml")
	if err != nil {
		return "", err
	}

	mediaType, _, _ := mime.ParseMediaType(contentType)
	if strings.Contains(strings.ToLower(mediaType), "html") {
		if best := selectBestLogo(parseLogoCandidates(body, finalURL)); best != "" {
			return best, nil
		}
	}

	faviconURL := guessDefaultFaviconURL(finalURL)
	if faviconURL == "" {
		return "", nil
	}
	if r.isImage(ctx, faviconURL) {
		return faviconURL, nil
	}
	return "", nil
}

// get はURLを取得し、ボディ、リダイレクト後のURL、Content-Typeを返す。
func (r *LogoResolver) get(ctx context.Context, rawURL, accept string) ([]byte, string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", accept)

	resp, err := r.ssrfGuard.NewSafeClient(r.timeout).Do(req)
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", "", fmt.Errorf("unexpected status %d from %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.maxSize))
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to read response: %w", err)
	}
	return body, resp.Request.URL.String(), resp.Header.Get("Content-Type"), nil
}

func (r *LogoResolver) isImage(ctx context.Context, imageURL string) bool {
	_, _, contentType, err := r.get(ctx, imageURL, "image/*")
	if err != nil {
		return false
	}
	return isImageMime(extractMimeType(contentType))
}

// parseLogoCandidates はHTMLのheadからアイコンとog:imageを検出する。
// 相対URLはbaseURLを基準に絶対URLに解決される。
func parseLogoCandidates(htmlBody []byte, baseURL string) []logoCandidate {
	var candidates []logoCandidate

	baseU, err := url.Parse(baseURL)
	if err != nil {
		return candidates
	}

	tokenizer := html.NewTokenizer(bytes.NewReader(htmlBody))
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return candidates

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := tokenizer.TagName()
			tagName := string(tn)
			if tagName == "body" {
				return candidates
			}
			if !hasAttr || (tagName != "link" && tagName != "meta") {
				continue
			}

			attrs := map[string]string{}
			for {
				key, val, more := tokenizer.TagAttr()
				attrs[strings.ToLower(string(key))] = string(val)
				if !more {
					break
				}
			}

			var href string
			score := 0
			if tagName == "link" {
				href = attrs["href"]
				score = iconScore(strings.ToLower(attrs["rel"]))
			} else if strings.EqualFold(attrs["property"], "og:image") {
				href = attrs["content"]
				score = 1
			}
			if score == 0 || strings.TrimSpace(href) == "" {
				continue
			}

			resolved := resolveURL(baseU, strings.TrimSpace(href))
			if resolved == "" {
				continue
			}
			candidates = append(candidates, logoCandidate{URL: resolved, Score: score})

		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "head" {
				return candidates
			}
		}
	}
}

// iconScore はlink要素のrel値からロゴとしての優先度を返す。0は対象外。
func iconScore(rel string) int {
	fields := strings.Fields(rel)
	for _, f := range fields {
		if f == "apple-touch-icon" || f == "apple-touch-icon-precomposed" {
			return 3
		}
	}
	for _, f := range fields {
		if f == "icon" {
			return 2
		}
	}
	return 0
}

// selectBestLogo はスコアが最も高い候補を返す。同スコアの場合は先に現れた方を優先する。
func selectBestLogo(candidates []logoCandidate) string {
	best := ""
	bestScore := 0
	for _, c := range candidates {
		if c.Score > bestScore {
			best = c.URL
			bestScore = c.Score
		}
	}
	return best
}

// resolveURL は相対URLをベースURLを基準に絶対URLに解決する。http(s)以外は空文字列を返す。
func resolveURL(base *url.URL, rawRef string) string {
	ref, err := url.Parse(rawRef)
	if err != nil {
		return ""
	}
	u := base.ResolveReference(ref)
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

// guessDefaultFaviconURL はサイトURLからデフォルトのfavicon URLを推測する。
func guessDefaultFaviconURL(siteURL string) string {
	u, err := url.Parse(siteURL)
	if err != nil || u.Host == "" {
		return ""
	}
	u.Path = "/favicon.ico"
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// extractMimeType はContent-Typeヘッダーからメディアタイプを抽出する。
func extractMimeType(contentType string) string {
	parts := strings.SplitN(contentType, ";", 2)
	return strings.TrimSpace(strings.ToLower(parts[0]))
}

func isImageMime(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}
