// Package post はフィード投稿の作成、一覧、いいねのドメインロジックを提供する。
//
// 投稿本文の組み立てと復元はpostcodecに委ね、このパッケージは入力検証、
// 永続化、キャッシュ無効化、イベント発行を担う。
package post

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/ethicheck/internal/cache"
	"github.com/hitoshi/ethicheck/internal/events"
	"github.com/hitoshi/ethicheck/internal/metrics"
	"github.com/hitoshi/ethicheck/internal/model"
	"github.com/hitoshi/ethicheck/internal/postcodec"
	"github.com/hitoshi/ethicheck/internal/repository"
	"github.com/hitoshi/ethicheck/internal/security"
)

// MaxContentLength は投稿本文の最大文字数。
const MaxContentLength = 5000

// DefaultPageSize はlimit未指定時のフィード件数。
const DefaultPageSize = 30

// maxPageSize はlimitの上限。
const maxPageSize = 100

// CreateInput は投稿作成操作の入力。
type CreateInput struct {
	Intent postcodec.Intent
	// BoycottID はボイコット作成フローからの告知投稿の場合に設定する。
	BoycottID string
}

// FeedQuery はフィード取得条件。
type FeedQuery struct {
	Cursor   string
	Limit    int
	Scope    model.FeedScope
	AuthorID string
}

// Author は投稿者の表示情報。
type Author struct {
	UserID      string
	DisplayName string
	Username    string
	AvatarURL   string
	IsCreator   bool
}

// FeedItem はデコード済みの投稿。
type FeedItem struct {
	ID            string
	Author        Author
	View          postcodec.View
	BoycottID     string
	LikesCount    int
	CommentsCount int
	LikedByViewer bool
	CreatedAt     time.Time
	TimeLabel     string
}

// FeedPage はフィードの1ページ分の結果。
type FeedPage struct {
	Items      []FeedItem
	NextCursor string
	HasMore    bool
}

// Options はServiceの任意の依存。nilのフィールドは何もしない実装で補われる。
type Options struct {
	Cache     cache.Store
	Publisher events.Publisher
	Metrics   metrics.MetricsCollector
	Sanitizer security.TextSanitizer
	PageSize  int
	Now       func() time.Time
}

// Service は投稿のサービス層。
type Service struct {
	postRepo        repository.PostRepository
	followRepo      repository.FollowRepository
	participantRepo repository.BoycottParticipantRepository

	cache     cache.Store
	publisher events.Publisher
	metrics   metrics.MetricsCollector
	sanitizer security.TextSanitizer
	pageSize  int
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	postRepo repository.PostRepository,
	followRepo repository.FollowRepository,
	participantRepo repository.BoycottParticipantRepository,
	opts Options,
) *Service {
	s := &Service{
		postRepo:        postRepo,
		followRepo:      followRepo,
		participantRepo: participantRepo,
		cache:           opts.Cache,
		publisher:       opts.Publisher,
		metrics:         opts.Metrics,
		sanitizer:       opts.Sanitizer,
		pageSize:        opts.PageSize,
		now:             opts.Now,
	}
	if s.cache == nil {
		s.cache = cache.NopStore{}
	}
	if s.publisher == nil {
		s.publisher = events.NopPublisher{}
	}
	if s.metrics == nil {
		s.metrics = metrics.NopCollector{}
	}
	if s.sanitizer == nil {
		s.sanitizer = security.NewTextSanitizer()
	}
	if s.pageSize <= 0 {
		s.pageSize = DefaultPageSize
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Create は投稿作成操作を検証、エンコードして保存する。
// 投稿種別に応じた必須項目が欠けている場合はバリデーションエラーを返す。
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*model.Post, error) {
	intent := s.sanitizeIntent(in.Intent)
	if err := ValidateIntent(intent); err != nil {
		return nil, err
	}

	body, err := postcodec.Encode(intent)
	if err != nil {
		return nil, model.NewInvalidInteractionError(string(intent.Kind))
	}
	if utf8.RuneCountInString(body.Content) > MaxContentLength {
		return nil, model.NewValidationError("content", fmt.Sprintf("%d文字以内で入力してください", MaxContentLength))
	}

	now := s.now()
	p := &model.Post{
		ID:              uuid.New().String(),
		UserID:          userID,
		Kind:            body.Kind,
		Content:         body.Content,
		CompanyName:     body.CompanyName,
		CompanyCategory: body.CompanyCategory,
		CompanyRating:   body.CompanyRating,
		IsBoycott:       body.IsBoycott,
		BoycottID:       in.BoycottID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.postRepo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("投稿の保存に失敗しました: %w", err)
	}

	s.metrics.RecordPostCreated(string(p.Kind))
	s.invalidateFeed(ctx)
	s.publish(ctx, events.Event{Type: events.PostCreated, PostID: p.ID, UserID: userID, BoycottID: p.BoycottID, At: now})

	slog.Info("post created",
		slog.String("post_id", p.ID),
		slog.String("user_id", userID),
		slog.String("kind", string(p.Kind)),
	)
	return p, nil
}

// ValidateIntent は投稿種別ごとの必須項目を検証する。
func ValidateIntent(in postcodec.Intent) error {
	switch in.Kind {
	case postcodec.InteractionPlain:
		if in.Plain == nil || strings.TrimSpace(in.Plain.Text) == "" {
			return model.NewValidationError("text", "本文を入力してください")
		}
	case postcodec.InteractionReview:
		r := in.Review
		if r == nil {
			return model.NewValidationError("review", "レビュー内容がありません")
		}
		if strings.TrimSpace(r.CompanyName) == "" {
			return model.NewValidationError("company_name", "企業名を入力してください")
		}
		if r.Rating < 1 || r.Rating > 5 {
			return model.NewValidationError("rating", "評価は1から5で指定してください")
		}
		if !r.Category.Valid() {
			return model.NewValidationError("category", fmt.Sprintf("無効なカテゴリです: %s", r.Category))
		}
		if strings.TrimSpace(r.ReviewText) == "" {
			return model.NewValidationError("review_text", "レビュー本文を入力してください")
		}
	case postcodec.InteractionStance:
		st := in.Stance
		if st == nil {
			return model.NewValidationError("stance", "スタンス内容がありません")
		}
		if strings.TrimSpace(st.CompanyName) == "" {
			return model.NewValidationError("company_name", "企業名を入力してください")
		}
		if !st.Stance.Valid() {
			return model.NewValidationError("stance", fmt.Sprintf("無効なスタンスです: %s", st.Stance))
		}
		if strings.TrimSpace(st.Notes) == "" {
			return model.NewValidationError("notes", "コメントを入力してください")
		}
	case postcodec.InteractionBoycott:
		b := in.Boycott
		if b == nil {
			return model.NewValidationError("boycott", "ボイコット内容がありません")
		}
		if strings.TrimSpace(b.Title) == "" {
			return model.NewValidationError("title", "タイトルを入力してください")
		}
		if strings.TrimSpace(b.Company) == "" {
			return model.NewValidationError("company", "対象企業を入力してください")
		}
		if strings.TrimSpace(b.Subject) == "" {
			return model.NewValidationError("subject", "主題を入力してください")
		}
		if err := postcodec.ValidateBoycottLayout(*b); err != nil {
			return err
		}
	default:
		return model.NewInvalidInteractionError(string(in.Kind))
	}
	return nil
}

// sanitizeIntent は利用者が入力したテキストからHTMLを除去したコピーを返す。
func (s *Service) sanitizeIntent(in postcodec.Intent) postcodec.Intent {
	out := postcodec.Intent{Kind: in.Kind}
	clean := s.sanitizer.Clean
	if in.Plain != nil {
		out.Plain = &postcodec.PlainIntent{Text: clean(in.Plain.Text)}
	}
	if in.Review != nil {
		r := *in.Review
		r.CompanyName = strings.TrimSpace(clean(r.CompanyName))
		r.ReviewText = strings.TrimSpace(clean(r.ReviewText))
		out.Review = &r
	}
	if in.Stance != nil {
		st := *in.Stance
		st.CompanyName = strings.TrimSpace(clean(st.CompanyName))
		st.CompanyCategory = strings.TrimSpace(clean(st.CompanyCategory))
		st.Notes = strings.TrimSpace(clean(st.Notes))
		out.Stance = &st
	}
	if in.Boycott != nil {
		b := *in.Boycott
		b.Title = strings.TrimSpace(clean(b.Title))
		b.Company = strings.TrimSpace(clean(b.Company))
		b.Subject = strings.TrimSpace(clean(b.Subject))
		b.Category = strings.TrimSpace(clean(b.Category))
		b.Description = strings.TrimSpace(clean(b.Description))
		out.Boycott = &b
	}
	return out
}

// ListFeed はフィードをcreated_at降順で返す。
// limit+1件を取得してHasMoreを判定する。グローバルフィードの先頭ページはキャッシュする。
func (s *Service) ListFeed(ctx context.Context, viewerID string, q FeedQuery) (*FeedPage, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = s.pageSize
	}
	limit = min(limit, maxPageSize)

	cursor, cursorID, err := parseCursor(q.Cursor)
	if err != nil {
		return nil, err
	}

	query := repository.PostQuery{ViewerID: viewerID, Cursor: cursor, CursorID: cursorID, Limit: limit + 1}
	switch {
	case q.AuthorID != "":
		query.AuthorIDs = []string{q.AuthorID}
	case q.Scope == model.FeedScopeFollowing:
		following, err := s.followRepo.ListFollowingIDs(ctx, viewerID)
		if err != nil {
			return nil, fmt.Errorf("フォロー一覧の取得に失敗しました: %w", err)
		}
		query.AuthorIDs = append(following, viewerID)
	}

	cacheable := query.AuthorIDs == nil && cursor.IsZero() && limit == s.pageSize
	var rows []model.PostWithAuthor
	if cacheable {
		rows, err = s.listCached(ctx, viewerID, query)
	} else {
		rows, err = s.postRepo.List(ctx, query)
	}
	if err != nil {
		return nil, err
	}

	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}

	items, err := s.decodeRows(ctx, rows)
	if err != nil {
		return nil, err
	}

	page := &FeedPage{Items: items, HasMore: hasMore}
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		page.NextCursor = formatCursor(last.CreatedAt, last.ID)
	}
	return page, nil
}

// ListByUser はプロフィール画面向けにユーザーの最新投稿を新しい順に最大 maxPageSize 件返す。
// それより古い投稿は ListFeed に AuthorID を指定してカーソルで辿る。
func (s *Service) ListByUser(ctx context.Context, viewerID, userID string) ([]FeedItem, error) {
	page, err := s.ListFeed(ctx, viewerID, FeedQuery{AuthorID: userID, Limit: maxPageSize})
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// CountByUser はユーザーの投稿数を返す。
func (s *Service) CountByUser(ctx context.Context, userID string) (int, error) {
	count, err := s.postRepo.CountByUserID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("投稿数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// listCached はグローバルフィード先頭ページを閲覧者に依存しない形でキャッシュし、
// いいね状態だけを閲覧者ごとに重ねる。
func (s *Service) listCached(ctx context.Context, viewerID string, query repository.PostQuery) ([]model.PostWithAuthor, error) {
	if data, ok, err := s.cache.Get(ctx, cache.KeyPosts); err != nil {
		slog.Warn("feed cache read failed", slog.String("error", err.Error()))
	} else if ok {
		var rows []model.PostWithAuthor
		if err := json.Unmarshal(data, &rows); err == nil {
			return s.overlayLikes(ctx, viewerID, rows)
		}
		slog.Warn("discarding malformed feed cache entry")
	}

	shared := query
	shared.ViewerID = ""
	rows, err := s.postRepo.List(ctx, shared)
	if err != nil {
		return nil, fmt.Errorf("フィードの取得に失敗しました: %w", err)
	}
	if data, err := json.Marshal(rows); err == nil {
		if err := s.cache.Set(ctx, cache.KeyPosts, data); err != nil {
			slog.Warn("feed cache write failed", slog.String("error", err.Error()))
		}
	}
	return s.overlayLikes(ctx, viewerID, rows)
}

func (s *Service) overlayLikes(ctx context.Context, viewerID string, rows []model.PostWithAuthor) ([]model.PostWithAuthor, error) {
	if viewerID == "" || len(rows) == 0 {
		return rows, nil
	}
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	liked, err := s.postRepo.LikedPostIDs(ctx, viewerID, ids)
	if err != nil {
		return nil, fmt.Errorf("いいね状態の取得に失敗しました: %w", err)
	}
	for i := range rows {
		rows[i].LikedByViewer = liked[rows[i].ID]
	}
	return rows, nil
}

// decodeRows は投稿本文をデコードし、ボイコット告知には実際の参加者数を設定する。
func (s *Service) decodeRows(ctx context.Context, rows []model.PostWithAuthor) ([]FeedItem, error) {
	var boycottIDs []string
	for _, r := range rows {
		if r.BoycottID != "" {
			boycottIDs = append(boycottIDs, r.BoycottID)
		}
	}
	counts := map[string]int{}
	if len(boycottIDs) > 0 {
		var err error
		counts, err = s.participantRepo.CountByBoycottIDs(ctx, boycottIDs)
		if err != nil {
			return nil, fmt.Errorf("参加者数の取得に失敗しました: %w", err)
		}
	}

	now := s.now()
	items := make([]FeedItem, len(rows))
	for i, r := range rows {
		view := postcodec.DecodeWithParticipants(postcodec.RecordFromPost(&r.Post), counts[r.BoycottID])
		if view.Degraded {
			s.metrics.RecordDecodeFallback(string(r.Kind))
		}
		items[i] = FeedItem{
			ID: r.ID,
			Author: Author{
				UserID:      r.UserID,
				DisplayName: r.AuthorDisplayName,
				Username:    r.AuthorUsername,
				AvatarURL:   r.AuthorAvatarURL,
				IsCreator:   r.AuthorProfileType == model.ProfileTypeCreator,
			},
			View:          view,
			BoycottID:     r.BoycottID,
			LikesCount:    r.LikesCount,
			CommentsCount: r.CommentsCount,
			LikedByViewer: r.LikedByViewer,
			CreatedAt:     r.CreatedAt,
			TimeLabel:     postcodec.FormatRelative(r.CreatedAt, now),
		}
	}
	return items, nil
}

// Delete は投稿者本人の投稿を削除する。他人の投稿は存在しないものとして扱う。
func (s *Service) Delete(ctx context.Context, userID, postID string) error {
	p, err := s.findOwned(ctx, userID, postID)
	if err != nil {
		return err
	}
	if err := s.postRepo.Delete(ctx, p.ID); err != nil {
		return fmt.Errorf("投稿の削除に失敗しました: %w", err)
	}

	s.invalidateFeed(ctx)
	s.publish(ctx, events.Event{Type: events.PostDeleted, PostID: p.ID, UserID: userID, At: s.now()})
	return nil
}

// Like は投稿にいいねを付ける。既にいいね済みの場合も成功として扱う。
func (s *Service) Like(ctx context.Context, userID, postID string) error {
	if _, err := s.find(ctx, postID); err != nil {
		return err
	}
	changed, err := s.postRepo.Like(ctx, postID, userID)
	if err != nil {
		return fmt.Errorf("いいねに失敗しました: %w", err)
	}
	if changed {
		s.invalidateFeed(ctx)
		s.publish(ctx, events.Event{Type: events.PostLiked, PostID: postID, UserID: userID, At: s.now()})
	}
	return nil
}

// Unlike は投稿のいいねを取り消す。いいねしていない場合も成功として扱う。
func (s *Service) Unlike(ctx context.Context, userID, postID string) error {
	if _, err := s.find(ctx, postID); err != nil {
		return err
	}
	changed, err := s.postRepo.Unlike(ctx, postID, userID)
	if err != nil {
		return fmt.Errorf("いいねの取り消しに失敗しました: %w", err)
	}
	if changed {
		s.invalidateFeed(ctx)
	}
	return nil
}

func (s *Service) find(ctx context.Context, postID string) (*model.Post, error) {
	if _, err := uuid.Parse(postID); err != nil {
		return nil, model.NewPostNotFoundError(postID)
	}
	p, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("投稿の取得に失敗しました: %w", err)
	}
	if p == nil {
		return nil, model.NewPostNotFoundError(postID)
	}
	return p, nil
}

func (s *Service) findOwned(ctx context.Context, userID, postID string) (*model.Post, error) {
	p, err := s.find(ctx, postID)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, model.NewPostNotFoundError(postID)
	}
	return p, nil
}

func (s *Service) invalidateFeed(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, cache.KeyPosts); err != nil {
		slog.Warn("feed cache invalidation failed", slog.String("error", err.Error()))
	}
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		slog.Warn("event publish failed",
			slog.String("type", string(event.Type)),
			slog.String("error", err.Error()),
		)
	}
}

// cursorSeparator はカーソル内の時刻と投稿IDの区切り。どちらの表記にも現れない。
const cursorSeparator = "_"

// formatCursor は次ページの起点となる投稿の時刻とIDをカーソル文字列にする。
func formatCursor(createdAt time.Time, postID string) string {
	return createdAt.UTC().Format(time.RFC3339Nano) + cursorSeparator + postID
}

// parseCursor は「RFC3339Nano_投稿ID」形式のカーソルを解析する。
// 時刻のみ（RFC3339Nano または RFC3339）のカーソルも受け付け、その場合IDは空になる。
func parseCursor(raw string) (time.Time, string, error) {
	if raw == "" {
		return time.Time{}, "", nil
	}
	invalid := model.NewValidationError("cursor", "無効なカーソル値: "+raw)

	stamp, id, hasID := strings.Cut(raw, cursorSeparator)
	if hasID {
		parsed, err := uuid.Parse(id)
		if err != nil {
			return time.Time{}, "", invalid
		}
		id = parsed.String()
	}
	t, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, stamp); err != nil {
			return time.Time{}, "", invalid
		}
	}
	return t, id, nil
}
