// Package boycott はボイコットの作成、参加、統計のドメインロジックを提供する。
package boycott

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/ethicheck/internal/cache"
	"github.com/hitoshi/ethicheck/internal/events"
	"github.com/hitoshi/ethicheck/internal/metrics"
	"github.com/hitoshi/ethicheck/internal/model"
	"github.com/hitoshi/ethicheck/internal/post"
	"github.com/hitoshi/ethicheck/internal/postcodec"
	"github.com/hitoshi/ethicheck/internal/repository"
	"github.com/hitoshi/ethicheck/internal/security"
)

// FeedPoster はフィードへの投稿作成を抽象化する。post.Serviceが実装する。
type FeedPoster interface {
	Create(ctx context.Context, userID string, in post.CreateInput) (*model.Post, error)
}

// CreateInput はボイコット作成の入力。
type CreateInput struct {
	Title       string
	Description string
	Company     string
	Subject     string
	CategoryID  string
	Impact      model.BoycottImpact
	EndDate     *time.Time
	// Announce がtrueの場合、作成したボイコットに紐付く告知投稿をフィードに作成する。
	Announce bool
}

// CreateResult はボイコット作成の結果。
type CreateResult struct {
	Boycott      *model.Boycott
	Announcement *model.Post
}

// Service はボイコットのサービス層。
type Service struct {
	boycottRepo     repository.BoycottRepository
	participantRepo repository.BoycottParticipantRepository
	categoryRepo    repository.CategoryRepository
	poster          FeedPoster

	cache     cache.Store
	publisher events.Publisher
	metrics   metrics.MetricsCollector
	sanitizer security.TextSanitizer
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// store、publisher、collectorがnilの場合は何もしない実装を使う。
func NewService(
	boycottRepo repository.BoycottRepository,
	participantRepo repository.BoycottParticipantRepository,
	categoryRepo repository.CategoryRepository,
	poster FeedPoster,
	store cache.Store,
	publisher events.Publisher,
	collector metrics.MetricsCollector,
) *Service {
	if store == nil {
		store = cache.NopStore{}
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &Service{
		boycottRepo:     boycottRepo,
		participantRepo: participantRepo,
		categoryRepo:    categoryRepo,
		poster:          poster,
		cache:           store,
		publisher:       publisher,
		metrics:         collector,
		sanitizer:       security.NewTextSanitizer(),
		now:             time.Now,
	}
}

// Create はボイコットを作成する。
// 同じ主題（大文字小文字無視）の進行中ボイコットが存在する場合はDUPLICATE_BOYCOTTを返す。
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*CreateResult, error) {
	in.Title = strings.TrimSpace(s.sanitizer.Clean(in.Title))
	in.Description = strings.TrimSpace(s.sanitizer.Clean(in.Description))
	in.Company = strings.TrimSpace(s.sanitizer.Clean(in.Company))
	in.Subject = strings.TrimSpace(s.sanitizer.Clean(in.Subject))
	if in.Impact == "" {
		in.Impact = model.ImpactMedium
	}

	now := s.now()
	if err := validateCreate(in, now); err != nil {
		return nil, err
	}

	category, err := s.findCategory(ctx, in.CategoryID)
	if err != nil {
		return nil, err
	}

	existing, err := s.boycottRepo.FindActiveBySubject(ctx, in.Subject)
	if err != nil {
		return nil, fmt.Errorf("重複チェックに失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateBoycottError(in.Subject)
	}

	b := &model.Boycott{
		ID:           uuid.New().String(),
		Title:        in.Title,
		Description:  in.Description,
		Company:      in.Company,
		Subject:      in.Subject,
		CategoryID:   category.ID,
		CategoryName: category.Name,
		Impact:       in.Impact,
		Status:       model.BoycottStatusActive,
		StartDate:    now,
		EndDate:      in.EndDate,
		OrganizerID:  userID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.boycottRepo.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("ボイコットの保存に失敗しました: %w", err)
	}

	s.invalidate(ctx)
	s.publish(ctx, events.Event{Type: events.BoycottCreated, BoycottID: b.ID, UserID: userID, At: now})
	slog.Info("boycott created",
		slog.String("boycott_id", b.ID),
		slog.String("organizer_id", userID),
		slog.String("company", b.Company),
	)

	result := &CreateResult{Boycott: b}
	if in.Announce && s.poster != nil {
		p, err := s.poster.Create(ctx, userID, post.CreateInput{
			Intent: postcodec.Intent{
				Kind: postcodec.InteractionBoycott,
				Boycott: &postcodec.BoycottIntent{
					Title:       b.Title,
					Company:     b.Company,
					Subject:     b.Subject,
					Category:    category.Name,
					Description: b.Description,
				},
			},
			BoycottID: b.ID,
		})
		if err != nil {
			// ボイコット自体は作成済みのため、告知投稿の失敗はログに残して続行する
			slog.Warn("boycott announcement failed",
				slog.String("boycott_id", b.ID),
				slog.String("error", err.Error()),
			)
		} else {
			result.Announcement = p
		}
	}
	return result, nil
}

func validateCreate(in CreateInput, now time.Time) error {
	switch {
	case in.Title == "":
		return model.NewValidationError("title", "タイトルを入力してください")
	case in.Company == "":
		return model.NewValidationError("company", "対象企業を入力してください")
	case in.Subject == "":
		return model.NewValidationError("subject", "主題を入力してください")
	case in.CategoryID == "":
		return model.NewValidationError("category_id", "カテゴリを選択してください")
	case !in.Impact.Valid():
		return model.NewValidationError("impact", fmt.Sprintf("無効な影響度です: %s", in.Impact))
	case in.EndDate != nil && !in.EndDate.After(now):
		return model.NewValidationError("end_date", "終了日は未来の日付を指定してください")
	}
	// 告知の有無に関わらず告知本文と同じ制約を課す
	return postcodec.ValidateBoycottLayout(postcodec.BoycottIntent{
		Title:       in.Title,
		Company:     in.Company,
		Subject:     in.Subject,
		Description: in.Description,
	})
}

// List はボイコット一覧を返す。検索語が空の場合はKeyBoycottsでキャッシュする。
func (s *Service) List(ctx context.Context, search string) ([]*model.Boycott, error) {
	search = strings.TrimSpace(search)
	if search != "" {
		return s.list(ctx, repository.BoycottFilter{Search: search})
	}

	if data, ok, err := s.cache.Get(ctx, cache.KeyBoycotts); err != nil {
		slog.Warn("boycott cache read failed", slog.String("error", err.Error()))
	} else if ok {
		var boycotts []*model.Boycott
		if err := json.Unmarshal(data, &boycotts); err == nil {
			return boycotts, nil
		}
	}

	boycotts, err := s.list(ctx, repository.BoycottFilter{})
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(boycotts); err == nil {
		if err := s.cache.Set(ctx, cache.KeyBoycotts, data); err != nil {
			slog.Warn("boycott cache write failed", slog.String("error", err.Error()))
		}
	}
	return boycotts, nil
}

// ListByCompany は企業に対する進行中のボイコットを返す。
func (s *Service) ListByCompany(ctx context.Context, company string) ([]*model.Boycott, error) {
	return s.list(ctx, repository.BoycottFilter{Company: strings.TrimSpace(company), ActiveOnly: true})
}

// ListByOrganizer はユーザーが主催するボイコットを返す。
func (s *Service) ListByOrganizer(ctx context.Context, userID string) ([]*model.Boycott, error) {
	return s.list(ctx, repository.BoycottFilter{OrganizerID: userID})
}

func (s *Service) list(ctx context.Context, f repository.BoycottFilter) ([]*model.Boycott, error) {
	boycotts, err := s.boycottRepo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("ボイコット一覧の取得に失敗しました: %w", err)
	}
	return boycotts, nil
}

// Get はボイコットを取得する。
func (s *Service) Get(ctx context.Context, boycottID string) (*model.Boycott, error) {
	if _, err := uuid.Parse(boycottID); err != nil {
		return nil, model.NewBoycottNotFoundError(boycottID)
	}
	b, err := s.boycottRepo.FindByID(ctx, boycottID)
	if err != nil {
		return nil, fmt.Errorf("ボイコットの取得に失敗しました: %w", err)
	}
	if b == nil {
		return nil, model.NewBoycottNotFoundError(boycottID)
	}
	return b, nil
}

// Participation はユーザーが参加しているボイコットIDを返す。
func (s *Service) Participation(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.participantRepo.ListBoycottIDsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("参加状況の取得に失敗しました: %w", err)
	}
	return ids, nil
}

// Join はボイコットに参加する。進行中でない場合はBOYCOTT_NOT_ACTIVE、参加済みの場合はALREADY_JOINEDを返す。
func (s *Service) Join(ctx context.Context, userID, boycottID string) error {
	b, err := s.Get(ctx, boycottID)
	if err != nil {
		return err
	}
	if b.Status != model.BoycottStatusActive {
		return model.NewBoycottNotActiveError()
	}

	joined, err := s.participantRepo.Join(ctx, boycottID, userID)
	if err != nil {
		return fmt.Errorf("ボイコットへの参加に失敗しました: %w", err)
	}
	if !joined {
		return model.NewAlreadyJoinedError()
	}

	s.metrics.RecordBoycottJoin()
	s.invalidate(ctx)
	s.publish(ctx, events.Event{Type: events.BoycottJoined, BoycottID: boycottID, UserID: userID, At: s.now()})
	return nil
}

// Leave はボイコットへの参加を取り消す。参加していない場合はNOT_JOINEDを返す。
func (s *Service) Leave(ctx context.Context, userID, boycottID string) error {
	if _, err := s.Get(ctx, boycottID); err != nil {
		return err
	}

	left, err := s.participantRepo.Leave(ctx, boycottID, userID)
	if err != nil {
		return fmt.Errorf("ボイコットからの離脱に失敗しました: %w", err)
	}
	if !left {
		return model.NewNotJoinedError()
	}

	s.invalidate(ctx)
	s.publish(ctx, events.Event{Type: events.BoycottLeft, BoycottID: boycottID, UserID: userID, At: s.now()})
	return nil
}

// Delete は主催者本人のボイコットを削除する。主催者以外には存在しないものとして扱う。
func (s *Service) Delete(ctx context.Context, userID, boycottID string) error {
	b, err := s.findOrganized(ctx, userID, boycottID)
	if err != nil {
		return err
	}
	if err := s.boycottRepo.Delete(ctx, b.ID); err != nil {
		return fmt.Errorf("ボイコットの削除に失敗しました: %w", err)
	}
	s.invalidate(ctx)
	return nil
}

// Deactivate は主催者本人の進行中ボイコットを停止する。
func (s *Service) Deactivate(ctx context.Context, userID, boycottID string) (*model.Boycott, error) {
	b, err := s.findOrganized(ctx, userID, boycottID)
	if err != nil {
		return nil, err
	}
	if b.Status != model.BoycottStatusActive {
		return nil, model.NewBoycottNotActiveError()
	}
	if err := s.boycottRepo.UpdateStatus(ctx, b.ID, model.BoycottStatusDeactivated); err != nil {
		return nil, fmt.Errorf("ボイコットの停止に失敗しました: %w", err)
	}
	b.Status = model.BoycottStatusDeactivated
	s.invalidate(ctx)
	return b, nil
}

// Stats はボイコット全体の統計値を返す。結果はKeyBoycottStatsでキャッシュする。
func (s *Service) Stats(ctx context.Context) (*model.BoycottStats, error) {
	if data, ok, err := s.cache.Get(ctx, cache.KeyBoycottStats); err != nil {
		slog.Warn("boycott stats cache read failed", slog.String("error", err.Error()))
	} else if ok {
		var stats model.BoycottStats
		if err := json.Unmarshal(data, &stats); err == nil {
			return &stats, nil
		}
	}

	stats, err := s.boycottRepo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("ボイコット統計の取得に失敗しました: %w", err)
	}
	if data, err := json.Marshal(stats); err == nil {
		if err := s.cache.Set(ctx, cache.KeyBoycottStats, data); err != nil {
			slog.Warn("boycott stats cache write failed", slog.String("error", err.Error()))
		}
	}
	return stats, nil
}

func (s *Service) findOrganized(ctx context.Context, userID, boycottID string) (*model.Boycott, error) {
	b, err := s.Get(ctx, boycottID)
	if err != nil {
		return nil, err
	}
	if b.OrganizerID != userID {
		return nil, model.NewBoycottNotFoundError(boycottID)
	}
	return b, nil
}

func (s *Service) findCategory(ctx context.Context, categoryID string) (*model.Category, error) {
	if _, err := uuid.Parse(categoryID); err != nil {
		return nil, model.NewCategoryNotFoundError(categoryID)
	}
	category, err := s.categoryRepo.FindByID(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("カテゴリの取得に失敗しました: %w", err)
	}
	if category == nil {
		return nil, model.NewCategoryNotFoundError(categoryID)
	}
	return category, nil
}

// invalidate はボイコット一覧と統計のキャッシュを破棄する。
func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, cache.KeyBoycotts, cache.KeyBoycottStats, cache.KeyCompanies); err != nil {
		slog.Warn("boycott cache invalidation failed", slog.String("error", err.Error()))
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
