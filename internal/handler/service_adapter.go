package handler

import (
	"context"
	"strings"
	"time"

	"github.com/hitoshi/ethicheck/internal/boycott"
	"github.com/hitoshi/ethicheck/internal/company"
	"github.com/hitoshi/ethicheck/internal/follow"
	"github.com/hitoshi/ethicheck/internal/model"
	"github.com/hitoshi/ethicheck/internal/post"
	"github.com/hitoshi/ethicheck/internal/postcodec"
	"github.com/hitoshi/ethicheck/internal/profile"
)

// PostServiceAdapter は post.Service を PostServiceInterface に適合させるアダプタ。
type PostServiceAdapter struct {
	svc *post.Service
}

// NewPostServiceAdapter はPostServiceAdapterを生成する。
func NewPostServiceAdapter(svc *post.Service) *PostServiceAdapter {
	return &PostServiceAdapter{svc: svc}
}

// ListFeed はフィードをhandlerレスポンス型で返す。
func (a *PostServiceAdapter) ListFeed(ctx context.Context, viewerID string, q feedQuery) (*feedPageResponse, error) {
	page, err := a.svc.ListFeed(ctx, viewerID, post.FeedQuery{
		Cursor:   q.Cursor,
		Limit:    q.Limit,
		Scope:    q.Scope,
		AuthorID: q.AuthorID,
	})
	if err != nil {
		return nil, err
	}
	return &feedPageResponse{
		Items:      toPostResponses(page.Items),
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	}, nil
}

// CreatePost はリクエストを投稿インテントに変換して投稿を作成する。
func (a *PostServiceAdapter) CreatePost(ctx context.Context, userID string, req createPostRequest) (*postResponse, error) {
	p, err := a.svc.Create(ctx, userID, post.CreateInput{Intent: toIntent(req)})
	if err != nil {
		return nil, err
	}
	resp := toCreatedPostResponse(p)
	return &resp, nil
}

// DeletePost は自分の投稿を削除する。
func (a *PostServiceAdapter) DeletePost(ctx context.Context, userID, postID string) error {
	return a.svc.Delete(ctx, userID, postID)
}

// Like は投稿にいいねする。
func (a *PostServiceAdapter) Like(ctx context.Context, userID, postID string) error {
	return a.svc.Like(ctx, userID, postID)
}

// Unlike は投稿のいいねを取り消す。
func (a *PostServiceAdapter) Unlike(ctx context.Context, userID, postID string) error {
	return a.svc.Unlike(ctx, userID, postID)
}

// toIntent は投稿作成リクエストを投稿インテントに変換する。
// kindに対応するフィールドが無い場合はnilのまま渡し、検証はサービス層に任せる。
func toIntent(req createPostRequest) postcodec.Intent {
	in := postcodec.Intent{Kind: postcodec.InteractionKind(strings.ToLower(strings.TrimSpace(req.Kind)))}
	switch in.Kind {
	case postcodec.InteractionPlain:
		in.Plain = &postcodec.PlainIntent{Text: req.Text}
	case postcodec.InteractionReview:
		if r := req.Review; r != nil {
			in.Review = &postcodec.ReviewIntent{
				CompanyName: r.CompanyName,
				Category:    model.ReviewCategory(r.Category),
				Rating:      r.Rating,
				ReviewText:  r.ReviewText,
			}
		}
	case postcodec.InteractionStance:
		if s := req.Stance; s != nil {
			in.Stance = &postcodec.StanceIntent{
				CompanyName:     s.CompanyName,
				CompanyCategory: s.CompanyCategory,
				Stance:          model.StanceType(s.Stance),
				Notes:           s.Notes,
			}
		}
	case postcodec.InteractionBoycott:
		if b := req.Boycott; b != nil {
			in.Boycott = &postcodec.BoycottIntent{
				Title:       b.Title,
				Company:     b.Company,
				Subject:     b.Subject,
				Category:    b.Category,
				Description: b.Description,
			}
		}
	}
	return in
}

func toPostResponses(items []post.FeedItem) []postResponse {
	results := make([]postResponse, len(items))
	for i, item := range items {
		results[i] = toPostResponse(item)
	}
	return results
}

// toPostResponse はデコード済みの投稿をhandlerのレスポンス型に変換する。
func toPostResponse(item post.FeedItem) postResponse {
	resp := postResponse{
		ID:   item.ID,
		Kind: string(item.View.Kind),
		Author: &authorResponse{
			UserID:      item.Author.UserID,
			DisplayName: item.Author.DisplayName,
			Username:    item.Author.Username,
			AvatarURL:   item.Author.AvatarURL,
			IsCreator:   item.Author.IsCreator,
		},
		Content:       item.View.CleanContent,
		BoycottID:     item.BoycottID,
		LikesCount:    item.LikesCount,
		CommentsCount: item.CommentsCount,
		LikedByViewer: item.LikedByViewer,
		CreatedAt:     item.CreatedAt,
		TimeLabel:     item.TimeLabel,
	}
	if c := item.View.Company; c != nil {
		resp.Company = &companyBlockResponse{Name: c.Name, Rating: c.Rating, Category: c.Category}
	}
	if b := item.View.Boycott; b != nil {
		resp.Boycott = &boycottBlockResponse{
			Title:             b.Title,
			Company:           b.Company,
			Subject:           b.Subject,
			Description:       b.Description,
			ParticipantsCount: b.ParticipantsCount,
			Category:          b.Category,
		}
	}
	return resp
}

// toCreatedPostResponse は作成直後の投稿をレスポンス型に変換する。本文は保存された整形済みの値をそのまま返す。
func toCreatedPostResponse(p *model.Post) postResponse {
	return postResponse{
		ID:        p.ID,
		Kind:      string(p.Kind),
		Content:   p.Content,
		BoycottID: p.BoycottID,
		CreatedAt: p.CreatedAt,
	}
}

// BoycottServiceAdapter は boycott.Service を BoycottServiceInterface に適合させるアダプタ。
type BoycottServiceAdapter struct {
	svc *boycott.Service
}

// NewBoycottServiceAdapter はBoycottServiceAdapterを生成する。
func NewBoycottServiceAdapter(svc *boycott.Service) *BoycottServiceAdapter {
	return &BoycottServiceAdapter{svc: svc}
}

// ListBoycotts はボイコット一覧をhandlerレスポンス型で返す。
func (a *BoycottServiceAdapter) ListBoycotts(ctx context.Context, search string) ([]boycottResponse, error) {
	boycotts, err := a.svc.List(ctx, search)
	if err != nil {
		return nil, err
	}
	return toBoycottResponses(boycotts), nil
}

// CreateBoycott はリクエストを検証してボイコットを作成する。
func (a *BoycottServiceAdapter) CreateBoycott(ctx context.Context, userID string, req createBoycottRequest) (*createBoycottResponse, error) {
	endDate, err := parseEndDate(req.EndDate)
	if err != nil {
		return nil, err
	}

	result, err := a.svc.Create(ctx, userID, boycott.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Company:     req.Company,
		Subject:     req.Subject,
		CategoryID:  req.CategoryID,
		Impact:      model.BoycottImpact(req.Impact),
		EndDate:     endDate,
		Announce:    req.Announce,
	})
	if err != nil {
		return nil, err
	}

	resp := &createBoycottResponse{Boycott: toBoycottResponse(result.Boycott)}
	if result.Announcement != nil {
		resp.AnnouncementPostID = result.Announcement.ID
	}
	return resp, nil
}

// GetBoycott はボイコットをhandlerレスポンス型で返す。
func (a *BoycottServiceAdapter) GetBoycott(ctx context.Context, boycottID string) (*boycottResponse, error) {
	b, err := a.svc.Get(ctx, boycottID)
	if err != nil {
		return nil, err
	}
	resp := toBoycottResponse(b)
	return &resp, nil
}

// DeleteBoycott は主催者のボイコットを削除する。
func (a *BoycottServiceAdapter) DeleteBoycott(ctx context.Context, userID, boycottID string) error {
	return a.svc.Delete(ctx, userID, boycottID)
}

// DeactivateBoycott は主催者のボイコットを停止しhandlerレスポンス型で返す。
func (a *BoycottServiceAdapter) DeactivateBoycott(ctx context.Context, userID, boycottID string) (*boycottResponse, error) {
	b, err := a.svc.Deactivate(ctx, userID, boycottID)
	if err != nil {
		return nil, err
	}
	resp := toBoycottResponse(b)
	return &resp, nil
}

// Join はボイコットに参加する。
func (a *BoycottServiceAdapter) Join(ctx context.Context, userID, boycottID string) error {
	return a.svc.Join(ctx, userID, boycottID)
}

// Leave はボイコットから離脱する。
func (a *BoycottServiceAdapter) Leave(ctx context.Context, userID, boycottID string) error {
	return a.svc.Leave(ctx, userID, boycottID)
}

// Participation は参加中のボイコットID一覧を返す。
func (a *BoycottServiceAdapter) Participation(ctx context.Context, userID string) ([]string, error) {
	return a.svc.Participation(ctx, userID)
}

// Stats はボイコット統計をhandlerレスポンス型で返す。
func (a *BoycottServiceAdapter) Stats(ctx context.Context) (*boycottStatsResponse, error) {
	stats, err := a.svc.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &boycottStatsResponse{
		Active:            stats.Active,
		TotalParticipants: stats.TotalParticipants,
		Successful:        stats.Successful,
		CompaniesChanged:  stats.CompaniesChanged,
	}, nil
}

// parseEndDate は終了日をRFC3339または YYYY-MM-DD 形式で解釈する。空文字列は終了日なしとなる。
func parseEndDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, model.NewValidationError("end_date", "日付は YYYY-MM-DD 形式で指定してください")
}

func toBoycottResponses(boycotts []*model.Boycott) []boycottResponse {
	results := make([]boycottResponse, len(boycotts))
	for i, b := range boycotts {
		results[i] = toBoycottResponse(b)
	}
	return results
}

// toBoycottResponse はドメインのBoycottをhandlerのレスポンス型に変換する。
func toBoycottResponse(b *model.Boycott) boycottResponse {
	return boycottResponse{
		ID:                b.ID,
		Title:             b.Title,
		Description:       b.Description,
		Company:           b.Company,
		Subject:           b.Subject,
		CategoryID:        b.CategoryID,
		CategoryName:      b.CategoryName,
		Impact:            string(b.Impact),
		Status:            string(b.Status),
		StartDate:         b.StartDate,
		EndDate:           b.EndDate,
		OrganizerID:       b.OrganizerID,
		ParticipantsCount: b.ParticipantsCount,
		CreatedAt:         b.CreatedAt,
	}
}

// CompanyServiceAdapter は company.Service と boycott.Service を CompanyServiceInterface に適合させるアダプタ。
type CompanyServiceAdapter struct {
	companies *company.Service
	boycotts  *boycott.Service
}

// NewCompanyServiceAdapter はCompanyServiceAdapterを生成する。
func NewCompanyServiceAdapter(companies *company.Service, boycotts *boycott.Service) *CompanyServiceAdapter {
	return &CompanyServiceAdapter{companies: companies, boycotts: boycotts}
}

// ListCompanies は企業評価一覧をhandlerレスポンス型で返す。
func (a *CompanyServiceAdapter) ListCompanies(ctx context.Context) ([]companyResponse, error) {
	ratings, err := a.companies.ListCompanies(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]companyResponse, len(ratings))
	for i, r := range ratings {
		results[i] = toCompanyResponse(r)
	}
	return results, nil
}

// GetCompany は企業評価をhandlerレスポンス型で返す。
func (a *CompanyServiceAdapter) GetCompany(ctx context.Context, name string) (*companyResponse, error) {
	rating, err := a.companies.GetCompany(ctx, name)
	if err != nil {
		return nil, err
	}
	resp := toCompanyResponse(rating)
	return &resp, nil
}

// ListCompanyReviews は企業のレビュー一覧をhandlerレスポンス型で返す。
func (a *CompanyServiceAdapter) ListCompanyReviews(ctx context.Context, name string) ([]reviewResponse, error) {
	reviews, err := a.companies.ListCompanyReviews(ctx, name)
	if err != nil {
		return nil, err
	}
	return toReviewResponses(reviews), nil
}

// ListCompanyBoycotts は企業を対象とする進行中のボイコットをhandlerレスポンス型で返す。
func (a *CompanyServiceAdapter) ListCompanyBoycotts(ctx context.Context, name string) ([]boycottResponse, error) {
	boycotts, err := a.boycotts.ListByCompany(ctx, name)
	if err != nil {
		return nil, err
	}
	return toBoycottResponses(boycotts), nil
}

// UpsertReview はレビューを作成または更新する。
func (a *CompanyServiceAdapter) UpsertReview(ctx context.Context, userID string, req upsertReviewRequest) (*upsertReviewResponse, error) {
	result, err := a.companies.UpsertReview(ctx, userID, company.ReviewInput{
		CompanyName: req.CompanyName,
		Category:    model.ReviewCategory(req.Category),
		Rating:      req.Rating,
		ReviewText:  req.ReviewText,
		PostToFeed:  req.PostToFeed,
	})
	if err != nil {
		return nil, err
	}
	resp := &upsertReviewResponse{Review: toReviewResponse(result.Review)}
	if result.Post != nil {
		resp.PostID = result.Post.ID
	}
	return resp, nil
}

// DeleteReview は本人のレビューを削除する。
func (a *CompanyServiceAdapter) DeleteReview(ctx context.Context, userID, reviewID string) error {
	return a.companies.DeleteReview(ctx, userID, reviewID)
}

// UpsertStance はスタンスを作成または更新する。
func (a *CompanyServiceAdapter) UpsertStance(ctx context.Context, userID string, req upsertStanceRequest) (*upsertStanceResponse, error) {
	result, err := a.companies.UpsertStance(ctx, userID, company.StanceInput{
		CompanyName:       req.CompanyName,
		CompanyCategory:   req.CompanyCategory,
		Stance:            model.StanceType(req.Stance),
		EthicsRating:      req.EthicsRating,
		EnvironmentRating: req.EnvironmentRating,
		PoliticsRating:    req.PoliticsRating,
		OverallRating:     req.OverallRating,
		Notes:             req.Notes,
		PostToFeed:        req.PostToFeed,
	})
	if err != nil {
		return nil, err
	}
	resp := &upsertStanceResponse{Stance: toStanceResponse(result.Stance)}
	if result.Post != nil {
		resp.PostID = result.Post.ID
	}
	return resp, nil
}

// DeleteStance は本人のスタンスを削除する。
func (a *CompanyServiceAdapter) DeleteStance(ctx context.Context, userID, stanceID string) error {
	return a.companies.DeleteStance(ctx, userID, stanceID)
}

// ListCategories はボイコットカテゴリ一覧をhandlerレスポンス型で返す。
func (a *CompanyServiceAdapter) ListCategories(ctx context.Context) ([]categoryResponse, error) {
	categories, err := a.companies.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]categoryResponse, len(categories))
	for i, c := range categories {
		results[i] = categoryResponse{
			ID:          c.ID,
			Name:        c.Name,
			Color:       c.Color,
			Description: c.Description,
		}
	}
	return results, nil
}

func toCompanyResponse(r *model.CompanyRating) companyResponse {
	return companyResponse{
		ID:                 r.ID,
		Name:               r.Name,
		Industry:           r.Industry,
		Description:        r.Description,
		WebsiteURL:         r.WebsiteURL,
		LogoURL:            r.LogoURL,
		AvgEthics:          r.AvgEthics,
		AvgEnvironment:     r.AvgEnvironment,
		AvgPolitics:        r.AvgPolitics,
		AvgOverall:         r.AvgOverall,
		RecommendCount:     r.RecommendCount,
		NeutralCount:       r.NeutralCount,
		DiscourageCount:    r.DiscourageCount,
		ActiveBoycottCount: r.ActiveBoycottCount,
		TotalRatings:       r.TotalRatings,
	}
}

func toReviewResponses(reviews []*model.Review) []reviewResponse {
	results := make([]reviewResponse, len(reviews))
	for i, r := range reviews {
		results[i] = toReviewResponse(r)
	}
	return results
}

func toReviewResponse(r *model.Review) reviewResponse {
	return reviewResponse{
		ID:          r.ID,
		UserID:      r.UserID,
		CompanyName: r.CompanyName,
		Category:    string(r.Category),
		Rating:      r.Rating,
		ReviewText:  r.ReviewText,
		UpdatedAt:   r.UpdatedAt,
	}
}

func toStanceResponse(s *model.Stance) stanceResponse {
	return stanceResponse{
		ID:                s.ID,
		UserID:            s.UserID,
		CompanyName:       s.CompanyName,
		Stance:            string(s.Stance),
		EthicsRating:      s.EthicsRating,
		EnvironmentRating: s.EnvironmentRating,
		PoliticsRating:    s.PoliticsRating,
		OverallRating:     s.OverallRating,
		Notes:             s.Notes,
		UpdatedAt:         s.UpdatedAt,
	}
}

// ProfileServiceAdapter は profile.Service を ProfileServiceInterface に適合させるアダプタ。
type ProfileServiceAdapter struct {
	svc *profile.Service
}

// NewProfileServiceAdapter はProfileServiceAdapterを生成する。
func NewProfileServiceAdapter(svc *profile.Service) *ProfileServiceAdapter {
	return &ProfileServiceAdapter{svc: svc}
}

// GetProfile はプロフィールをhandlerレスポンス型で返す。
func (a *ProfileServiceAdapter) GetProfile(ctx context.Context, userID string) (*profileResponse, error) {
	p, err := a.svc.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := toProfileResponse(p)
	return &resp, nil
}

// UpdateProfile はプロフィールを部分更新する。
func (a *ProfileServiceAdapter) UpdateProfile(ctx context.Context, userID string, req updateProfileRequest) (*profileResponse, error) {
	update := profile.Update{
		DisplayName: req.DisplayName,
		Username:    req.Username,
		Bio:         req.Bio,
		AvatarURL:   req.AvatarURL,
	}
	if req.ProfileType != nil {
		pt := model.ProfileType(*req.ProfileType)
		update.ProfileType = &pt
	}

	p, err := a.svc.Update(ctx, userID, update)
	if err != nil {
		return nil, err
	}
	resp := toProfileResponse(p)
	return &resp, nil
}

// ListCreators はクリエイタープロフィール一覧をhandlerレスポンス型で返す。
func (a *ProfileServiceAdapter) ListCreators(ctx context.Context) ([]profileResponse, error) {
	profiles, err := a.svc.ListCreators(ctx)
	if err != nil {
		return nil, err
	}
	return toProfileResponses(profiles), nil
}

// Stats はプロフィール集計値をhandlerレスポンス型で返す。
func (a *ProfileServiceAdapter) Stats(ctx context.Context, userID string) (*profileStatsResponse, error) {
	stats, err := a.svc.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &profileStatsResponse{
		Followers:       stats.Followers,
		Following:       stats.Following,
		Posts:           stats.Posts,
		RecommendCount:  stats.RecommendCount,
		NeutralCount:    stats.NeutralCount,
		DiscourageCount: stats.DiscourageCount,
	}, nil
}

func toProfileResponses(profiles []*model.Profile) []profileResponse {
	results := make([]profileResponse, len(profiles))
	for i, p := range profiles {
		results[i] = toProfileResponse(p)
	}
	return results
}

func toProfileResponse(p *model.Profile) profileResponse {
	return profileResponse{
		UserID:      p.UserID,
		DisplayName: p.DisplayName,
		Username:    p.Username,
		Bio:         p.Bio,
		AvatarURL:   p.AvatarURL,
		ProfileType: string(p.ProfileType),
	}
}

// FollowServiceAdapter は follow.Service を FollowServiceInterface に適合させるアダプタ。
type FollowServiceAdapter struct {
	svc *follow.Service
}

// NewFollowServiceAdapter はFollowServiceAdapterを生成する。
func NewFollowServiceAdapter(svc *follow.Service) *FollowServiceAdapter {
	return &FollowServiceAdapter{svc: svc}
}

// Follow は指定ユーザーをフォローする。
func (a *FollowServiceAdapter) Follow(ctx context.Context, followerID, followingID string) error {
	return a.svc.Follow(ctx, followerID, followingID)
}

// Unfollow はフォローを解除する。
func (a *FollowServiceAdapter) Unfollow(ctx context.Context, followerID, followingID string) error {
	return a.svc.Unfollow(ctx, followerID, followingID)
}

// Followers はフォロワーのプロフィールをhandlerレスポンス型で返す。
func (a *FollowServiceAdapter) Followers(ctx context.Context, userID string) ([]profileResponse, error) {
	profiles, err := a.svc.Followers(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toProfileResponses(profiles), nil
}

// Following はフォロー中のプロフィールをhandlerレスポンス型で返す。
func (a *FollowServiceAdapter) Following(ctx context.Context, userID string) ([]profileResponse, error) {
	profiles, err := a.svc.Following(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toProfileResponses(profiles), nil
}

// ActivityAdapter は投稿、企業、ボイコットの各サービスを ActivityListerInterface に適合させるアダプタ。
type ActivityAdapter struct {
	posts     *post.Service
	companies *company.Service
	boycotts  *boycott.Service
}

// NewActivityAdapter はActivityAdapterを生成する。
func NewActivityAdapter(posts *post.Service, companies *company.Service, boycotts *boycott.Service) *ActivityAdapter {
	return &ActivityAdapter{posts: posts, companies: companies, boycotts: boycotts}
}

// ListUserPosts はユーザーの投稿をhandlerレスポンス型で返す。
func (a *ActivityAdapter) ListUserPosts(ctx context.Context, viewerID, userID string) ([]postResponse, error) {
	items, err := a.posts.ListByUser(ctx, viewerID, userID)
	if err != nil {
		return nil, err
	}
	return toPostResponses(items), nil
}

// ListUserReviews はユーザーのレビューをhandlerレスポンス型で返す。
func (a *ActivityAdapter) ListUserReviews(ctx context.Context, userID string) ([]reviewResponse, error) {
	reviews, err := a.companies.ListUserReviews(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toReviewResponses(reviews), nil
}

// ListUserStances はユーザーのスタンスをhandlerレスポンス型で返す。
func (a *ActivityAdapter) ListUserStances(ctx context.Context, userID string) ([]stanceResponse, error) {
	stances, err := a.companies.ListUserStances(ctx, userID)
	if err != nil {
		return nil, err
	}
	results := make([]stanceResponse, len(stances))
	for i, s := range stances {
		results[i] = toStanceResponse(s)
	}
	return results, nil
}

// ListUserBoycotts はユーザーが主催するボイコットをhandlerレスポンス型で返す。
func (a *ActivityAdapter) ListUserBoycotts(ctx context.Context, userID string) ([]boycottResponse, error) {
	boycotts, err := a.boycotts.ListByOrganizer(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toBoycottResponses(boycotts), nil
}
