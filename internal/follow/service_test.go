package follow

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/ethicheck/internal/model"
	"github.com/hitoshi/ethicheck/internal/repository"
)

// --- モック ---

type mockFollowRepo struct {
	edges map[string]bool
	err   error
}

func key(follower, following string) string { return follower + "->" + following }

func (m *mockFollowRepo) Create(ctx context.Context, f *model.Follow) error {
	if m.err != nil {
		return m.err
	}
	if m.edges[key(f.FollowerID, f.FollowingID)] {
		return repository.ErrDuplicate
	}
	m.edges[key(f.FollowerID, f.FollowingID)] = true
	return nil
}
func (m *mockFollowRepo) Delete(ctx context.Context, followerID, followingID string) (bool, error) {
	k := key(followerID, followingID)
	if !m.edges[k] {
		return false, nil
	}
	delete(m.edges, k)
	return true, nil
}
func (m *mockFollowRepo) ListFollowingIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	for _, id := range []string{"user-1", "user-2", "user-3"} {
		if m.edges[key(userID, id)] {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
func (m *mockFollowRepo) ListFollowerIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	for _, id := range []string{"user-1", "user-2", "user-3"} {
		if m.edges[key(id, userID)] {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
func (m *mockFollowRepo) Counts(ctx context.Context, userID string) (int, int, error) {
	return 0, 0, nil
}

type mockProfileRepo struct {
	listCalls int
}

func (m *mockProfileRepo) FindByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	if userID == "missing" {
		return nil, nil
	}
	return &model.Profile{UserID: userID}, nil
}
func (m *mockProfileRepo) FindByUsername(ctx context.Context, username string) (*model.Profile, error) {
	return nil, nil
}
func (m *mockProfileRepo) ListByUserIDs(ctx context.Context, userIDs []string) ([]*model.Profile, error) {
	m.listCalls++
	out := make([]*model.Profile, 0, len(userIDs))
	for _, id := range userIDs {
		out = append(out, &model.Profile{UserID: id})
	}
	return out, nil
}
func (m *mockProfileRepo) ListCreators(ctx context.Context, limit int) ([]*model.Profile, error) {
	return nil, nil
}
func (m *mockProfileRepo) Update(ctx context.Context, p *model.Profile) error { return nil }

func newTestService() (*Service, *mockFollowRepo, *mockProfileRepo) {
	follows := &mockFollowRepo{edges: map[string]bool{}}
	profiles := &mockProfileRepo{}
	return NewService(follows, profiles), follows, profiles
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != code {
		t.Fatalf("error = %v, want code %s", err, code)
	}
}

// --- テスト ---

// TestService_FollowUnfollow はフォローと解除の状態遷移とエラーコードを検証する。
func TestService_FollowUnfollow(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	if err := svc.Follow(ctx, "user-1", "user-2"); err != nil {
		t.Fatalf("Follow returned error: %v", err)
	}
	assertCode(t, svc.Follow(ctx, "user-1", "user-2"), model.ErrCodeAlreadyFollowing)

	ids, err := svc.FollowingIDs(ctx, "user-1")
	if err != nil {
		t.Fatalf("FollowingIDs returned error: %v", err)
	}
	if len(ids) != 1 || ids[0] != "user-2" {
		t.Errorf("ids = %v, want [user-2]", ids)
	}

	if err := svc.Unfollow(ctx, "user-1", "user-2"); err != nil {
		t.Fatalf("Unfollow returned error: %v", err)
	}
	assertCode(t, svc.Unfollow(ctx, "user-1", "user-2"), model.ErrCodeNotFollowing)
}

// TestService_Follow_Self は自分自身のフォローがCANNOT_FOLLOW_SELFになることを検証する。
func TestService_Follow_Self(t *testing.T) {
	svc, _, _ := newTestService()
	assertCode(t, svc.Follow(context.Background(), "user-1", "user-1"), model.ErrCodeCannotFollowSelf)
}

// TestService_Follow_UnknownTarget は存在しないユーザーのフォローがPROFILE_NOT_FOUNDになることを検証する。
func TestService_Follow_UnknownTarget(t *testing.T) {
	svc, _, _ := newTestService()
	assertCode(t, svc.Follow(context.Background(), "user-1", "missing"), model.ErrCodeProfileNotFound)
}

// TestService_Follow_RepoError はリポジトリのエラーがラップされて返ることを検証する。
func TestService_Follow_RepoError(t *testing.T) {
	svc, follows, _ := newTestService()
	dbErr := errors.New("db down")
	follows.err = dbErr

	err := svc.Follow(context.Background(), "user-1", "user-2")
	if !errors.Is(err, dbErr) {
		t.Fatalf("error = %v, want wrapped %v", err, dbErr)
	}
}

// TestService_FollowersFollowing はフォロー関係がプロフィールとして返ることを検証する。
func TestService_FollowersFollowing(t *testing.T) {
	svc, _, profiles := newTestService()
	ctx := context.Background()
	_ = svc.Follow(ctx, "user-1", "user-3")
	_ = svc.Follow(ctx, "user-2", "user-3")

	followers, err := svc.Followers(ctx, "user-3")
	if err != nil {
		t.Fatalf("Followers returned error: %v", err)
	}
	if len(followers) != 2 {
		t.Errorf("followers = %d, want 2", len(followers))
	}

	following, err := svc.Following(ctx, "user-2")
	if err != nil {
		t.Fatalf("Following returned error: %v", err)
	}
	if len(following) != 1 || following[0].UserID != "user-3" {
		t.Errorf("following = %+v", following)
	}

	calls := profiles.listCalls
	empty, err := svc.Following(ctx, "user-3")
	if err != nil {
		t.Fatalf("Following returned error: %v", err)
	}
	if empty == nil || len(empty) != 0 || profiles.listCalls != calls {
		t.Error("expected empty slice without profile lookup")
	}
}
