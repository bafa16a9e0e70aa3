package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"konnekt/internal/cache"
	"konnekt/internal/mirror"
	"konnekt/internal/model"
)

// =============================================================================
// IN-MEMORY STORES
// =============================================================================
//
// The fakes below keep state, so a test can run several operations in a row and
// check the counters against what the "database" holds. A single mutex stands in
// for the pair lock and row locks of the real store.

type fakeTx struct {
	mu  sync.Mutex
	err error
}

func (f *fakeTx) WithinTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

type fakeUserRepo struct {
	missing   map[int64]bool
	interests map[int64][]string
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	if f.missing[id] {
		return nil, model.ErrUserNotFound
	}
	return &model.User{ID: id}, nil
}

func (f *fakeUserRepo) GetSummaries(ctx context.Context, ids []int64) (map[int64]model.UserSummary, error) {
	out := make(map[int64]model.UserSummary, len(ids))
	for _, id := range ids {
		out[id] = model.UserSummary{ID: id}
	}
	return out, nil
}

func (f *fakeUserRepo) AddInterest(ctx context.Context, userID int64, interest string) (bool, error) {
	if f.interests == nil {
		f.interests = map[int64][]string{}
	}
	for _, i := range f.interests[userID] {
		if i == interest {
			return false, nil
		}
	}
	f.interests[userID] = append(f.interests[userID], interest)
	return true, nil
}

type pairKey struct{ a, b int64 }

type fakeFriendRepo struct {
	mu   sync.Mutex
	rows map[pairKey]model.Friendship
}

func newFakeFriendRepo() *fakeFriendRepo {
	return &fakeFriendRepo{rows: map[pairKey]model.Friendship{}}
}

func (f *fakeFriendRepo) LockPair(ctx context.Context, tx *sqlx.Tx, a, b int64) error { return nil }

func (f *fakeFriendRepo) row(sender, receiver int64) *model.Friendship {
	r, ok := f.rows[pairKey{sender, receiver}]
	if !ok {
		return nil
	}
	return &r
}

func (f *fakeFriendRepo) GetPair(ctx context.Context, tx *sqlx.Tx, a, b int64) (*model.Friendship, *model.Friendship, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.row(a, b), f.row(b, a), nil
}

func (f *fakeFriendRepo) Get(ctx context.Context, a, b int64) (*model.Friendship, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r := f.row(a, b); r != nil {
		return r, nil
	}
	return f.row(b, a), nil
}

func (f *fakeFriendRepo) Insert(ctx context.Context, tx *sqlx.Tx, row *model.Friendship) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.row(row.SenderID, row.ReceiverID) != nil || f.row(row.ReceiverID, row.SenderID) != nil {
		return model.ErrConcurrentChange
	}
	f.rows[pairKey{row.SenderID, row.ReceiverID}] = *row
	return nil
}

func (f *fakeFriendRepo) Delete(ctx context.Context, tx *sqlx.Tx, senderID, receiverID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := pairKey{senderID, receiverID}
	if _, ok := f.rows[k]; !ok {
		return model.ErrConcurrentChange
	}
	delete(f.rows, k)
	return nil
}

func (f *fakeFriendRepo) IsBlocked(ctx context.Context, tx *sqlx.Tx, a, b int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range []*model.Friendship{f.row(a, b), f.row(b, a)} {
		if r != nil && r.Status == model.FriendshipBlocked {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeFriendRepo) CountAccepted(ctx context.Context, userID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k, r := range f.rows {
		if r.Status == model.FriendshipAccepted && (k.a == userID || k.b == userID) {
			n++
		}
	}
	return n, nil
}

func (f *fakeFriendRepo) list(userID int64, match func(k pairKey, r model.Friendship) (int64, bool)) []model.UserSummary {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.UserSummary
	for k, r := range f.rows {
		if id, ok := match(k, r); ok {
			out = append(out, model.UserSummary{ID: id})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeFriendRepo) ListFriends(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error) {
	return f.list(userID, func(k pairKey, r model.Friendship) (int64, bool) {
		if r.Status != model.FriendshipAccepted {
			return 0, false
		}
		if k.a == userID {
			return k.b, true
		}
		return k.a, k.b == userID
	}), nil, nil
}

func (f *fakeFriendRepo) ListIncoming(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error) {
	return f.list(userID, func(k pairKey, r model.Friendship) (int64, bool) {
		return k.a, r.Status == model.FriendshipPending && k.b == userID
	}), nil, nil
}

func (f *fakeFriendRepo) ListOutgoing(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error) {
	return f.list(userID, func(k pairKey, r model.Friendship) (int64, bool) {
		return k.b, r.Status == model.FriendshipPending && k.a == userID
	}), nil, nil
}

type fakeFollowRepo struct {
	mu    sync.Mutex
	edges map[pairKey]bool

	checkFollowsFn func(followerID int64, ids []int64) (map[int64]bool, error)
}

func newFakeFollowRepo() *fakeFollowRepo {
	return &fakeFollowRepo{edges: map[pairKey]bool{}}
}

func (f *fakeFollowRepo) Create(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := pairKey{followerID, followeeID}
	if f.edges[k] {
		return false, nil
	}
	f.edges[k] = true
	return true, nil
}

func (f *fakeFollowRepo) Delete(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := pairKey{followerID, followeeID}
	if !f.edges[k] {
		return model.ErrNotFollowing
	}
	delete(f.edges, k)
	return nil
}

func (f *fakeFollowRepo) DeleteBetween(ctx context.Context, tx *sqlx.Tx, a, b int64) ([]model.Follow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var removed []model.Follow
	for _, k := range []pairKey{{a, b}, {b, a}} {
		if f.edges[k] {
			delete(f.edges, k)
			removed = append(removed, model.Follow{FollowerID: k.a, FolloweeID: k.b})
		}
	}
	return removed, nil
}

func (f *fakeFollowRepo) Exists(ctx context.Context, followerID, followeeID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.edges[pairKey{followerID, followeeID}], nil
}

func (f *fakeFollowRepo) CountFollowers(ctx context.Context, userID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k := range f.edges {
		if k.b == userID {
			n++
		}
	}
	return n, nil
}

func (f *fakeFollowRepo) CountFollowing(ctx context.Context, userID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k := range f.edges {
		if k.a == userID {
			n++
		}
	}
	return n, nil
}

func (f *fakeFollowRepo) GetFollowers(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.UserSummary
	for k := range f.edges {
		if k.b == userID {
			out = append(out, model.UserSummary{ID: k.a})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil, nil
}

func (f *fakeFollowRepo) GetFollowing(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.UserSummary
	for k := range f.edges {
		if k.a == userID {
			out = append(out, model.UserSummary{ID: k.b})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil, nil
}

func (f *fakeFollowRepo) CheckFollows(ctx context.Context, followerID int64, followeeIDs []int64) (map[int64]bool, error) {
	if f.checkFollowsFn != nil {
		return f.checkFollowsFn(followerID, followeeIDs)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[int64]bool, len(followeeIDs))
	for _, id := range followeeIDs {
		out[id] = f.edges[pairKey{followerID, id}]
	}
	return out, nil
}

type reactionKey struct {
	subject   model.SubjectType
	subjectID int64
	userID    int64
}

type fakeReactionRepo struct {
	mu   sync.Mutex
	rows map[reactionKey]model.Reaction
}

func newFakeReactionRepo() *fakeReactionRepo {
	return &fakeReactionRepo{rows: map[reactionKey]model.Reaction{}}
}

func (f *fakeReactionRepo) GetForUpdate(ctx context.Context, tx *sqlx.Tx, subject model.SubjectType, subjectID, userID int64) (*model.Reaction, error) {
	return f.Get(ctx, subject, subjectID, userID)
}

func (f *fakeReactionRepo) Get(ctx context.Context, subject model.SubjectType, subjectID, userID int64) (*model.Reaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[reactionKey{subject, subjectID, userID}]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (f *fakeReactionRepo) Insert(ctx context.Context, tx *sqlx.Tx, r *model.Reaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := reactionKey{r.SubjectType, r.SubjectID, r.UserID}
	if _, ok := f.rows[k]; ok {
		return model.ErrAlreadyReacted
	}
	r.CreatedAt = time.Now()
	f.rows[k] = *r
	return nil
}

func (f *fakeReactionRepo) Delete(ctx context.Context, tx *sqlx.Tx, subject model.SubjectType, subjectID, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := reactionKey{subject, subjectID, userID}
	if _, ok := f.rows[k]; !ok {
		return model.ErrNotReacted
	}
	delete(f.rows, k)
	return nil
}

func (f *fakeReactionRepo) Count(ctx context.Context, subject model.SubjectType, subjectID int64, t model.ReactionType) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k, r := range f.rows {
		if k.subject == subject && k.subjectID == subjectID && r.Type == t {
			n++
		}
	}
	return n, nil
}

type contentKey struct {
	subject model.SubjectType
	id      int64
}

type fakeContentRepo struct {
	authors  map[contentKey]int64
	comments map[int64]int64
	tags     map[int64][]string
}

func newFakeContentRepo() *fakeContentRepo {
	return &fakeContentRepo{
		authors:  map[contentKey]int64{},
		comments: map[int64]int64{},
		tags:     map[int64][]string{},
	}
}

func (f *fakeContentRepo) addPost(postID, authorID int64) {
	f.authors[contentKey{model.SubjectPost, postID}] = authorID
}

func (f *fakeContentRepo) addComment(commentID, authorID int64) {
	f.authors[contentKey{model.SubjectComment, commentID}] = authorID
}

func (f *fakeContentRepo) AuthorOf(ctx context.Context, subject model.SubjectType, subjectID int64) (int64, error) {
	if !subject.Reactable() {
		return 0, model.ErrInvalidSubject
	}
	id, ok := f.authors[contentKey{subject, subjectID}]
	if !ok {
		return 0, model.ErrSubjectNotFound
	}
	return id, nil
}

func (f *fakeContentRepo) CountComments(ctx context.Context, postID int64) (int64, error) {
	return f.comments[postID], nil
}

func (f *fakeContentRepo) AddTag(ctx context.Context, postID int64, tag string) (bool, error) {
	for _, t := range f.tags[postID] {
		if t == tag {
			return false, nil
		}
	}
	f.tags[postID] = append(f.tags[postID], tag)
	return true, nil
}

type fakeViewRepo struct {
	views map[pairKey]bool
}

func (f *fakeViewRepo) Insert(ctx context.Context, postID, userID int64) (bool, error) {
	if f.views == nil {
		f.views = map[pairKey]bool{}
	}
	k := pairKey{postID, userID}
	if f.views[k] {
		return false, nil
	}
	f.views[k] = true
	return true, nil
}

func (f *fakeViewRepo) Count(ctx context.Context, postID int64) (int64, error) {
	var n int64
	for k := range f.views {
		if k.a == postID {
			n++
		}
	}
	return n, nil
}

type fakeNotificationRepo struct {
	unread    int64
	total     int64
	markCalls int
}

func (f *fakeNotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	f.total++
	f.unread++
	return nil
}

func (f *fakeNotificationRepo) List(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.Notification, *time.Time, error) {
	return nil, nil, nil
}

func (f *fakeNotificationRepo) Count(ctx context.Context, userID int64) (int64, error) {
	return f.total, nil
}

func (f *fakeNotificationRepo) CountUnread(ctx context.Context, userID int64) (int64, error) {
	return f.unread, nil
}

func (f *fakeNotificationRepo) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	f.markCalls++
	n := f.unread
	f.unread = 0
	return n, nil
}

// =============================================================================
// MIRROR, NOTIFIER, CACHE
// =============================================================================

type mockMirror struct {
	mu  sync.Mutex
	ops []mirror.Op
	err error
}

func (m *mockMirror) Apply(ctx context.Context, op mirror.Op) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, op)
	if m.err != nil {
		return &mirror.SoftError{Op: op, Queued: true, Err: m.err}
	}
	return nil
}

func (m *mockMirror) kinds() []mirror.Kind {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mirror.Kind, len(m.ops))
	for i, op := range m.ops {
		out[i] = op.Kind
	}
	return out
}

type mockNotifier struct {
	mu   sync.Mutex
	sent []model.Notification
}

func (m *mockNotifier) Notify(ctx context.Context, n model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, n)
	return nil
}

func setupCounter(t *testing.T) (*miniredis.Miniredis, *cache.RedisCounter) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, cache.NewCounter(client, time.Hour)
}
