package mocks

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/blog-cms-api/internal/models"
	"github.com/blog-cms-api/internal/repository"
)

// MockArticleRepository is an in-memory ArticleRepository
type MockArticleRepository struct {
	mu            sync.Mutex
	Articles      map[string]*models.Article
	Columns       models.CounterColumns
	CreateError   error
	IncrementFunc func(ctx context.Context, id string, delta models.CounterDelta) error
	Increments    map[string]models.CounterDelta
}

var _ repository.ArticleRepository = (*MockArticleRepository)(nil)

func NewMockArticleRepository() *MockArticleRepository {
	return &MockArticleRepository{
		Articles:   make(map[string]*models.Article),
		Columns:    models.CounterColumns{Likes: true, Views: true},
		Increments: make(map[string]models.CounterDelta),
	}
}

// Add stores an article directly, bypassing CreateError
func (m *MockArticleRepository) Add(a *models.Article) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.Articles[a.ID] = &cp
}

// Snapshot returns a copy of the stored article
func (m *MockArticleRepository) Snapshot(id string) *models.Article {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.Articles[id]
	if !ok {
		return nil
	}
	cp := *a
	return &cp
}

// All returns copies of every article ordered by scheduled then created time
func (m *MockArticleRepository) All() []*models.Article {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Article, 0, len(m.Articles))
	for _, a := range m.Articles {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ScheduledAt != nil && out[j].ScheduledAt != nil && !out[i].ScheduledAt.Equal(*out[j].ScheduledAt) {
			return out[i].ScheduledAt.Before(*out[j].ScheduledAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (m *MockArticleRepository) Create(ctx context.Context, article *models.Article) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.Add(article)
	return nil
}

func (m *MockArticleRepository) Update(ctx context.Context, article *models.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Articles[article.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *article
	m.Articles[article.ID] = &cp
	return nil
}

func (m *MockArticleRepository) GetByID(ctx context.Context, id string) (*models.Article, error) {
	return m.Snapshot(id), nil
}

func (m *MockArticleRepository) List(ctx context.Context, filter models.ArticleFilter) ([]*models.Article, int, error) {
	var matched []*models.Article
	for _, a := range m.All() {
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.Query != "" && !strings.Contains(strings.ToLower(a.Title), strings.ToLower(filter.Query)) {
			continue
		}
		matched = append(matched, a)
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	if filter.Offset >= total {
		return []*models.Article{}, total, nil
	}
	end := total
	if filter.Limit > 0 && filter.Offset+filter.Limit < total {
		end = filter.Offset + filter.Limit
	}
	return matched[filter.Offset:end], total, nil
}

func (m *MockArticleRepository) Search(ctx context.Context, query string, limit int) ([]*models.Article, error) {
	q := strings.ToLower(query)
	out := []*models.Article{}
	for _, a := range m.All() {
		if a.Status != models.StatusPublished {
			continue
		}
		if strings.Contains(strings.ToLower(a.Title), q) || strings.Contains(strings.ToLower(a.Content), q) {
			out = append(out, a)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MockArticleRepository) Delete(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Articles[id]; !ok {
		return false, nil
	}
	delete(m.Articles, id)
	return true, nil
}

func (m *MockArticleRepository) DeleteMany(ctx context.Context, ids []string) (int, error) {
	n := 0
	for _, id := range ids {
		ok, _ := m.Delete(ctx, id)
		if ok {
			n++
		}
	}
	return n, nil
}

func (m *MockArticleRepository) ListIDsByStatus(ctx context.Context, status models.ArticleStatus) ([]string, error) {
	var ids []string
	for _, a := range m.All() {
		if a.Status == status {
			ids = append(ids, a.ID)
		}
	}
	return ids, nil
}

func (m *MockArticleRepository) PublishDue(ctx context.Context, now time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := []string{}
	for id, a := range m.Articles {
		if a.Status != models.StatusScheduled || a.ScheduledAt == nil || a.ScheduledAt.After(now) {
			continue
		}
		a.Status = models.StatusPublished
		if a.PublishedAt == nil {
			published := now
			a.PublishedAt = &published
		}
		a.UpdatedAt = now
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MockArticleRepository) IncrementCounters(ctx context.Context, id string, delta models.CounterDelta) error {
	if m.IncrementFunc != nil {
		if err := m.IncrementFunc(ctx, id, delta); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.Articles[id]
	if !ok {
		return sql.ErrNoRows
	}
	a.Likes += delta.Likes
	a.Views += delta.Views
	total := m.Increments[id]
	total.Likes += delta.Likes
	total.Views += delta.Views
	m.Increments[id] = total
	return nil
}

func (m *MockArticleRepository) CounterColumns(ctx context.Context) (models.CounterColumns, error) {
	return m.Columns, nil
}

func (m *MockArticleRepository) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Articles), nil
}

func (m *MockArticleRepository) TotalLikes(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, a := range m.Articles {
		total += a.Likes
	}
	return total, nil
}

// MockCommentRepository is an in-memory CommentRepository
type MockCommentRepository struct {
	mu          sync.Mutex
	Comments    []*models.Comment
	CreateError error
}

var _ repository.CommentRepository = (*MockCommentRepository)(nil)

func NewMockCommentRepository() *MockCommentRepository {
	return &MockCommentRepository{}
}

func (m *MockCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *comment
	m.Comments = append(m.Comments, &cp)
	return nil
}

func (m *MockCommentRepository) ListByArticle(ctx context.Context, articleID string) ([]*models.Comment, error) {
	return m.List(ctx, models.CommentFilter{ArticleID: articleID})
}

func (m *MockCommentRepository) List(ctx context.Context, filter models.CommentFilter) ([]*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Comment{}
	for i := len(m.Comments) - 1; i >= 0; i-- {
		c := m.Comments[i]
		if filter.ArticleID != "" && c.ArticleID != filter.ArticleID {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(c.Content+" "+c.AuthorName), strings.ToLower(filter.Search)) {
			continue
		}
		cp := *c
		out = append(out, &cp)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (m *MockCommentRepository) Delete(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range m.Comments {
		if c.ID == id {
			m.Comments = append(m.Comments[:i], m.Comments[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *MockCommentRepository) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Comments), nil
}

// MockLikeRepository dedups likes per article and IP
type MockLikeRepository struct {
	mu       sync.Mutex
	liked    map[string]bool
	Articles *MockArticleRepository
}

var _ repository.LikeRepository = (*MockLikeRepository)(nil)

func NewMockLikeRepository(articles *MockArticleRepository) *MockLikeRepository {
	return &MockLikeRepository{liked: make(map[string]bool), Articles: articles}
}

func (m *MockLikeRepository) Record(ctx context.Context, articleID, visitorIP string) (bool, error) {
	m.mu.Lock()
	key := articleID + "|" + visitorIP
	if m.liked[key] {
		m.mu.Unlock()
		return false, nil
	}
	m.liked[key] = true
	m.mu.Unlock()

	if m.Articles != nil {
		if err := m.Articles.IncrementCounters(ctx, articleID, models.CounterDelta{Likes: 1}); err != nil {
			return false, err
		}
	}
	return true, nil
}

// MockVisitorRepository records visitors in memory
type MockVisitorRepository struct {
	mu       sync.Mutex
	Visitors []models.Visitor
}

var _ repository.VisitorRepository = (*MockVisitorRepository)(nil)

func NewMockVisitorRepository() *MockVisitorRepository {
	return &MockVisitorRepository{}
}

func (m *MockVisitorRepository) Record(ctx context.Context, visitor *models.Visitor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Visitors = append(m.Visitors, *visitor)
	return nil
}

func (m *MockVisitorRepository) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Visitors), nil
}

// MockSettingRepository is an in-memory SettingRepository
type MockSettingRepository struct {
	mu       sync.Mutex
	Settings map[string]*models.Setting
}

var _ repository.SettingRepository = (*MockSettingRepository)(nil)

func NewMockSettingRepository() *MockSettingRepository {
	return &MockSettingRepository{Settings: make(map[string]*models.Setting)}
}

func (m *MockSettingRepository) Get(ctx context.Context, key string) (*models.Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Settings[key]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *MockSettingRepository) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Settings[key] = &models.Setting{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	return nil
}

func (m *MockSettingRepository) Claim(ctx context.Context, key, value string, now, staleBefore time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.Settings[key]; ok && s.UpdatedAt.After(staleBefore) {
		return false, nil
	}
	m.Settings[key] = &models.Setting{Key: key, Value: value, UpdatedAt: now}
	return true, nil
}

// MockAuthorRepository stores the singleton profile
type MockAuthorRepository struct {
	mu      sync.Mutex
	Profile *models.AuthorProfile
}

var _ repository.AuthorRepository = (*MockAuthorRepository)(nil)

func (m *MockAuthorRepository) Get(ctx context.Context) (*models.AuthorProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Profile == nil {
		return nil, nil
	}
	cp := *m.Profile
	return &cp, nil
}

func (m *MockAuthorRepository) Upsert(ctx context.Context, profile *models.AuthorProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *profile
	m.Profile = &cp
	return nil
}

// MockAdminUserRepository is an in-memory AdminUserRepository
type MockAdminUserRepository struct {
	mu    sync.Mutex
	Users map[string]*models.AdminUser
}

var _ repository.AdminUserRepository = (*MockAdminUserRepository)(nil)

func NewMockAdminUserRepository() *MockAdminUserRepository {
	return &MockAdminUserRepository{Users: make(map[string]*models.AdminUser)}
}

func (m *MockAdminUserRepository) Create(ctx context.Context, user *models.AdminUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Users[user.Email]; ok {
		return fmt.Errorf("duplicate email %s", user.Email)
	}
	cp := *user
	m.Users[user.Email] = &cp
	return nil
}

func (m *MockAdminUserRepository) GetByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *MockAdminUserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	u, err := m.GetByEmail(ctx, email)
	return u != nil, err
}

// MockRepositories bundles every in-memory repository
type MockRepositories struct {
	Article   *MockArticleRepository
	Comment   *MockCommentRepository
	Like      *MockLikeRepository
	Visitor   *MockVisitorRepository
	Setting   *MockSettingRepository
	Author    *MockAuthorRepository
	AdminUser *MockAdminUserRepository
}

func NewMockRepositories() *MockRepositories {
	articles := NewMockArticleRepository()
	return &MockRepositories{
		Article:   articles,
		Comment:   NewMockCommentRepository(),
		Like:      NewMockLikeRepository(articles),
		Visitor:   NewMockVisitorRepository(),
		Setting:   NewMockSettingRepository(),
		Author:    &MockAuthorRepository{},
		AdminUser: NewMockAdminUserRepository(),
	}
}

// Repositories exposes the mocks through the repository interfaces
func (m *MockRepositories) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Article:   m.Article,
		Comment:   m.Comment,
		Like:      m.Like,
		Visitor:   m.Visitor,
		Setting:   m.Setting,
		Author:    m.Author,
		AdminUser: m.AdminUser,
	}
}

// MockGenerator returns canned articles
type MockGenerator struct {
	mu           sync.Mutex
	GenerateFunc func(ctx context.Context, topic string) (*models.GeneratedArticle, error)
	Topics       []string
}

func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

func (m *MockGenerator) Generate(ctx context.Context, topic string) (*models.GeneratedArticle, error) {
	m.mu.Lock()
	m.Topics = append(m.Topics, topic)
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, topic)
	}
	return &models.GeneratedArticle{
		Title:    "About " + topic,
		Content:  "<p>All about " + topic + ".</p>",
		Excerpt:  "All about " + topic,
		Hashtags: []string{"#blog", topic},
	}, nil
}

// Calls returns the topics generated so far
func (m *MockGenerator) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Topics...)
}

// MockImageStore keeps uploaded images in memory
type MockImageStore struct {
	mu          sync.Mutex
	Objects     map[string][]byte
	UploadError error
}

func NewMockImageStore() *MockImageStore {
	return &MockImageStore{Objects: make(map[string][]byte)}
}

func (m *MockImageStore) Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	if m.UploadError != nil {
		return "", m.UploadError
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Objects[name] = buf.Bytes()
	return "/uploads/" + name, nil
}

func (m *MockImageStore) List(ctx context.Context) ([]models.StoredImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.StoredImage, 0, len(m.Objects))
	for name, data := range m.Objects {
		out = append(out, models.StoredImage{Name: name, URL: "/uploads/" + name, Size: int64(len(data))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MockImageStore) Delete(ctx context.Context, names []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, name := range names {
		if _, ok := m.Objects[name]; ok {
			delete(m.Objects, name)
			n++
		}
	}
	return n, nil
}
