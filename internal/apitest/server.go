// apitest — in-memory фейк REST API социальной сети для тестов клиента.
//
// Сервер держит пользователей, посты, комментарии, подписки и реакции в
// памяти, выпускает JWT-токены и позволяет сценарно управлять отказами:
// протухание access-токенов, отказ или задержка обновления, разовые ошибки.
package apitest

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pribylovaa/go-social-client/internal/models"
)

const signingKey = "apitest-signing-key"

type userRec struct {
	models.UserPublic
	password string
}

type pair struct{ a, b int64 }

type follow struct {
	id        int64
	createdAt time.Time
}

// Server — фейковый API поверх httptest.Server.
type Server struct {
	srv *httptest.Server
	log *slog.Logger

	mu        sync.Mutex
	nextID    int64
	users     map[int64]*userRec
	byEmail   map[string]int64
	access    map[string]int64
	refresh   map[string]int64
	posts     map[int64]*models.Post
	postOrder []int64
	comments  map[int64][]models.Comment
	follows   map[pair]follow
	reactions map[pair]models.ReactionType
	saves     map[pair]bool

	accessTTL   time.Duration
	refreshFail int
	refreshHold chan struct{}
	failNext    map[string]int

	refreshCalls atomic.Int64
	unauthorized atomic.Int64
	requests     atomic.Int64
}

// Option настраивает сервер.
type Option func(*Server)

// WithLogger — логгер записей fake_api.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithAccessTTL — срок жизни выпускаемых access-токенов (exp в JWT).
func WithAccessTTL(d time.Duration) Option {
	return func(s *Server) { s.accessTTL = d }
}

// New запускает сервер; закрывать через Close.
func New(opts ...Option) *Server {
	s := &Server{
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		users:     make(map[int64]*userRec),
		byEmail:   make(map[string]int64),
		access:    make(map[string]int64),
		refresh:   make(map[string]int64),
		posts:     make(map[int64]*models.Post),
		comments:  make(map[int64][]models.Comment),
		follows:   make(map[pair]follow),
		reactions: make(map[pair]models.ReactionType),
		saves:     make(map[pair]bool),
		failNext:  make(map[string]int),
		accessTTL: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.srv = httptest.NewServer(s.router())
	return s
}

func (s *Server) router() http.Handler {
	root := chi.NewRouter()
	root.Use(recoverer, requestID, logging(s.log), s.count, s.injectFailures)

	root.Route("/api", func(r chi.Router) {
		r.Post("/auth/register/", s.handleRegister)
		r.Post("/auth/login/", s.handleLogin)
		r.Post("/auth/token/refresh/", s.handleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Get("/users/me/", s.handleMe)
			r.Get("/users/{id}/", s.handleGetUser)
			r.Patch("/users/{id}/", s.handleUpdateUser)
			r.Post("/users/{id}/follow/", s.handleFollow)
			r.Get("/users/{id}/followers/", s.handleFollowers)
			r.Get("/users/{id}/following/", s.handleFollowing)

			r.Get("/feed/", s.handleFeed)

			r.Get("/posts/", s.handleListPosts)
			r.Post("/posts/", s.handleCreatePost)
			r.Get("/posts/{id}/", s.handleGetPost)
			r.Patch("/posts/{id}/", s.handleUpdatePost)
			r.Delete("/posts/{id}/", s.handleDeletePost)
			r.Post("/posts/{id}/save/", s.handleSave)
			r.Post("/posts/{id}/react/", s.handleReact)
			r.Get("/posts/{id}/comments/", s.handleListComments)
			r.Post("/posts/{id}/comments/", s.handleCreateComment)
		})
	})

	return root
}

// Close останавливает сервер.
func (s *Server) Close() { s.srv.Close() }

// URL — адрес бэкенда (аналог BACKEND_URL).
func (s *Server) URL() string { return s.srv.URL }

// BaseURL — корень API: URL()+"/api".
func (s *Server) BaseURL() string { return s.srv.URL + "/api" }

// RefreshCalls — число обращений к /auth/token/refresh/.
func (s *Server) RefreshCalls() int64 { return s.refreshCalls.Load() }

// Unauthorized — число ответов 401 от проверки токена.
func (s *Server) Unauthorized() int64 { return s.unauthorized.Load() }

// Requests — общее число запросов.
func (s *Server) Requests() int64 { return s.requests.Load() }

// AddUser регистрирует пользователя напрямую.
func (s *Server) AddUser(username, email, password string) models.UserPublic {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.addUserLocked(username, email, password).UserPublic
}

func (s *Server) addUserLocked(username, email, password string) *userRec {
	s.nextID++
	u := &userRec{
		UserPublic: models.UserPublic{
			ID:         s.nextID,
			Username:   username,
			Email:      email,
			DateJoined: time.Now().UTC(),
		},
		password: password,
	}
	s.users[u.ID] = u
	s.byEmail[email] = u.ID
	return u
}

// IssueTokens выпускает пару токенов пользователю uid.
func (s *Server) IssueTokens(uid int64) models.TokenPair {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.issueLocked(uid)
}

func (s *Server) issueLocked(uid int64) models.TokenPair {
	p := models.TokenPair{
		Access:  s.signLocked(uid, "access", s.accessTTL),
		Refresh: s.signLocked(uid, "refresh", 24*time.Hour),
	}
	s.access[p.Access] = uid
	s.refresh[p.Refresh] = uid
	return p
}

func (s *Server) signLocked(uid int64, typ string, ttl time.Duration) string {
	now := time.Now()
	claims := jwt.MapClaims{
		"token_type": typ,
		"user_id":    uid,
		"jti":        uuid.NewString(),
		"iat":        now.Unix(),
		"exp":        now.Add(ttl).Unix(),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingKey))
	if err != nil {
		panic(err)
	}
	return tok
}

// ExpireAccess делает все выпущенные access-токены недействительными.
func (s *Server) ExpireAccess() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.access = make(map[string]int64)
}

// RevokeRefresh делает все refresh-токены недействительными.
func (s *Server) RevokeRefresh() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refresh = make(map[string]int64)
}

// FailRefresh заставляет обновление отвечать статусом status (0 — снять).
func (s *Server) FailRefresh(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refreshFail = status
}

// HoldRefresh задерживает ответы на обновление до вызова release.
func (s *Server) HoldRefresh() (release func()) {
	ch := make(chan struct{})

	s.mu.Lock()
	s.refreshHold = ch
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.refreshHold = nil
			s.mu.Unlock()
			close(ch)
		})
	}
}

// FailNext — следующий запрос method path получит status.
func (s *Server) FailNext(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failNext[method+" "+path] = status
}

// AddPost создаёт пост от имени автора.
func (s *Server) AddPost(authorID int64, body string, vis models.Visibility) models.Post {
	s.mu.Lock()
	defer s.mu.Unlock()

	return *s.addPostLocked(authorID, body, vis, nil)
}

func (s *Server) addPostLocked(authorID int64, body string, vis models.Visibility, media []models.PostMedia) *models.Post {
	s.nextID++
	now := time.Now().UTC()
	p := &models.Post{
		ID:         s.nextID,
		Body:       body,
		Visibility: vis,
		Media:      media,
		Hashtags:   []models.Hashtag{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if p.Media == nil {
		p.Media = []models.PostMedia{}
	}
	s.posts[p.ID] = p
	s.postOrder = append(s.postOrder, p.ID)
	if u, ok := s.users[authorID]; ok {
		p.Author = u.UserPublic
	}
	return p
}

// Follow подписывает follower на following.
func (s *Server) Follow(follower, following int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	s.follows[pair{follower, following}] = follow{id: s.nextID, createdAt: time.Now().UTC()}
}

func (s *Server) lookupAccess(token string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	uid, ok := s.access[token]
	return uid, ok
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path

		s.mu.Lock()
		status, ok := s.failNext[key]
		if ok {
			delete(s.failNext, key)
		}
		s.mu.Unlock()

		if ok {
			writeDetail(w, status, http.StatusText(status))
			return
		}
		next.ServeHTTP(w, r)
	})
}
