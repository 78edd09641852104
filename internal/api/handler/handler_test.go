package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/warbler/config"
	"github.com/d60-Lab/warbler/internal/auth"
	"github.com/d60-Lab/warbler/internal/cache"
	"github.com/d60-Lab/warbler/internal/middleware"
	"github.com/d60-Lab/warbler/internal/repository"
	"github.com/d60-Lab/warbler/internal/service"
	"github.com/d60-Lab/warbler/internal/testutil"
	"github.com/d60-Lab/warbler/internal/validation"
)

func init() { gin.SetMode(gin.TestMode) }

type apiEnv struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
	tokens *auth.TokenProvider
}

func setupAPI(t *testing.T) *apiEnv {
	t.Helper()
	require.NoError(t, validation.Register())
	db := testutil.NewDB(t)
	_, rdb := testutil.NewRedis(t)

	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	stats := cache.NewStatsCache(db, rdb, time.Minute, nil)
	users := service.NewUserService(userRepo, followRepo, service.NewBcryptHasher(4), stats, nil)
	rels := service.NewRelationshipService(followRepo, userRepo, stats, nil)
	messages := service.NewMessageService(repository.NewMessageRepository(db), repository.NewLikeRepository(db), followRepo, stats, nil)
	tokens := auth.NewTokenProvider(config.JWTConfig{Secret: "test-secret", Issuer: "warbler"})

	r := gin.New()
	NewHandler(users, rels, messages, tokens, nil).Register(r.Group("/api/v1"), middleware.NewIPRateLimiter(0, 0))
	return &apiEnv{t: t, db: db, router: r, tokens: tokens}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *apiEnv) do(method, path, token string, body interface{}) (int, envelope) {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(e.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func (e *apiEnv) tokenFor(userID, username string) string {
	e.t.Helper()
	token, _, err := e.tokens.Issue(userID, username)
	require.NoError(e.t, err)
	return token
}

func TestSignupAndToken(t *testing.T) {
	e := setupAPI(t)

	code, env := e.do(http.MethodPost, "/api/v1/auth/signup", "", gin.H{
		"username": "alice", "email": "alice@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, code)
	var created tokenResponse
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.NotEmpty(t, created.Token)
	assert.Equal(t, "alice", created.User.Username)

	code, _ = e.do(http.MethodPost, "/api/v1/auth/signup", "", gin.H{
		"username": "alice", "email": "other@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = e.do(http.MethodPost, "/api/v1/auth/token", "", gin.H{"username": "alice", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env = e.do(http.MethodPost, "/api/v1/auth/token", "", gin.H{"username": "alice", "password": "secret123"})
	require.Equal(t, http.StatusOK, code)
	var issued tokenResponse
	require.NoError(t, json.Unmarshal(env.Data, &issued))
	userID, err := e.tokens.Validate(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, created.User.ID, userID)
}

func TestSignupValidation(t *testing.T) {
	e := setupAPI(t)
	code, _ := e.do(http.MethodPost, "/api/v1/auth/signup", "", gin.H{
		"username": "bad name!", "email": "x@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = e.do(http.MethodPost, "/api/v1/auth/signup", "", gin.H{"username": "bob", "email": "b@example.com"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestRequiresToken(t *testing.T) {
	e := setupAPI(t)
	code, _ := e.do(http.MethodGet, "/api/v1/timeline", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = e.do(http.MethodGet, "/api/v1/timeline", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestFollowFlow(t *testing.T) {
	e := setupAPI(t)
	me := testutil.CreateUser(t, e.db, "me")
	them := testutil.CreateUser(t, e.db, "them")
	token := e.tokenFor(me.ID, me.Username)

	code, _ := e.do(http.MethodPost, "/api/v1/users/"+them.ID+"/follow", token, nil)
	require.Equal(t, http.StatusOK, code)

	code, env := e.do(http.MethodGet, "/api/v1/users/"+me.ID+"/following", token, nil)
	require.Equal(t, http.StatusOK, code)
	var page struct {
		List []struct {
			Username string `json:"username"`
		} `json:"list"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.List, 1)
	assert.Equal(t, "them", page.List[0].Username)

	code, env = e.do(http.MethodGet, "/api/v1/users/"+them.ID, token, nil)
	require.Equal(t, http.StatusOK, code)
	var profile service.UserProfile
	require.NoError(t, json.Unmarshal(env.Data, &profile))
	assert.True(t, profile.IsFollowing)
	assert.EqualValues(t, 1, profile.Stats.Followers)

	code, _ = e.do(http.MethodPost, "/api/v1/users/"+me.ID+"/follow", token, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = e.do(http.MethodPost, "/api/v1/users/nobody/follow", token, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = e.do(http.MethodDelete, "/api/v1/users/"+them.ID+"/follow", token, nil)
	require.Equal(t, http.StatusOK, code)
	code, env = e.do(http.MethodGet, "/api/v1/users/"+them.ID+"/followers", token, nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Empty(t, page.List)
}

func TestMessageFlow(t *testing.T) {
	e := setupAPI(t)
	author := testutil.CreateUser(t, e.db, "author")
	fan := testutil.CreateUser(t, e.db, "fan")
	authorToken := e.tokenFor(author.ID, author.Username)
	fanToken := e.tokenFor(fan.ID, fan.Username)

	code, env := e.do(http.MethodPost, "/api/v1/messages", authorToken, gin.H{"text": "hello api"})
	require.Equal(t, http.StatusCreated, code)
	var msg struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &msg))
	assert.Equal(t, "hello api", msg.Text)

	code, _ = e.do(http.MethodPost, "/api/v1/messages/"+msg.ID+"/like", authorToken, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = e.do(http.MethodPost, "/api/v1/messages/"+msg.ID+"/like", fanToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"liked":true}`, string(env.Data))

	code, env = e.do(http.MethodGet, "/api/v1/messages/"+msg.ID, fanToken, nil)
	require.Equal(t, http.StatusOK, code)
	var detail struct {
		Likes int64 `json:"likes"`
		Liked bool  `json:"liked"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.EqualValues(t, 1, detail.Likes)
	assert.True(t, detail.Liked)

	code, env = e.do(http.MethodGet, "/api/v1/users/"+fan.ID+"/likes", fanToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), "hello api")

	code, _ = e.do(http.MethodDelete, "/api/v1/messages/"+msg.ID, fanToken, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = e.do(http.MethodDelete, "/api/v1/messages/"+msg.ID, authorToken, nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = e.do(http.MethodGet, "/api/v1/messages/"+msg.ID, authorToken, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCreateMessageTooLong(t *testing.T) {
	e := setupAPI(t)
	u := testutil.CreateUser(t, e.db, "author")
	code, _ := e.do(http.MethodPost, "/api/v1/messages", e.tokenFor(u.ID, u.Username), gin.H{"text": string(bytes.Repeat([]byte("x"), 141))})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestTokenForDeletedUser(t *testing.T) {
	e := setupAPI(t)
	author := testutil.CreateUser(t, e.db, "author")
	m := testutil.CreateMessage(t, e.db, author.ID, "still here")
	ghost := e.tokenFor("ghost", "ghost")

	code, env := e.do(http.MethodPost, "/api/v1/messages", ghost, gin.H{"text": "hello"})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, service.ErrUserNotFound.Error(), env.Message)

	code, env = e.do(http.MethodPost, "/api/v1/messages/"+m.ID+"/like", ghost, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, service.ErrUserNotFound.Error(), env.Message)

	code, _ = e.do(http.MethodPost, "/api/v1/users/"+author.ID+"/follow", ghost, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestTimelineAndSearch(t *testing.T) {
	e := setupAPI(t)
	me := testutil.CreateUser(t, e.db, "me")
	friend := testutil.CreateUser(t, e.db, "friend")
	stranger := testutil.CreateUser(t, e.db, "stranger")
	testutil.CreateMessage(t, e.db, friend.ID, "from friend")
	testutil.CreateMessage(t, e.db, stranger.ID, "from stranger")
	token := e.tokenFor(me.ID, me.Username)

	code, _ := e.do(http.MethodPost, "/api/v1/users/"+friend.ID+"/follow", token, nil)
	require.Equal(t, http.StatusOK, code)

	code, env := e.do(http.MethodGet, "/api/v1/timeline", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), "from friend")
	assert.NotContains(t, string(env.Data), "from stranger")

	code, env = e.do(http.MethodGet, "/api/v1/users?q=frie", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"username":"friend"`)
	assert.NotContains(t, string(env.Data), `"username":"stranger"`)
}
