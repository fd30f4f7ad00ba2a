package match_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/veloradating/matchsvc/internal/app"
	"github.com/veloradating/matchsvc/internal/cache"
	"github.com/veloradating/matchsvc/internal/config"
	"github.com/veloradating/matchsvc/internal/db"
	"github.com/veloradating/matchsvc/internal/server"
	"github.com/veloradating/matchsvc/internal/service/integrity"
	"github.com/veloradating/matchsvc/internal/service/match"
)

const testSecret = "test-secret"

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbase, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := dbase.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(dbase))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.New()
	cfg.App.ENV = "test"
	cfg.Redis.Addr = mr.Addr()
	cfg.Auth.JWTSecret = testSecret

	redisCache := cache.NewRedisCache(cfg)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	appCtx := app.New(dbase, redisCache, logger)

	return server.NewRouter(cfg,
		match.NewRegistrar(appCtx),
		integrity.NewRegistrar(appCtx),
	)
}

func signToken(t *testing.T, sub string, role string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	if role != "" {
		claims["role"] = role
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestPostMatchRequiresAuth(t *testing.T) {
	router := setupRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/matches", "", gin.H{
		"target_user_id": 2, "action": "like",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPostMatchFlow(t *testing.T) {
	router := setupRouter(t)

	tokenA := signToken(t, "1", "")
	tokenB := signToken(t, "2", "")

	rec := doJSON(t, router, http.MethodPost, "/matches", tokenA, gin.H{
		"target_user_id": 2, "action": "like",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var first struct {
		Success        bool   `json:"success"`
		IsMutual       bool   `json:"is_mutual"`
		ConversationID string `json:"conversation_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.True(t, first.Success)
	assert.False(t, first.IsMutual)

	rec = doJSON(t, router, http.MethodPost, "/matches", tokenB, gin.H{
		"target_user_id": 1, "action": "like",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var second struct {
		Success        bool   `json:"success"`
		IsMutual       bool   `json:"is_mutual"`
		ConversationID string `json:"conversation_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.True(t, second.Success)
	assert.True(t, second.IsMutual)
	assert.NotEmpty(t, second.ConversationID)
}

func TestPostMatchRejectsSelfAction(t *testing.T) {
	router := setupRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/matches", signToken(t, "1", ""), gin.H{
		"target_user_id": 1, "action": "like",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Success bool   `json:"success"`
		Msg     string `json:"msg"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Msg)
}

func TestAdminScanRequiresAdminRole(t *testing.T) {
	router := setupRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/admin/data-integrity/matches", signToken(t, "1", ""), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/admin/data-integrity/matches", signToken(t, "1", "admin"), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var report struct {
		TotalMatches int64             `json:"totalMatches"`
		Issues       []json.RawMessage `json:"issues"`
		Summary      struct {
			ByType map[string]int `json:"byType"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.NotNil(t, report.Issues)
}

func TestAdminFixUnknownAction(t *testing.T) {
	router := setupRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/admin/data-integrity/matches", signToken(t, "9", "admin"), gin.H{
		"action": "fix_everything",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "unknown_action", resp.Error)
}
