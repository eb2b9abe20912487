package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"debate_arena/internal/metrics"
	"debate_arena/internal/models"
	"debate_arena/internal/repository"
	"debate_arena/internal/service"
	"debate_arena/internal/storage"
	"debate_arena/internal/utils"
	"debate_arena/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	t        *testing.T
	router   *gin.Engine
	services *service.Services
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := storage.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(context.Background()))

	tokens, err := utils.NewTokenManager("test-secret", time.Hour)
	require.NoError(t, err)
	reg := prometheus.NewRegistry()

	services, err := service.NewServices(service.Deps{
		Repos:   repository.NewRepositories(db),
		Config:  config.DefaultDebateConfig(),
		Tokens:  tokens,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics: metrics.New(reg),
	})
	require.NoError(t, err)

	r := gin.New()
	SetupRoutes(r, services, tokens, reg)
	return &testServer{t: t, router: r, services: services}
}

func (s *testServer) do(method, path, token string, body any) (int, map[string]any) {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w.Code, out
}

// signup 註冊並登入，回傳 token 與用戶 ID
func (s *testServer) signup(username string) (string, uint) {
	s.t.Helper()
	code, _ := s.do(http.MethodPost, "/api/register", "", gin.H{"username": username, "password": "secret-pass"})
	require.Equal(s.t, http.StatusCreated, code)

	code, body := s.do(http.MethodPost, "/api/login", "", gin.H{"username": username, "password": "secret-pass"})
	require.Equal(s.t, http.StatusOK, code)
	user := body["user"].(map[string]any)
	return body["token"].(string), uint(user["ID"].(float64))
}

func TestRoutes_MatchLifecycle(t *testing.T) {
	s := newTestServer(t)
	aliceToken, aliceID := s.signup("alice")
	bobToken, bobID := s.signup("bob")
	adminToken, adminID := s.signup("admin")
	require.NoError(t, s.services.User.SetAdmin(context.Background(), adminID, true))

	start := gin.H{"topic_id": 1, "side_a_user_id": aliceID, "side_b_user_id": bobID}

	code, body := s.do(http.MethodPost, "/api/admin/matches", aliceToken, start)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "permission", body["kind"])

	code, body = s.do(http.MethodPost, "/api/admin/matches", adminToken, start)
	require.Equal(t, http.StatusCreated, code)
	rounds := body["rounds"].([]any)
	require.Len(t, rounds, 1)
	roundID := uint(rounds[0].(map[string]any)["ID"].(float64))
	roundPath := "/api/rounds/" + itoa(roundID)

	// bob 不能提交 A 的陳述
	code, body = s.do(http.MethodPost, roundPath+"/content", bobToken,
		gin.H{"side": "A", "expected_phase": "WAIT_A_STATEMENT", "text": "hello"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "permission", body["kind"])

	code, body = s.do(http.MethodPost, roundPath+"/content", aliceToken,
		gin.H{"side": "A", "expected_phase": "WAIT_A_STATEMENT", "text": "opening statement"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "WAIT_B_QUESTIONS", body["phase"])

	code, body = s.do(http.MethodPost, roundPath+"/content", aliceToken,
		gin.H{"side": "A", "expected_phase": "WAIT_A_STATEMENT", "text": "again"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "phase", body["kind"])

	code, body = s.do(http.MethodPost, roundPath+"/content", bobToken,
		gin.H{"side": "B", "expected_phase": "WAIT_B_QUESTIONS", "questions": []string{}})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation", body["kind"])

	code, body = s.do(http.MethodPost, roundPath+"/votes", bobToken, gin.H{"side": "B"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "phase", body["kind"])

	code, body = s.do(http.MethodGet, roundPath+"/results", aliceToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0.0, body["total"])

	code, _ = s.do(http.MethodPost, "/api/admin/rounds/"+itoa(roundID)+"/close", adminToken, nil)
	assert.Equal(t, http.StatusConflict, code)

	matchID := uint(rounds[0].(map[string]any)["match_id"].(float64))
	code, body = s.do(http.MethodPost, "/api/admin/matches/"+itoa(matchID)+"/finish", adminToken, gin.H{"winner_id": 9999})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_winner", body["kind"])

	code, body = s.do(http.MethodPost, "/api/admin/matches/"+itoa(matchID)+"/finish", adminToken, gin.H{"winner_id": aliceID})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, string(models.MatchStatusFinished), body["status"])

	code, body = s.do(http.MethodPost, "/api/admin/matches/"+itoa(matchID)+"/finish", adminToken, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "already_closed", body["kind"])

	req := httptest.NewRequest(http.MethodGet, "/api/ranking?limit=5", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var ranking []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ranking))
	require.Len(t, ranking, 2)
	assert.Equal(t, "alice", ranking[0]["username"])
	assert.Equal(t, 1516.0, ranking[0]["rating"])

	// 公開的用戶資料與評分紀錄不需要登入
	code, body = s.do(http.MethodGet, "/api/users/"+itoa(bobID), "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "bob", body["username"])
	assert.Equal(t, 1484.0, body["rating"])
	assert.Equal(t, 1.0, body["losses"])
	assert.NotContains(t, body, "password")

	code, body = s.do(http.MethodGet, "/api/users/999", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", body["kind"])

	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/users/"+itoa(aliceID)+"/ratings", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var history []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	require.Len(t, history, 1)
	assert.Equal(t, "win", history[0]["result"])
	assert.Equal(t, float64(bobID), history[0]["opponent_id"])
}

func TestRoutes_AuthAndInfrastructure(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(http.MethodGet, "/api/matches", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "unauthorized", body["kind"])

	code, body = s.do(http.MethodPost, "/api/login", "", gin.H{"username": "ghost", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "unauthorized", body["kind"])

	token, _ := s.signup("carol")
	code, body = s.do(http.MethodPost, "/api/register", "", gin.H{"username": "carol", "password": "secret-pass"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "conflict", body["kind"])

	code, body = s.do(http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "carol", body["username"])
	assert.NotContains(t, body, "password")

	code, _ = s.do(http.MethodGet, "/api/matches/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, body = s.do(http.MethodGet, "/api/matches/77", token, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", body["kind"])

	code, _ = s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "debate_")
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
