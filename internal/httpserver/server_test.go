package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/patternrush/assets"
	"github.com/robalobadob/patternrush/internal/database"
	"github.com/robalobadob/patternrush/internal/leaderboard"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	db, err := database.Open(database.Memory)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db, assets.Migrations()))
	return New(db, Config{ClientOrigin: "http://example.test", JWTSecret: "test-secret"})
}

func do(t *testing.T, s *Server, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Equal(t, "http://example.test", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestNotFoundIsJSON(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"not_found","path":"/nope"}`, rec.Body.String())
}

func TestPreflight(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodOptions, "/leaderboard", nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestLeaderboard_TopIsSeededAndSorted(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/leaderboard", "/api/leaderboard"} {
		rec := do(t, s, http.MethodGet, path, nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		top := decode[[]leaderboard.Entry](t, rec)
		require.Len(t, top, 5)
		assert.Equal(t, "ProGamer", top[0].PlayerName)
		for i := 1; i < len(top); i++ {
			assert.GreaterOrEqual(t, top[i-1].Score, top[i].Score)
		}
	}
}

func TestLeaderboard_Submit(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/leaderboard", leaderboard.Submission{
		PlayerName: "  Ada  ", Score: 9000, Level: 20, TimeCompleted: 1700000000,
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	e := decode[leaderboard.Entry](t, rec)
	assert.NotZero(t, e.ID)
	assert.Equal(t, "Ada", e.PlayerName)

	top := decode[[]leaderboard.Entry](t, do(t, s, http.MethodGet, "/leaderboard", nil, ""))
	require.Len(t, top, 6)
	assert.Equal(t, e, top[0])
}

func TestLeaderboard_TopIsCappedAtTen(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < 8; i++ {
		req := httptest.NewRequest(http.MethodPost, "/leaderboard",
			strings.NewReader(`{"playerName":"P","score":10,"level":1,"timeCompleted":0}`))
		req.RemoteAddr = "10.0.0." + string(rune('1'+i)) + ":5000"
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	top := decode[[]leaderboard.Entry](t, do(t, s, http.MethodGet, "/leaderboard", nil, ""))
	assert.Len(t, top, leaderboard.TopN)
}

func TestLeaderboard_RejectsInvalid(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/leaderboard", map[string]any{
		"playerName": "<script>", "score": -1, "level": 51, "timeCompleted": 0,
	}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	res := decode[invalidRes](t, rec)
	assert.Equal(t, "Invalid data", res.Message)
	var fields []string
	for _, f := range res.Errors {
		fields = append(fields, f.Field)
	}
	assert.ElementsMatch(t, []string{"playerName", "score", "level"}, fields)

	rec = do(t, s, http.MethodPost, "/leaderboard", `{"playerName":`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/leaderboard", `{"playerName":"Ada","score":1.5,"level":1,"timeCompleted":0}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "score must be an integer")

	top := decode[[]leaderboard.Entry](t, do(t, s, http.MethodGet, "/leaderboard", nil, ""))
	assert.Len(t, top, 5, "nothing stored")
}

func TestLeaderboard_SubmitRateLimit(t *testing.T) {
	s := newTestServer(t)
	body := leaderboard.Submission{PlayerName: "Spam", Score: 1, Level: 1}
	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusCreated, do(t, s, http.MethodPost, "/leaderboard", body, "").Code)
	}
	rec := do(t, s, http.MethodPost, "/leaderboard", body, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "Too many score submissions")
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Reads have their own budget.
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/leaderboard", nil, "").Code)
}

func TestLimiter_PerClient(t *testing.T) {
	l := NewLimiter(2, time.Minute, "slow down")
	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
}

// ----------------------------------- auth -----------------------------------

func signup(t *testing.T, s *Server, user, pw string) authRes {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/auth/signup", credentials{Username: user, Password: pw}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[authRes](t, rec)
}

func TestAuth_SignupLoginMe(t *testing.T) {
	s := newTestServer(t)
	res := signup(t, s, "grace", "correct-horse")
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "grace", res.Username)

	rec := do(t, s, http.MethodPost, "/auth/signup", credentials{Username: "GRACE", Password: "another-pass"}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, s, http.MethodPost, "/auth/login", credentials{Username: "grace", Password: "wrong-password"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, s, http.MethodPost, "/auth/login", credentials{Username: "grace", Password: "correct-horse"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[authRes](t, rec)
	require.NotEmpty(t, login.Token)

	rec = do(t, s, http.MethodGet, "/auth/me", nil, login.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "grace", decode[authUser](t, rec).Username)

	assert.Equal(t, http.StatusUnauthorized, do(t, s, http.MethodGet, "/auth/me", nil, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, s, http.MethodGet, "/auth/me", nil, "garbage").Code)
}

func TestAuth_SignupValidation(t *testing.T) {
	s := newTestServer(t)
	for _, c := range []credentials{
		{Username: "ab", Password: "long-enough"},
		{Username: "has space", Password: "long-enough"},
		{Username: "okname", Password: "short"},
	} {
		rec := do(t, s, http.MethodPost, "/auth/signup", c, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, c.Username)
	}
}

func TestAuth_TokenReplacesPlayerName(t *testing.T) {
	s := newTestServer(t)
	res := signup(t, s, "linus", "penguins-rule")

	rec := do(t, s, http.MethodPost, "/leaderboard", leaderboard.Submission{
		PlayerName: "Impostor", Score: 42, Level: 2,
	}, res.Token)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "linus", decode[leaderboard.Entry](t, rec).PlayerName)

	// A bad token is ignored, not rejected.
	rec = do(t, s, http.MethodPost, "/leaderboard", leaderboard.Submission{
		PlayerName: "Guest", Score: 1, Level: 1,
	}, "not-a-token")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Guest", decode[leaderboard.Entry](t, rec).PlayerName)
}

// ----------------------------------- live -----------------------------------

func TestLive_PushesOnConnectAndSubmit(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/leaderboard/live", nil)
	require.NoError(t, err)
	defer ws.Close()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))

	var first []leaderboard.Entry
	require.NoError(t, ws.ReadJSON(&first))
	assert.Len(t, first, 5)
	assert.Equal(t, 1, s.Hub().Subscribers())

	resp, err := http.Post(ts.URL+"/leaderboard", "application/json",
		strings.NewReader(`{"playerName":"Live","score":99999,"level":50,"timeCompleted":1}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var next []leaderboard.Entry
	require.NoError(t, ws.ReadJSON(&next))
	require.Len(t, next, 6)
	assert.Equal(t, "Live", next[0].PlayerName)
}
