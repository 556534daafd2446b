package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpHandler "bank-cards/internal/adapter/http/handler"
	redisStorage "bank-cards/internal/adapter/storage/redis"
	"bank-cards/internal/core/domain"
	"bank-cards/internal/core/ports"
	"bank-cards/internal/service"
	"bank-cards/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCardKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

// testApp runs the real HTTP layer, middleware, services and Redis stores on
// top of in-memory repositories and miniredis.
type testApp struct {
	server  *httptest.Server
	redis   *miniredis.Miniredis
	users   *inMemoryUserRepo
	cards   *inMemoryCardRepo
	userSvc ports.UserService
	cardSvc *service.CardServiceImpl
	sweeper *service.ExpirySweeperImpl
}

func newTestApp(t *testing.T, withRateLimit bool) *testApp {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	log := logger.New("error", false)

	numSvc, err := service.NewAESCardNumberService(testCardKey)
	require.NoError(t, err)
	hashSvc := service.NewArgon2HashServiceWithParams(service.Argon2Params{
		Time: 1, MemoryKiB: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16,
	})
	tokenSvc := service.NewJWTTokenService("test-jwt-secret-key-32bytes!!", 15*time.Minute, time.Hour, "test-issuer")

	users := newInMemoryUserRepo()
	cards := newInMemoryCardRepo(users)
	transactor := newInMemoryTransactor()

	app := &testApp{
		redis:   mr,
		users:   users,
		cards:   cards,
		userSvc: service.NewUserService(users, hashSvc, log),
		cardSvc: service.NewCardService(cards, numSvc, transactor, log),
		sweeper: service.NewExpirySweeper(cards, log),
	}

	var rateLimitStore *redisStorage.RateLimitStore
	if withRateLimit {
		rateLimitStore = redisStorage.NewRateLimitStore(rdb)
	}

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		Mode:           gin.TestMode,
		Authenticator:  service.NewAuthenticator(tokenSvc, users, log),
		AuthSvc:        service.NewAuthService(users, hashSvc, tokenSvc, log),
		CardSvc:        app.cardSvc,
		CardAdminSvc:   service.NewCardAdminService(cards, users, numSvc, log),
		UserSvc:        app.userSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{redisStorage.NewHealthCheck(rdb)},
		Logger:         log,
	})
	app.server = httptest.NewServer(router)

	t.Cleanup(func() {
		app.server.Close()
		_ = rdb.Close()
		mr.Close()
	})
	return app
}

type apiResponse struct {
	Status    int
	Data      json.RawMessage `json:"data"`
	ErrorCode string          `json:"error_code"`
}

func (a *testApp) call(t *testing.T, method, path, token string, body interface{}, headers ...string) apiResponse {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := apiResponse{Status: resp.StatusCode}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return out
}

func decode[T any](t *testing.T, r apiResponse) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(r.Data, &v), string(r.Data))
	return v
}

type tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type card struct {
	ID             string `json:"id"`
	MaskedNumber   string `json:"masked_number"`
	Status         string `json:"status"`
	BlockRequested bool   `json:"block_requested"`
}

type listOf[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
}

func (a *testApp) bootstrapAdmin(t *testing.T) string {
	t.Helper()
	_, err := a.userSvc.Create(context.Background(), ports.RegisterRequest{
		Username: "root", Password: "admin-password", RepeatPassword: "admin-password",
	}, domain.RoleAdmin)
	require.NoError(t, err)

	r := a.call(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "root", "password": "admin-password",
	})
	require.Equal(t, http.StatusOK, r.Status)
	return decode[tokens](t, r).AccessToken
}

func (a *testApp) register(t *testing.T, username string) (tokens, uuid.UUID) {
	t.Helper()
	r := a.call(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": username, "password": "password123", "repeat_password": "password123",
	})
	require.Equal(t, http.StatusOK, r.Status, r.ErrorCode)

	u, err := a.users.GetByUsername(context.Background(), username)
	require.NoError(t, err)
	require.NotNil(t, u)
	return decode[tokens](t, r), u.ID
}

func (a *testApp) issueCard(t *testing.T, adminToken string, owner uuid.UUID) card {
	t.Helper()
	r := a.call(t, http.MethodPost, "/api/v1/admin/cards", adminToken, map[string]string{"owner": owner.String()})
	require.Equal(t, http.StatusCreated, r.Status, r.ErrorCode)
	return decode[card](t, r)
}

func (a *testApp) balance(t *testing.T, token, cardID string) string {
	t.Helper()
	r := a.call(t, http.MethodGet, "/api/v1/cards/"+cardID+"/balance", token, nil)
	require.Equal(t, http.StatusOK, r.Status, r.ErrorCode)
	return decode[map[string]string](t, r)["balance"]
}

// --- Integration Tests ---

func TestIntegration_HealthCheck(t *testing.T) {
	app := newTestApp(t, false)

	resp, err := http.Get(app.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

func TestIntegration_CardLifecycle(t *testing.T) {
	app := newTestApp(t, true)
	adminToken := app.bootstrapAdmin(t)

	_, aliceID := app.register(t, "alice")
	r := app.call(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "alice", "password": "password123",
	})
	require.Equal(t, http.StatusOK, r.Status)
	alice := decode[tokens](t, r)

	first := app.issueCard(t, adminToken, aliceID)
	second := app.issueCard(t, adminToken, aliceID)
	assert.Equal(t, "ACTIVE", first.Status)
	assert.Regexp(t, `^\*\*\*\* \*\*\*\* \*\*\*\* \d{4}$`, first.MaskedNumber)

	// Deposit and transfer.
	r = app.call(t, http.MethodPatch, "/api/v1/cards/"+first.ID+"/deposit", alice.AccessToken, map[string]string{"amount": "100.00"})
	require.Equal(t, http.StatusOK, r.Status, r.ErrorCode)
	assert.Equal(t, "100.00", decode[map[string]string](t, r)["balance"])

	r = app.call(t, http.MethodPost, "/api/v1/cards/transfer", alice.AccessToken, map[string]string{
		"debit_card_id": first.ID, "credit_card_id": second.ID, "amount": "40.00",
	})
	require.Equal(t, http.StatusNoContent, r.Status, r.ErrorCode)

	assert.Equal(t, "60.00", app.balance(t, alice.AccessToken, first.ID))
	assert.Equal(t, "40.00", app.balance(t, alice.AccessToken, second.ID))

	r = app.call(t, http.MethodPost, "/api/v1/cards/transfer", alice.AccessToken, map[string]string{
		"debit_card_id": first.ID, "credit_card_id": second.ID, "amount": "60.01",
	})
	assert.Equal(t, http.StatusConflict, r.Status)
	assert.Equal(t, "CARD_004", r.ErrorCode)

	// Full number is visible only to the owner.
	r = app.call(t, http.MethodGet, "/api/v1/cards/"+first.ID+"/number", alice.AccessToken, nil)
	require.Equal(t, http.StatusOK, r.Status)
	number := decode[map[string]string](t, r)["card_number"]
	assert.Regexp(t, `^\d{4} \d{4} \d{4} \d{4}$`, number)
	assert.Equal(t, first.MaskedNumber[15:], number[15:])

	bob, _ := app.register(t, "bob")
	r = app.call(t, http.MethodGet, "/api/v1/cards/"+first.ID+"/number", bob.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, r.Status)

	// Block request, admin review, admin block.
	r = app.call(t, http.MethodPatch, "/api/v1/cards/"+first.ID+"/block", alice.AccessToken, nil)
	require.Equal(t, http.StatusOK, r.Status)
	assert.True(t, decode[card](t, r).BlockRequested)

	r = app.call(t, http.MethodGet, "/api/v1/admin/cards?have_block_request=true", adminToken, nil)
	require.Equal(t, http.StatusOK, r.Status)
	pending := decode[listOf[card]](t, r)
	require.Len(t, pending.Items, 1)
	assert.Equal(t, first.ID, pending.Items[0].ID)

	r = app.call(t, http.MethodPatch, "/api/v1/admin/cards/"+first.ID+"/block", adminToken, nil)
	require.Equal(t, http.StatusOK, r.Status)
	blocked := decode[card](t, r)
	assert.Equal(t, "BLOCKED", blocked.Status)
	assert.True(t, blocked.BlockRequested)

	r = app.call(t, http.MethodPatch, "/api/v1/cards/"+first.ID+"/deposit", alice.AccessToken, map[string]string{"amount": "1.00"})
	assert.Equal(t, http.StatusConflict, r.Status)
	assert.Equal(t, "CARD_002", r.ErrorCode)

	// Reactivation clears the pending request.
	r = app.call(t, http.MethodPatch, "/api/v1/admin/cards/"+first.ID+"/activate", adminToken, nil)
	require.Equal(t, http.StatusOK, r.Status)
	reactivated := decode[card](t, r)
	assert.Equal(t, "ACTIVE", reactivated.Status)
	assert.False(t, reactivated.BlockRequested)

	// Listing shows both cards in issue order.
	r = app.call(t, http.MethodGet, "/api/v1/cards", alice.AccessToken, nil)
	require.Equal(t, http.StatusOK, r.Status)
	owned := decode[listOf[card]](t, r)
	require.Len(t, owned.Items, 2)
	assert.Equal(t, first.ID, owned.Items[0].ID)
	assert.Equal(t, second.ID, owned.Items[1].ID)

	// Role separation.
	r = app.call(t, http.MethodGet, "/api/v1/admin/cards", alice.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, r.Status)
	r = app.call(t, http.MethodGet, "/api/v1/cards", adminToken, nil)
	assert.Equal(t, http.StatusForbidden, r.Status)
}

func TestIntegration_RefreshAndLogout(t *testing.T) {
	app := newTestApp(t, true)
	pair, _ := app.register(t, "carol")

	r := app.call(t, http.MethodPost, "/api/v1/auth/refresh", "", nil, "X-Refresh-Token", pair.RefreshToken)
	require.Equal(t, http.StatusOK, r.Status, r.ErrorCode)
	rotated := decode[tokens](t, r)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// The old refresh token was replaced.
	r = app.call(t, http.MethodPost, "/api/v1/auth/refresh", "", nil, "X-Refresh-Token", pair.RefreshToken)
	assert.Equal(t, http.StatusUnauthorized, r.Status)

	r = app.call(t, http.MethodDelete, "/api/v1/auth/logout", "", nil, "X-Refresh-Token", rotated.RefreshToken)
	assert.Equal(t, http.StatusNoContent, r.Status)

	r = app.call(t, http.MethodPost, "/api/v1/auth/refresh", "", nil, "X-Refresh-Token", rotated.RefreshToken)
	assert.Equal(t, http.StatusUnauthorized, r.Status)
}

func TestIntegration_ExpirySweep(t *testing.T) {
	app := newTestApp(t, false)
	adminToken := app.bootstrapAdmin(t)
	dave, daveID := app.register(t, "dave")

	c := app.issueCard(t, adminToken, daveID)
	id := uuid.MustParse(c.ID)
	app.cards.setExpiration(id, time.Now().Add(-time.Hour))

	n, err := app.sweeper.Sweep(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = app.sweeper.Sweep(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)

	r := app.call(t, http.MethodPatch, "/api/v1/cards/"+c.ID+"/deposit", dave.AccessToken, map[string]string{"amount": "5.00"})
	assert.Equal(t, http.StatusConflict, r.Status)

	r = app.call(t, http.MethodPatch, "/api/v1/admin/cards/"+c.ID+"/activate", adminToken, nil)
	assert.Equal(t, http.StatusConflict, r.Status)
}

func TestIntegration_AdminUserManagement(t *testing.T) {
	app := newTestApp(t, false)
	adminToken := app.bootstrapAdmin(t)

	r := app.call(t, http.MethodPost, "/api/v1/admin/users", adminToken, map[string]string{
		"username": "erin", "password": "password123", "repeat_password": "password123",
	})
	require.Equal(t, http.StatusCreated, r.Status, r.ErrorCode)
	erinID := decode[map[string]string](t, r)["id"]

	r = app.call(t, http.MethodPost, "/api/v1/admin/users", adminToken, map[string]string{
		"username": "erin", "password": "password123", "repeat_password": "password123",
	})
	assert.Equal(t, http.StatusBadRequest, r.Status)
	assert.Equal(t, "USER_002", r.ErrorCode)

	r = app.call(t, http.MethodGet, "/api/v1/admin/users?username=ERI", adminToken, nil)
	require.Equal(t, http.StatusOK, r.Status)
	assert.Equal(t, int64(1), decode[listOf[map[string]string]](t, r).Total)

	r = app.call(t, http.MethodGet, "/api/v1/admin/users/admins", adminToken, nil)
	require.Equal(t, http.StatusOK, r.Status)
	admins := decode[listOf[map[string]string]](t, r)
	require.Len(t, admins.Items, 1)
	assert.Equal(t, "root", admins.Items[0]["username"])

	// An admin cannot own cards.
	r = app.call(t, http.MethodPost, "/api/v1/admin/cards", adminToken, map[string]string{"owner": admins.Items[0]["id"]})
	assert.Equal(t, http.StatusBadRequest, r.Status)
	assert.Equal(t, "CARD_006", r.ErrorCode)

	// An admin cannot delete themselves.
	r = app.call(t, http.MethodDelete, "/api/v1/admin/users/"+admins.Items[0]["id"], adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, r.Status)
	assert.Equal(t, "USER_004", r.ErrorCode)

	r = app.call(t, http.MethodDelete, "/api/v1/admin/users/"+erinID, adminToken, nil)
	assert.Equal(t, http.StatusNoContent, r.Status)

	r = app.call(t, http.MethodGet, "/api/v1/admin/users/"+erinID, adminToken, nil)
	assert.Equal(t, http.StatusNotFound, r.Status)
}

func TestIntegration_TransferValidation(t *testing.T) {
	app := newTestApp(t, false)
	adminToken := app.bootstrapAdmin(t)
	userTokens, userID := app.register(t, "carol")
	c1 := app.issueCard(t, adminToken, userID)
	c2 := app.issueCard(t, adminToken, userID)

	for _, amount := range []string{"0", "0.001", "10.00", "5000000.00"} {
		r := app.call(t, http.MethodPost, "/api/v1/cards/transfer", userTokens.AccessToken, map[string]string{
			"debit_card_id": c1.ID, "credit_card_id": c1.ID, "amount": amount,
		})
		assert.Equal(t, http.StatusConflict, r.Status, amount)
		assert.Equal(t, "CARD_003", r.ErrorCode, amount)
	}

	for _, amount := range []string{"0", "0.001", "5000000.00"} {
		r := app.call(t, http.MethodPost, "/api/v1/cards/transfer", userTokens.AccessToken, map[string]string{
			"debit_card_id": c1.ID, "credit_card_id": c2.ID, "amount": amount,
		})
		assert.Equal(t, http.StatusBadRequest, r.Status, amount)
		assert.Equal(t, "VAL_002", r.ErrorCode, amount)
	}
}

func TestIntegration_AdminCardActionsCarryOwner(t *testing.T) {
	app := newTestApp(t, false)
	adminToken := app.bootstrapAdmin(t)
	_, userID := app.register(t, "dave")
	c := app.issueCard(t, adminToken, userID)

	type ownedCard struct {
		card
		Owner *struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"owner"`
	}

	for _, action := range []string{"block", "activate"} {
		r := app.call(t, http.MethodPatch, "/api/v1/admin/cards/"+c.ID+"/"+action, adminToken, nil)
		require.Equal(t, http.StatusOK, r.Status, r.ErrorCode)
		got := decode[ownedCard](t, r)
		require.NotNil(t, got.Owner, action)
		assert.Equal(t, userID.String(), got.Owner.ID)
		assert.Equal(t, "dave", got.Owner.Username)
	}

	// Deleting the owner keeps the card visible to every admin path.
	r := app.call(t, http.MethodDelete, "/api/v1/admin/users/"+userID.String(), adminToken, nil)
	require.Equal(t, http.StatusNoContent, r.Status, r.ErrorCode)

	r = app.call(t, http.MethodGet, "/api/v1/admin/cards", adminToken, nil)
	require.Equal(t, http.StatusOK, r.Status)
	listed := decode[listOf[ownedCard]](t, r)
	require.Len(t, listed.Items, 1)
	assert.Equal(t, c.ID, listed.Items[0].ID)
	assert.Equal(t, "dave", listed.Items[0].Owner.Username)

	r = app.call(t, http.MethodPatch, "/api/v1/admin/cards/"+c.ID+"/block", adminToken, nil)
	require.Equal(t, http.StatusOK, r.Status, r.ErrorCode)
	assert.Equal(t, "dave", decode[ownedCard](t, r).Owner.Username)
}

func TestIntegration_AccessTokenBoundToAccount(t *testing.T) {
	app := newTestApp(t, false)
	adminToken := app.bootstrapAdmin(t)

	t.Run("username re-registered after delete", func(t *testing.T) {
		old, oldID := app.register(t, "alice")
		r := app.call(t, http.MethodDelete, "/api/v1/admin/users/"+oldID.String(), adminToken, nil)
		require.Equal(t, http.StatusNoContent, r.Status, r.ErrorCode)

		fresh, freshID := app.register(t, "alice")
		require.NotEqual(t, oldID, freshID)

		r = app.call(t, http.MethodGet, "/api/v1/cards", old.AccessToken, nil)
		assert.Equal(t, http.StatusUnauthorized, r.Status)
		assert.Equal(t, "AUTH_003", r.ErrorCode)

		r = app.call(t, http.MethodGet, "/api/v1/cards", fresh.AccessToken, nil)
		assert.Equal(t, http.StatusOK, r.Status, r.ErrorCode)
	})

	t.Run("username taken over after rename", func(t *testing.T) {
		old, oldID := app.register(t, "bob")
		r := app.call(t, http.MethodPatch, "/api/v1/admin/users/"+oldID.String(), adminToken, map[string]string{
			"username": "robert",
		})
		require.Equal(t, http.StatusOK, r.Status, r.ErrorCode)

		app.register(t, "bob")

		r = app.call(t, http.MethodGet, "/api/v1/cards", old.AccessToken, nil)
		assert.Equal(t, http.StatusUnauthorized, r.Status)
		assert.Equal(t, "AUTH_003", r.ErrorCode)
	})
}

func TestIntegration_LoginRateLimit(t *testing.T) {
	app := newTestApp(t, true)

	creds := map[string]string{"username": "nobody", "password": "password123"}
	for i := 0; i < 10; i++ {
		r := app.call(t, http.MethodPost, "/api/v1/auth/login", "", creds)
		require.Equal(t, http.StatusUnauthorized, r.Status)
	}

	r := app.call(t, http.MethodPost, "/api/v1/auth/login", "", creds)
	assert.Equal(t, http.StatusTooManyRequests, r.Status)
	assert.Equal(t, "RATE_001", r.ErrorCode)

	// Degraded mode: with Redis gone requests pass through again.
	app.redis.Close()
	r = app.call(t, http.MethodPost, "/api/v1/auth/login", "", creds)
	assert.Equal(t, http.StatusUnauthorized, r.Status)
}
