package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/config"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/repository"
	"github.com/iliyamo/event-ticketing/internal/utils"
)

// fakeUserStore is an in-memory AuthUserStore.
type fakeUserStore struct {
	users  map[uint64]model.User
	nextID uint64
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[uint64]model.User{}, nextID: 1}
}

func (f *fakeUserStore) emailTaken(email string, exceptID uint64) bool {
	for _, u := range f.users {
		if u.Email == email && u.ID != exceptID {
			return true
		}
	}
	return false
}

func (f *fakeUserStore) Create(_ context.Context, nu repository.NewUser, _ int) (uint64, error) {
	if f.emailTaken(nu.Email, 0) {
		return 0, repository.ErrEmailExists
	}
	id := f.nextID
	f.nextID++
	f.users[id] = model.User{
		ID:           id,
		Name:         nu.Name,
		UserName:     nu.UserName,
		Email:        nu.Email,
		PasswordHash: nu.Password, // stored plain in the fake
		DOB:          nu.DOB,
		IsAdmin:      nu.IsAdmin,
	}
	return id, nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, sql.ErrNoRows
}

func (f *fakeUserStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (f *fakeUserStore) UpdateProfile(_ context.Context, id uint64, p repository.UserPatch, _ int) (model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	if p.Email != nil {
		if f.emailTaken(*p.Email, id) {
			return model.User{}, repository.ErrEmailExists
		}
		u.Email = *p.Email
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.UserName != nil {
		u.UserName = *p.UserName
	}
	if p.DOB != nil {
		u.DOB = p.DOB
	}
	if p.Password != nil {
		u.PasswordHash = *p.Password
	}
	f.users[id] = u
	return u, nil
}

type storedToken struct {
	userID  uint64
	exp     time.Time
	revoked bool
}

// fakeTokenStore is an in-memory TokenStore keyed by token hash.
type fakeTokenStore struct {
	tokens map[string]*storedToken
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: map[string]*storedToken{}}
}

func (f *fakeTokenStore) StoreRefresh(_ context.Context, userID uint64, tokenHash string, exp time.Time) error {
	f.tokens[tokenHash] = &storedToken{userID: userID, exp: exp}
	return nil
}

func (f *fakeTokenStore) ValidateRefresh(_ context.Context, tokenHash string) (uint64, error) {
	t, ok := f.tokens[tokenHash]
	if !ok || t.revoked || time.Now().UTC().After(t.exp) {
		return 0, sql.ErrNoRows
	}
	return t.userID, nil
}

func (f *fakeTokenStore) RevokeByHash(_ context.Context, tokenHash string) error {
	if t, ok := f.tokens[tokenHash]; ok {
		t.revoked = true
	}
	return nil
}

func (f *fakeTokenStore) RevokeAllForUser(_ context.Context, userID uint64) error {
	for _, t := range f.tokens {
		if t.userID == userID {
			t.revoked = true
		}
	}
	return nil
}

func (f *fakeTokenStore) activeFor(userID uint64) int {
	n := 0
	for _, t := range f.tokens {
		if t.userID == userID && !t.revoked {
			n++
		}
	}
	return n
}

func authTestConfig() config.Config {
	return config.Config{
		JWTSecret:      "auth-test-secret",
		AccessTTLMin:   15,
		RefreshTTLDays: 7,
		BcryptCost:     4,
	}
}

func newAuthFixture() (*AuthHandler, *fakeUserStore, *fakeTokenStore) {
	users := newFakeUserStore()
	tokens := newFakeTokenStore()
	return NewAuthHandler(authTestConfig(), users, tokens), users, tokens
}

func TestRegisterAndDuplicateEmail(t *testing.T) {
	h, users, tokens := newAuthFixture()
	body := `{"name":"Ada","user_name":"ada","email":"Ada@Example.com","password":"pw","dob":"01/02/1990"}`

	rec := doRequest(h.Register, http.MethodPost, "/v1/auth/register", body, 0, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		User struct {
			ID    uint64 `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
		Access  struct{ Token string } `json:"access"`
		Refresh struct{ Token string } `json:"refresh"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ada@example.com", resp.User.Email, "email is normalized")
	assert.NotEmpty(t, resp.Access.Token)
	assert.NotEmpty(t, resp.Refresh.Token)
	require.NotNil(t, users.users[resp.User.ID].DOB)
	assert.Equal(t, 1, tokens.activeFor(resp.User.ID))

	rec = doRequest(h.Register, http.MethodPost, "/v1/auth/register", body, 0, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Email address already in use")
}

func TestLoginInvalidCredentials(t *testing.T) {
	h, users, _ := newAuthFixture()
	users.users[1] = model.User{ID: 1, Email: "ada@example.com", PasswordHash: "not-a-bcrypt-hash"}

	rec := doRequest(h.Login, http.MethodPost, "/v1/auth/login",
		`{"email":"nobody@example.com","password":"pw"}`, 0, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid email or password")

	rec = doRequest(h.Login, http.MethodPost, "/v1/auth/login",
		`{"email":"ada@example.com","password":"wrong"}`, 0, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid email or password")
}

func TestRefreshRotatesToken(t *testing.T) {
	h, users, tokens := newAuthFixture()
	users.users[1] = model.User{ID: 1, Name: "Ada", Email: "ada@example.com"}
	raw := "some-raw-refresh-token"
	hash := utils.HashRefreshRaw(raw)
	require.NoError(t, tokens.StoreRefresh(context.Background(), 1, hash, time.Now().Add(time.Hour)))

	rec := doRequest(h.Refresh, http.MethodPost, "/v1/auth/refresh",
		`{"refresh_token":"`+raw+`"}`, 0, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The presented token is revoked and exactly one replacement is
	// active.
	assert.True(t, tokens.tokens[hash].revoked)
	assert.Equal(t, 1, tokens.activeFor(1))

	rec = doRequest(h.Refresh, http.MethodPost, "/v1/auth/refresh",
		`{"refresh_token":"`+raw+`"}`, 0, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "rotated-out token must be rejected")
}

func TestLogoutSingleSession(t *testing.T) {
	h, _, tokens := newAuthFixture()
	rawA, rawB := "token-a", "token-b"
	exp := time.Now().Add(time.Hour)
	_ = tokens.StoreRefresh(context.Background(), 1, utils.HashRefreshRaw(rawA), exp)
	_ = tokens.StoreRefresh(context.Background(), 1, utils.HashRefreshRaw(rawB), exp)

	rec := doRequest(h.Logout, http.MethodPost, "/v1/auth/logout",
		`{"refresh_token":"`+rawA+`"}`, 0, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, tokens.activeFor(1), "other sessions stay active")
}

func TestLogoutEverywhere(t *testing.T) {
	h, _, tokens := newAuthFixture()
	rawA, rawB := "token-a", "token-b"
	exp := time.Now().Add(time.Hour)
	_ = tokens.StoreRefresh(context.Background(), 1, utils.HashRefreshRaw(rawA), exp)
	_ = tokens.StoreRefresh(context.Background(), 1, utils.HashRefreshRaw(rawB), exp)
	_ = tokens.StoreRefresh(context.Background(), 2, utils.HashRefreshRaw("other-user"), exp)

	rec := doRequest(h.Logout, http.MethodPost, "/v1/auth/logout",
		`{"refresh_token":"`+rawA+`","all":true}`, 0, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, tokens.activeFor(1), "every session of the owner is revoked")
	assert.Equal(t, 1, tokens.activeFor(2), "other users are untouched")
}

func TestLogoutUnknownToken(t *testing.T) {
	h, _, _ := newAuthFixture()
	rec := doRequest(h.Logout, http.MethodPost, "/v1/auth/logout",
		`{"refresh_token":"never-issued"}`, 0, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpdateMe(t *testing.T) {
	h, users, _ := newAuthFixture()
	users.users[1] = model.User{ID: 1, Name: "Ada", UserName: "ada", Email: "ada@example.com"}

	rec := doRequest(h.UpdateMe, http.MethodPatch, "/v1/me",
		`{"name":"Ada L.","dob":"10/12/1985"}`, 1, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	u := users.users[1]
	assert.Equal(t, "Ada L.", u.Name)
	assert.Equal(t, "ada", u.UserName, "omitted field keeps stored value")
	assert.Equal(t, "ada@example.com", u.Email)
	require.NotNil(t, u.DOB)
	assert.Equal(t, 1985, u.DOB.Year())
}

func TestUpdateMeEmailConflict(t *testing.T) {
	h, users, _ := newAuthFixture()
	users.users[1] = model.User{ID: 1, Email: "ada@example.com"}
	users.users[2] = model.User{ID: 2, Email: "brian@example.com"}

	rec := doRequest(h.UpdateMe, http.MethodPut, "/v1/me",
		`{"email":"brian@example.com"}`, 1, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Email address already in use")
	assert.Equal(t, "ada@example.com", users.users[1].Email)
}

func TestUpdateMeBadDate(t *testing.T) {
	h, users, _ := newAuthFixture()
	users.users[1] = model.User{ID: 1, Email: "ada@example.com"}

	rec := doRequest(h.UpdateMe, http.MethodPut, "/v1/me",
		`{"dob":"12-10-1985"}`, 1, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Date must be written as dd/mm/yyyy")
}
