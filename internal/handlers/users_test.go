package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/clipstream/backend/internal/auth"
	"github.com/clipstream/backend/internal/models"
	"github.com/clipstream/backend/internal/repositories"
)

type inMemoryUserStore struct {
	users   map[string]models.User
	watched map[string][]string
}

func newInMemoryUserStore() *inMemoryUserStore {
	return &inMemoryUserStore{users: make(map[string]models.User), watched: make(map[string][]string)}
}

func (s *inMemoryUserStore) Create(_ context.Context, user models.User) error {
	for _, existing := range s.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return repositories.ErrConflict
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *inMemoryUserStore) FindByID(_ context.Context, id string) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func (s *inMemoryUserStore) FindByLogin(_ context.Context, login string) (models.User, error) {
	for _, user := range s.users {
		if user.Username == login || user.Email == login {
			return user, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *inMemoryUserStore) SetRefreshToken(_ context.Context, id, token string) error {
	user, ok := s.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	user.RefreshToken = token
	s.users[id] = user
	return nil
}

func (s *inMemoryUserStore) UpdatePassword(_ context.Context, id, hash string) error {
	user, ok := s.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	user.PasswordHash = hash
	s.users[id] = user
	return nil
}

func (s *inMemoryUserStore) UpdateProfile(_ context.Context, id, fullName, email string) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	user.FullName = fullName
	user.Email = email
	s.users[id] = user
	return user, nil
}

func (s *inMemoryUserStore) UpdateAvatar(_ context.Context, id, url string) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	user.AvatarURL = url
	s.users[id] = user
	return user, nil
}

func (s *inMemoryUserStore) UpdateCover(_ context.Context, id, url string) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	user.CoverURL = url
	s.users[id] = user
	return user, nil
}

func (s *inMemoryUserStore) ChannelProfile(_ context.Context, username, _ string) (models.ChannelProfile, error) {
	for _, user := range s.users {
		if user.Username == username {
			return models.ChannelProfile{OwnerProfile: models.OwnerProfile{
				ID: user.ID, Username: user.Username, FullName: user.FullName, AvatarURL: user.AvatarURL,
			}}, nil
		}
	}
	return models.ChannelProfile{}, repositories.ErrNotFound
}

func (s *inMemoryUserStore) RecordWatch(_ context.Context, userID, videoID string) error {
	s.watched[userID] = append(s.watched[userID], videoID)
	return nil
}

func (s *inMemoryUserStore) WatchHistory(_ context.Context, userID string) ([]models.WatchEntry, error) {
	return nil, nil
}

type fakeMediaStore struct {
	uploads int
	deleted []string
	failing bool
}

func (m *fakeMediaStore) Upload(_ context.Context, localPath string) (string, error) {
	if m.failing {
		return "", fmt.Errorf("upload %s: backend unavailable", localPath)
	}
	m.uploads++
	return fmt.Sprintf("https://media.test/object-%d", m.uploads), nil
}

func (m *fakeMediaStore) Delete(_ context.Context, url string) error {
	m.deleted = append(m.deleted, url)
	return nil
}

func newTestTokens(t *testing.T) *auth.TokenManager {
	t.Helper()
	tokens, err := auth.NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)
	if err != nil {
		t.Fatalf("build token manager: %v", err)
	}
	return tokens
}

func seedUser(t *testing.T, store *inMemoryUserStore, username, password string) models.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := models.User{
		ID:           "user-" + username,
		Username:     username,
		Email:        username + "@example.com",
		FullName:     "Test " + username,
		PasswordHash: string(hashed),
	}
	store.users[user.ID] = user
	return user
}

func registerBody(t *testing.T, fields map[string]string, files []string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("write field %s: %v", key, err)
		}
	}
	for _, name := range files {
		part, err := writer.CreateFormFile(name, name+".png")
		if err != nil {
			t.Fatalf("create file part %s: %v", name, err)
		}
		if _, err := io.Copy(part, strings.NewReader("fake image bytes")); err != nil {
			t.Fatalf("write file part %s: %v", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) (apiResponse, map[string]any) {
	t.Helper()
	var resp apiResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	data, _ := resp.Data.(map[string]any)
	return resp, data
}

func TestUserHandlerRegisterHashesPassword(t *testing.T) {
	store := newInMemoryUserStore()
	media := &fakeMediaStore{}
	handler := UserHandler{Users: store, Tokens: newTestTokens(t), Media: media}

	body, contentType := registerBody(t, map[string]string{
		"fullName": "Ada Lovelace",
		"email":    "ada@example.com",
		"username": "ada",
		"password": "difference-engine",
	}, []string{"avatar"})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.Register(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	if strings.Contains(rec.Body.String(), "difference-engine") {
		t.Fatal("response leaked the plaintext password")
	}
	if strings.Contains(rec.Body.String(), `"password"`) {
		t.Fatal("response carries a password field")
	}

	stored, err := store.FindByLogin(context.Background(), "ada")
	if err != nil {
		t.Fatalf("expected user to be stored: %v", err)
	}
	if stored.PasswordHash == "difference-engine" {
		t.Fatal("stored password is not hashed")
	}
	if bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("difference-engine")) != nil {
		t.Fatal("stored hash does not verify against the original password")
	}
	if stored.AvatarURL == "" {
		t.Fatal("expected avatar to be uploaded and linked")
	}
}

func TestUserHandlerRegisterDuplicateConflicts(t *testing.T) {
	store := newInMemoryUserStore()
	seedUser(t, store, "taken", "whatever")
	handler := UserHandler{Users: store, Tokens: newTestTokens(t), Media: &fakeMediaStore{}}

	body, contentType := registerBody(t, map[string]string{
		"fullName": "Impostor",
		"email":    "taken@example.com",
		"username": "taken",
		"password": "hunter2",
	}, []string{"avatar"})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.Register(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status %d got %d", http.StatusConflict, rec.Code)
	}
	resp, _ := decodeEnvelope(t, rec)
	if resp.Success {
		t.Fatal("expected success=false in conflict envelope")
	}
}

func TestUserHandlerRegisterRequiresAvatar(t *testing.T) {
	handler := UserHandler{Users: newInMemoryUserStore(), Tokens: newTestTokens(t), Media: &fakeMediaStore{}}

	body, contentType := registerBody(t, map[string]string{
		"fullName": "No Avatar",
		"email":    "noavatar@example.com",
		"username": "noavatar",
		"password": "pass",
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.Register(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestUserHandlerLoginIssuesSessionAndSetsCookies(t *testing.T) {
	store := newInMemoryUserStore()
	user := seedUser(t, store, "grace", "cobol4ever")
	handler := UserHandler{Users: store, Tokens: newTestTokens(t), Media: &fakeMediaStore{}}

	body, _ := json.Marshal(loginRequest{Username: "grace", Password: "cobol4ever"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	_, data := decodeEnvelope(t, rec)
	refresh, _ := data["refreshToken"].(string)
	access, _ := data["accessToken"].(string)
	if refresh == "" || access == "" {
		t.Fatalf("expected token pair in response, got %v", data)
	}

	stored, _ := store.FindByID(context.Background(), user.ID)
	if stored.RefreshToken != refresh {
		t.Fatal("issued refresh token was not persisted on the account")
	}

	cookieNames := map[string]bool{}
	for _, c := range rec.Result().Cookies() {
		cookieNames[c.Name] = true
		if !c.HttpOnly {
			t.Fatalf("cookie %s must be httpOnly", c.Name)
		}
	}
	if !cookieNames[accessTokenCookie] || !cookieNames[refreshTokenCookie] {
		t.Fatalf("expected both auth cookies, got %v", cookieNames)
	}
}

func TestUserHandlerLoginWrongPassword(t *testing.T) {
	store := newInMemoryUserStore()
	seedUser(t, store, "victim", "correct")
	handler := UserHandler{Users: store, Tokens: newTestTokens(t), Media: &fakeMediaStore{}}

	body, _ := json.Marshal(loginRequest{Username: "victim", Password: "incorrect"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestUserHandlerRefreshRotatesAndRejectsReplay(t *testing.T) {
	store := newInMemoryUserStore()
	user := seedUser(t, store, "rotator", "secret")
	tokens := newTestTokens(t)
	handler := UserHandler{Users: store, Tokens: tokens, Media: &fakeMediaStore{}}

	pair, err := tokens.Issue(user)
	if err != nil {
		t.Fatalf("issue initial pair: %v", err)
	}
	if err := store.SetRefreshToken(context.Background(), user.ID, pair.RefreshToken); err != nil {
		t.Fatalf("persist refresh token: %v", err)
	}

	refreshOnce := func(token string) *httptest.ResponseRecorder {
		body, _ := json.Marshal(refreshRequest{RefreshToken: token})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		handler.Refresh(rec, req)
		return rec
	}

	rec := refreshOnce(pair.RefreshToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected rotation to succeed, got %d: %s", rec.Code, rec.Body.String())
	}
	_, data := decodeEnvelope(t, rec)
	rotated, _ := data["refreshToken"].(string)
	if rotated == "" || rotated == pair.RefreshToken {
		t.Fatal("expected a new refresh token to be issued")
	}

	// The superseded token verifies cryptographically but no longer matches
	// the stored value.
	rec = refreshOnce(pair.RefreshToken)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected replayed token to be rejected, got %d", rec.Code)
	}

	rec = refreshOnce(rotated)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected current token to keep working, got %d", rec.Code)
	}
}

func TestUserHandlerLogoutInvalidatesRefresh(t *testing.T) {
	store := newInMemoryUserStore()
	user := seedUser(t, store, "leaver", "bye")
	tokens := newTestTokens(t)
	handler := UserHandler{Users: store, Tokens: tokens, Media: &fakeMediaStore{}}

	pair, err := tokens.Issue(user)
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}
	if err := store.SetRefreshToken(context.Background(), user.ID, pair.RefreshToken); err != nil {
		t.Fatalf("persist refresh token: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/logout", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: user.ID}))
	rec := httptest.NewRecorder()

	handler.Logout(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	for _, c := range rec.Result().Cookies() {
		if c.MaxAge >= 0 {
			t.Fatalf("expected cookie %s to be expired", c.Name)
		}
	}

	body, _ := json.Marshal(refreshRequest{RefreshToken: pair.RefreshToken})
	refreshReq := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", bytes.NewReader(body))
	refreshRec := httptest.NewRecorder()
	handler.Refresh(refreshRec, refreshReq)

	if refreshRec.Code != http.StatusUnauthorized {
		t.Fatalf("expected refresh after logout to fail, got %d", refreshRec.Code)
	}
}

func TestUserHandlerChangePassword(t *testing.T) {
	store := newInMemoryUserStore()
	user := seedUser(t, store, "changer", "old-pass")
	handler := UserHandler{Users: store, Tokens: newTestTokens(t), Media: &fakeMediaStore{}}

	send := func(oldPwd, newPwd string) *httptest.ResponseRecorder {
		body, _ := json.Marshal(changePasswordRequest{OldPassword: oldPwd, NewPassword: newPwd})
		req := httptest.NewRequest(http.MethodPatch, "/api/v1/users/password", bytes.NewReader(body))
		req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: user.ID}))
		rec := httptest.NewRecorder()
		handler.ChangePassword(rec, req)
		return rec
	}

	if rec := send("wrong-pass", "new-pass"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected wrong old password to fail, got %d", rec.Code)
	}

	if rec := send("old-pass", "new-pass"); rec.Code != http.StatusOK {
		t.Fatalf("expected change to succeed, got %d", rec.Code)
	}

	stored, _ := store.FindByID(context.Background(), user.ID)
	if bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("new-pass")) != nil {
		t.Fatal("new password hash does not verify")
	}
}

func TestUserHandlerRateLimitedRegister(t *testing.T) {
	handler := UserHandler{
		Users:   newInMemoryUserStore(),
		Tokens:  newTestTokens(t),
		Media:   &fakeMediaStore{},
		Limiter: denyAllLimiter{},
	}

	body, contentType := registerBody(t, map[string]string{
		"fullName": "Flooder",
		"email":    "flood@example.com",
		"username": "flood",
		"password": "pass",
	}, []string{"avatar"})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.Register(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status %d got %d", http.StatusTooManyRequests, rec.Code)
	}
}

type denyAllLimiter struct{}

func (denyAllLimiter) Allow(string) bool { return false }
