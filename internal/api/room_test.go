package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/termchat/server/internal/auth"
	"github.com/termchat/server/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-do-not-use"

// fakeRoomRepo is an in-memory RoomRepository.
type fakeRoomRepo struct {
	rooms map[uuid.UUID]*models.Room
}

func newFakeRoomRepo() *fakeRoomRepo {
	return &fakeRoomRepo{rooms: make(map[uuid.UUID]*models.Room)}
}

func (f *fakeRoomRepo) Create(_ context.Context, name, passwordHash string) (*models.Room, error) {
	room := &models.Room{
		ID:           uuid.New(),
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	f.rooms[room.ID] = room
	return room, nil
}

func (f *fakeRoomRepo) GetByID(_ context.Context, roomID uuid.UUID) (*models.Room, error) {
	return f.rooms[roomID], nil
}

func (f *fakeRoomRepo) GetByName(_ context.Context, name string) (*models.Room, error) {
	for _, room := range f.rooms {
		if strings.EqualFold(room.Name, name) {
			return room, nil
		}
	}
	return nil, nil
}

func (f *fakeRoomRepo) NameTaken(ctx context.Context, name string) (bool, error) {
	room, err := f.GetByName(ctx, name)
	return room != nil, err
}

func (f *fakeRoomRepo) add(t *testing.T, name, password string) *models.Room {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	room, err := f.Create(context.Background(), name, string(hash))
	if err != nil {
		t.Fatalf("seed room: %v", err)
	}
	return room
}

func newRoomRouter(repo *fakeRoomRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewRoomHandler(repo, testSecret, false, zap.NewNop())
	r := gin.New()
	r.POST("/v1/rooms", h.Create)
	r.GET("/v1/rooms/check-name", h.CheckName)
	r.POST("/v1/rooms/join", h.Join)
	r.POST("/v1/rooms/:id/verify", h.Verify)
	return r
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateRoomMintsScopedToken(t *testing.T) {
	repo := newFakeRoomRepo()
	router := newRoomRouter(repo)

	w := postJSON(t, router, "/v1/rooms", gin.H{"name": "ops-war-room", "password": "hunter2"})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body: %s", w.Code, w.Body.String())
	}

	var resp struct {
		ID    uuid.UUID `json:"id"`
		Name  string    `json:"name"`
		Token string    `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Name != "ops-war-room" {
		t.Errorf("name = %q, want ops-war-room", resp.Name)
	}
	if !auth.VerifyRoomToken(resp.Token, resp.ID, testSecret) {
		t.Error("returned token does not verify for the new room")
	}

	// The password never comes back and is stored hashed.
	if strings.Contains(w.Body.String(), "hunter2") {
		t.Error("response leaks the plaintext password")
	}
	stored := repo.rooms[resp.ID]
	if stored.PasswordHash == "hunter2" {
		t.Error("password stored in plaintext")
	}

	// The cookie flow: the browser re-enters without re-typing the
	// password.
	var found bool
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == "room-auth-"+resp.ID.String() {
			found = true
		}
	}
	if !found {
		t.Error("room-auth cookie not set")
	}
}

func TestCreateRoomRejectsTakenNameCaseInsensitively(t *testing.T) {
	repo := newFakeRoomRepo()
	repo.add(t, "General", "pw")
	router := newRoomRouter(repo)

	w := postJSON(t, router, "/v1/rooms", gin.H{"name": "general", "password": "pw2"})
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestCreateRoomRequiresNameAndPassword(t *testing.T) {
	router := newRoomRouter(newFakeRoomRepo())

	for _, body := range []gin.H{
		{"name": "no-password"},
		{"password": "no-name"},
		{"name": "   ", "password": "pw"},
	} {
		if w := postJSON(t, router, "/v1/rooms", body); w.Code != http.StatusBadRequest {
			t.Errorf("body %v: status = %d, want 400", body, w.Code)
		}
	}
}

func TestCheckName(t *testing.T) {
	repo := newFakeRoomRepo()
	repo.add(t, "demo", "pw")
	router := newRoomRouter(repo)

	tests := []struct {
		query string
		taken bool
	}{
		{"demo", true},
		{"DEMO", true},
		{"fresh", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/v1/rooms/check-name?name="+tt.query, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("%s: status = %d, want 200", tt.query, w.Code)
		}
		var resp struct {
			Taken bool `json:"taken"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Taken != tt.taken {
			t.Errorf("%s: taken = %v, want %v", tt.query, resp.Taken, tt.taken)
		}
	}
}

func TestJoinRoomByName(t *testing.T) {
	repo := newFakeRoomRepo()
	room := repo.add(t, "demo", "open-sesame")
	router := newRoomRouter(repo)

	w := postJSON(t, router, "/v1/rooms/join", gin.H{"name": "Demo", "password": "open-sesame"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}
	var resp struct {
		ID    uuid.UUID `json:"id"`
		Token string    `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != room.ID {
		t.Errorf("joined room %s, want %s", resp.ID, room.ID)
	}
	if !auth.VerifyRoomToken(resp.Token, room.ID, testSecret) {
		t.Error("returned token does not verify for the room")
	}
}

func TestJoinRoomWrongPassword(t *testing.T) {
	repo := newFakeRoomRepo()
	repo.add(t, "demo", "open-sesame")
	router := newRoomRouter(repo)

	w := postJSON(t, router, "/v1/rooms/join", gin.H{"name": "demo", "password": "guess"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestJoinRoomUnknownName(t *testing.T) {
	router := newRoomRouter(newFakeRoomRepo())

	w := postJSON(t, router, "/v1/rooms/join", gin.H{"name": "ghost", "password": "pw"})
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestVerifyPassword(t *testing.T) {
	repo := newFakeRoomRepo()
	room := repo.add(t, "demo", "open-sesame")
	router := newRoomRouter(repo)

	w := postJSON(t, router, "/v1/rooms/"+room.ID.String()+"/verify", gin.H{"password": "open-sesame"})
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}

	w = postJSON(t, router, "/v1/rooms/"+room.ID.String()+"/verify", gin.H{"password": "nope"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: status = %d, want 401", w.Code)
	}

	w = postJSON(t, router, "/v1/rooms/"+uuid.NewString()+"/verify", gin.H{"password": "pw"})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown room: status = %d, want 404", w.Code)
	}
}
