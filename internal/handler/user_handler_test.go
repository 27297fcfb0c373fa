package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/starfav/internal/model"
)

// mockUserService はUserServiceInterfaceのモック実装。
type mockUserService struct {
	listFn   func(ctx context.Context) ([]*model.User, error)
	getFn    func(ctx context.Context, id int64) (*model.User, error)
	deleteFn func(ctx context.Context, id int64) error
}

func (m *mockUserService) List(ctx context.Context) ([]*model.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []*model.User{}, nil
}

func (m *mockUserService) Get(ctx context.Context, id int64) (*model.User, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, model.NewUserNotFoundError(id)
}

func (m *mockUserService) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func TestUserHandler_ListUsers_OmitsPassword(t *testing.T) {
	svc := &mockUserService{
		listFn: func(ctx context.Context) ([]*model.User, error) {
			return []*model.User{
				{ID: 1, Email: "luke@rebellion.example", PasswordHash: "$2a$10$secret", IsActive: true},
			}, nil
		},
	}
	h := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	w := httptest.NewRecorder()
	h.ListUsers(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := strings.TrimSpace(w.Body.String())
	want := `[{"id":1,"email":"luke@rebellion.example","is_active":true}]`
	if body != want {
		t.Errorf("body = %s, want %s", body, want)
	}
	if strings.Contains(body, "secret") || strings.Contains(body, "password") {
		t.Error("パスワードをレスポンスに含めてはならない")
	}
}

func TestUserHandler_ListUsers_Empty(t *testing.T) {
	h := NewUserHandler(&mockUserService{})

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	w := httptest.NewRecorder()
	h.ListUsers(w, req)

	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Errorf("body = %s, want []", body)
	}
}

func TestUserHandler_GetUser(t *testing.T) {
	svc := &mockUserService{
		getFn: func(ctx context.Context, id int64) (*model.User, error) {
			if id != 1 {
				return nil, model.NewUserNotFoundError(id)
			}
			return &model.User{ID: 1, Email: "leia@rebellion.example", IsActive: false}, nil
		},
	}
	h := NewUserHandler(svc)

	req := withChiURLParams(httptest.NewRequest(http.MethodGet, "/users/1", nil), "id", "1")
	w := httptest.NewRecorder()
	h.GetUser(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var got userResponse
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Email != "leia@rebellion.example" || got.IsActive {
		t.Errorf("user = %+v", got)
	}

	req = withChiURLParams(httptest.NewRequest(http.MethodGet, "/users/99", nil), "id", "99")
	w = httptest.NewRecorder()
	h.GetUser(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if body := parseAPIErrorResponse(t, w); body["code"] != model.ErrCodeUserNotFound {
		t.Errorf("code = %q, want %q", body["code"], model.ErrCodeUserNotFound)
	}
}

func TestUserHandler_DeleteUser(t *testing.T) {
	var deleted int64
	svc := &mockUserService{
		deleteFn: func(ctx context.Context, id int64) error {
			deleted = id
			return nil
		},
	}
	h := NewUserHandler(svc)

	req := withChiURLParams(httptest.NewRequest(http.MethodDelete, "/users/3", nil), "id", "3")
	w := httptest.NewRecorder()
	h.DeleteUser(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3", deleted)
	}
}

func TestUserHandler_DeleteUser_NotFound(t *testing.T) {
	svc := &mockUserService{
		deleteFn: func(ctx context.Context, id int64) error {
			return model.NewUserNotFoundError(id)
		},
	}
	h := NewUserHandler(svc)

	req := withChiURLParams(httptest.NewRequest(http.MethodDelete, "/users/3", nil), "id", "3")
	w := httptest.NewRecorder()
	h.DeleteUser(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
