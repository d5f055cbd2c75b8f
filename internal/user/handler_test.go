package user

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"qbank/internal/auth"
	"qbank/internal/event"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAdmin struct {
	listFn   func(ctx context.Context, scope event.Scope, page int) (*Page, error)
	addFn    func(ctx context.Context, scope event.Scope, in AddInput) (*Added, error)
	roleFn   func(ctx context.Context, scope event.Scope, id int64, role string) (*auth.User, error)
	exportFn func(ctx context.Context, scope event.Scope) ([]byte, error)
}

func (m *mockAdmin) ListEventMembers(ctx context.Context, scope event.Scope, page int) (*Page, error) {
	if m.listFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.listFn(ctx, scope, page)
}

func (m *mockAdmin) GetMember(ctx context.Context, scope event.Scope, id int64) (*auth.User, error) {
	return nil, errors.New("not implemented")
}

func (m *mockAdmin) AddUser(ctx context.Context, scope event.Scope, in AddInput) (*Added, error) {
	if m.addFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.addFn(ctx, scope, in)
}

func (m *mockAdmin) UpdateUser(ctx context.Context, scope event.Scope, id int64, in UpdateInput) (*auth.User, error) {
	return nil, errors.New("not implemented")
}

func (m *mockAdmin) ChangeRole(ctx context.Context, scope event.Scope, id int64, role string) (*auth.User, error) {
	if m.roleFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.roleFn(ctx, scope, id, role)
}

func (m *mockAdmin) DeleteUser(ctx context.Context, scope event.Scope, id int64) error {
	return errors.New("not implemented")
}

func (m *mockAdmin) ExportMembers(ctx context.Context, scope event.Scope) ([]byte, error) {
	if m.exportFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.exportFn(ctx, scope)
}

func withParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(req.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func withScope(req *http.Request) *http.Request {
	return req.WithContext(event.ContextWithScope(req.Context(), scopeFor(auth.RoleAdmin)))
}

func TestCreateUserHandlerReturnsTemporaryPassword(t *testing.T) {
	h := NewHandler(&mockAdmin{
		addFn: func(ctx context.Context, scope event.Scope, in AddInput) (*Added, error) {
			assert.Equal(t, "viewer", in.Role)
			return &Added{User: &auth.User{ID: 7, Name: in.Name, Email: in.Email, Roles: []auth.Role{auth.RoleViewer}}, TemporaryPassword: "s3cret!Pass"}, nil
		},
	})
	body := `{"name":"Ada","email":"ada@example.com","role":"viewer"}`
	w := httptest.NewRecorder()
	h.Create(w, withScope(httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body))))

	require.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		Data addedResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "s3cret!Pass", resp.Data.TemporaryPassword)
	assert.Equal(t, []auth.Role{auth.RoleViewer}, resp.Data.User.Roles)
}

func TestCreateUserHandlerRejectsBadEmail(t *testing.T) {
	h := NewHandler(&mockAdmin{})
	w := httptest.NewRecorder()
	h.Create(w, withScope(httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(`{"name":"Ada","email":"nope"}`))))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChangeRoleHandlerMapsErrors(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{auth.ErrUserNotFound, http.StatusNotFound},
		{ErrInvalidInput, http.StatusUnprocessableEntity},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		h := NewHandler(&mockAdmin{
			roleFn: func(ctx context.Context, scope event.Scope, id int64, role string) (*auth.User, error) {
				return nil, tc.err
			},
		})
		req := httptest.NewRequest(http.MethodPatch, "/users/7/role", strings.NewReader(`{"role":"admin"}`))
		w := httptest.NewRecorder()
		h.ChangeRole(w, withParam(withScope(req), "id", "7"))
		assert.Equal(t, tc.code, w.Code, tc.err.Error())
	}
}

func TestListUsersHandlerPaginates(t *testing.T) {
	h := NewHandler(&mockAdmin{
		listFn: func(ctx context.Context, scope event.Scope, page int) (*Page, error) {
			assert.Equal(t, 2, page)
			return &Page{Items: []auth.User{{ID: 7, Name: "Ada"}}, Page: 2, PerPage: PageSize, Total: 51}, nil
		},
	})
	w := httptest.NewRecorder()
	h.List(w, withScope(httptest.NewRequest(http.MethodGet, "/users?page=2", nil)))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"lastPage":2`)
	assert.Contains(t, w.Body.String(), `"roles":[]`)
}

func TestExportUsersHandler(t *testing.T) {
	h := NewHandler(&mockAdmin{
		exportFn: func(ctx context.Context, scope event.Scope) ([]byte, error) { return []byte("xlsx"), nil },
	})
	w := httptest.NewRecorder()
	h.Export(w, withScope(httptest.NewRequest(http.MethodGet, "/users/export", nil)))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "members-10.xlsx")
}
