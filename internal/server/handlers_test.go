package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"recipebox/internal/config"
	"recipebox/internal/database"
	"recipebox/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "server-test-secret-at-least-32-characters"

type testServer struct {
	srv *Server
	app *fiber.App
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	cfg := &config.Config{
		Env:        "test",
		Port:       "0",
		JWTSecret:  testSecret,
		JWTIssuer:  "recipebox-test",
		BcryptCost: 4,
	}
	srv, err := NewServerWithDeps(cfg, db, nil)
	require.NoError(t, err)

	return &testServer{srv: srv, app: srv.NewApp()}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

// signup registers username and returns a bearer token and the user's id.
func (ts *testServer) signup(t *testing.T, username string) (string, uint) {
	t.Helper()
	creds := map[string]string{"username": username, "password": "password123"}

	resp := ts.do(t, http.MethodPost, "/api/v1/user/signup", "", creds)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/api/v1/user/login", "", creds)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var out struct {
		Token string `json:"token"`
	}
	decode(t, resp, &out)

	userID, err := ts.srv.tokens.Verify(out.Token)
	require.NoError(t, err)
	return out.Token, userID
}

func (ts *testServer) createRecipe(t *testing.T, token string, body map[string]any) recipeResponse {
	t.Helper()
	resp := ts.do(t, http.MethodPost, "/api/v1/recipes", token, body)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var out recipeResponse
	decode(t, resp, &out)
	return out
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestSignup(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name           string
		body           any
		expectedStatus int
		expectedCode   string
	}{
		{"Success", map[string]string{"username": "alice", "password": "password123"}, fiber.StatusCreated, ""},
		{"Duplicate username", map[string]string{"username": "alice", "password": "password456"}, fiber.StatusConflict, models.CodeDuplicateUsername},
		{"Weak password", map[string]string{"username": "bob", "password": "short"}, fiber.StatusBadRequest, models.CodeValidation},
		{"Bad username", map[string]string{"username": "b!", "password": "password123"}, fiber.StatusBadRequest, models.CodeValidation},
		{"Empty body", nil, fiber.StatusBadRequest, models.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.do(t, http.MethodPost, "/api/v1/user/signup", "", tt.body)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedCode == "" {
				var out map[string]any
				decode(t, resp, &out)
				assert.Equal(t, map[string]any{"username": "alice"}, out)
				return
			}
			var out models.ErrorResponse
			decode(t, resp, &out)
			assert.Equal(t, tt.expectedCode, out.Code)
		})
	}
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)
	ts.signup(t, "alice")

	resp := ts.do(t, http.MethodPost, "/api/v1/user/login", "",
		map[string]string{"username": "alice", "password": "wrongpass1"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	var wrongPassword models.ErrorResponse
	decode(t, resp, &wrongPassword)

	resp = ts.do(t, http.MethodPost, "/api/v1/user/login", "",
		map[string]string{"username": "nobody", "password": "password123"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	var unknownUser models.ErrorResponse
	decode(t, resp, &unknownUser)

	assert.Equal(t, models.CodeInvalidCredentials, wrongPassword.Code)
	assert.Equal(t, wrongPassword, unknownUser)
}

func TestGetUserInfo(t *testing.T) {
	ts := newTestServer(t)
	_, aliceID := ts.signup(t, "alice")

	resp := ts.do(t, http.MethodGet, fmt.Sprintf("/api/v1/users/%d", aliceID), "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var out map[string]any
	decode(t, resp, &out)
	assert.Equal(t, "alice", out["username"])
	assert.NotContains(t, out, "password")

	resp = ts.do(t, http.MethodGet, "/api/v1/users/999", "", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/v1/users/abc", "", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCreateRecipe(t *testing.T) {
	ts := newTestServer(t)
	token, userID := ts.signup(t, "alice")

	t.Run("Requires token", func(t *testing.T) {
		resp := ts.do(t, http.MethodPost, "/api/v1/recipes", "", map[string]any{"title": "Soup"})
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Rejects invalid token", func(t *testing.T) {
		resp := ts.do(t, http.MethodPost, "/api/v1/recipes", "not-a-token", map[string]any{"title": "Soup"})
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		var out models.ErrorResponse
		decode(t, resp, &out)
		assert.Equal(t, models.CodeInvalidToken, out.Code)
	})

	t.Run("Empty title", func(t *testing.T) {
		resp := ts.do(t, http.MethodPost, "/api/v1/recipes", token, map[string]any{"title": "   "})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("Author comes from token", func(t *testing.T) {
		out := ts.createRecipe(t, token, map[string]any{
			"title":       "Soup",
			"contents":    "Boil water.",
			"ingredients": []string{"water", "salt"},
			"tags":        []string{"easy"},
			"author":      999,
		})
		assert.NotZero(t, out.ID)
		assert.Equal(t, userID, out.Author)
		assert.Equal(t, []string{"water", "salt"}, out.Ingredients)
		assert.Equal(t, []string{"easy"}, out.Tags)
		assert.Empty(t, out.Likes)
		assert.Equal(t, 0, out.LikesCount)
		require.NotNil(t, out.Liked)
		assert.False(t, *out.Liked)
		assert.Equal(t, out.CreatedAt, out.UpdatedAt)
	})
}

func TestListRecipes(t *testing.T) {
	ts := newTestServer(t)
	alice, _ := ts.signup(t, "alice")
	bob, _ := ts.signup(t, "bob")

	ts.createRecipe(t, alice, map[string]any{"title": "B", "tags": []string{"react"}})
	ts.createRecipe(t, alice, map[string]any{"title": "A"})
	ts.createRecipe(t, bob, map[string]any{"title": "C", "tags": []string{"react", "nodejs"}})

	titles := func(t *testing.T, resp *http.Response) []string {
		t.Helper()
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		var out []recipeResponse
		decode(t, resp, &out)
		res := make([]string, 0, len(out))
		for _, r := range out {
			res = append(res, r.Title)
		}
		return res
	}

	tests := []struct {
		name     string
		query    string
		expected []string
	}{
		{"By title ascending", "?sortBy=title&sortOrder=ascending", []string{"A", "B", "C"}},
		{"By title descending", "?sortBy=title&sortOrder=descending", []string{"C", "B", "A"}},
		{"Tag filter", "?tag=react&sortBy=title&sortOrder=ascending", []string{"B", "C"}},
		{"Author filter", "?author=bob", []string{"C"}},
		{"Unknown author", "?author=ghost", []string{}},
		{"Unknown tag", "?tag=go", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.do(t, http.MethodGet, "/api/v1/recipes"+tt.query, "", nil)
			assert.Equal(t, tt.expected, titles(t, resp))
		})
	}

	t.Run("Invalid sort field", func(t *testing.T) {
		resp := ts.do(t, http.MethodGet, "/api/v1/recipes?sortBy=author", "", nil)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		var out models.ErrorResponse
		decode(t, resp, &out)
		assert.Equal(t, models.CodeInvalidSortField, out.Code)
	})

	t.Run("Anonymous listing omits liked", func(t *testing.T) {
		resp := ts.do(t, http.MethodGet, "/api/v1/recipes", "", nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		var out []map[string]any
		decode(t, resp, &out)
		require.Len(t, out, 3)
		assert.NotContains(t, out[0], "liked")
		assert.Contains(t, out[0], "likes_count")
	})
}

func TestUpdateRecipe(t *testing.T) {
	ts := newTestServer(t)
	alice, aliceID := ts.signup(t, "alice")
	bob, _ := ts.signup(t, "bob")
	created := ts.createRecipe(t, alice, map[string]any{"title": "Soup", "contents": "Boil water."})
	path := fmt.Sprintf("/api/v1/recipes/%d", created.ID)

	t.Run("Not owner", func(t *testing.T) {
		resp := ts.do(t, http.MethodPatch, path, bob, map[string]any{"title": "Stolen"})
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	})

	t.Run("Missing recipe", func(t *testing.T) {
		resp := ts.do(t, http.MethodPatch, "/api/v1/recipes/999", alice, map[string]any{"title": "X"})
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})

	t.Run("Owner edits selected fields", func(t *testing.T) {
		resp := ts.do(t, http.MethodPatch, path, alice, map[string]any{
			"title":  "Better Soup",
			"tags":   []string{"dinner"},
			"author": 12345,
		})
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		var out recipeResponse
		decode(t, resp, &out)
		assert.Equal(t, "Better Soup", out.Title)
		assert.Equal(t, "Boil water.", out.Contents)
		assert.Equal(t, []string{"dinner"}, out.Tags)
		assert.Equal(t, aliceID, out.Author)
		assert.Equal(t, created.CreatedAt, out.CreatedAt)
		assert.True(t, out.UpdatedAt.After(created.UpdatedAt))
	})

	t.Run("Blank title rejected", func(t *testing.T) {
		resp := ts.do(t, http.MethodPatch, path, alice, map[string]any{"title": ""})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestDeleteRecipe(t *testing.T) {
	ts := newTestServer(t)
	alice, _ := ts.signup(t, "alice")
	bob, _ := ts.signup(t, "bob")
	created := ts.createRecipe(t, alice, map[string]any{"title": "Soup"})
	path := fmt.Sprintf("/api/v1/recipes/%d", created.ID)

	deletedCount := func(t *testing.T, token string) int64 {
		t.Helper()
		resp := ts.do(t, http.MethodDelete, path, token, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		var out struct {
			DeletedCount int64 `json:"deletedCount"`
		}
		decode(t, resp, &out)
		return out.DeletedCount
	}

	assert.Equal(t, int64(0), deletedCount(t, bob))
	assert.Equal(t, int64(1), deletedCount(t, alice))
	assert.Equal(t, int64(0), deletedCount(t, alice))

	resp := ts.do(t, http.MethodGet, path, "", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestLikeRecipe(t *testing.T) {
	ts := newTestServer(t)
	alice, _ := ts.signup(t, "alice")
	bob, bobID := ts.signup(t, "bob")
	created := ts.createRecipe(t, alice, map[string]any{"title": "Soup"})
	likePath := fmt.Sprintf("/api/v1/recipes/%d/like", created.ID)

	toggle := func(t *testing.T, method, token string) recipeResponse {
		t.Helper()
		resp := ts.do(t, method, likePath, token, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		var out recipeResponse
		decode(t, resp, &out)
		return out
	}

	first := toggle(t, http.MethodPost, bob)
	second := toggle(t, http.MethodPost, bob)
	assert.Equal(t, []uint{bobID}, second.Likes)
	assert.Equal(t, 1, second.LikesCount)
	require.NotNil(t, second.Liked)
	assert.True(t, *second.Liked)
	assert.True(t, first.UpdatedAt.After(created.UpdatedAt), "like did not refresh updatedAt")
	assert.True(t, second.UpdatedAt.Equal(first.UpdatedAt), "repeat like changed updatedAt")

	resp := ts.do(t, http.MethodGet, fmt.Sprintf("/api/v1/recipes/%d", created.ID), alice, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var asAlice recipeResponse
	decode(t, resp, &asAlice)
	require.NotNil(t, asAlice.Liked)
	assert.False(t, *asAlice.Liked)

	unliked := toggle(t, http.MethodDelete, bob)
	assert.Empty(t, unliked.Likes)
	assert.Equal(t, 0, unliked.LikesCount)
	assert.True(t, unliked.UpdatedAt.After(second.UpdatedAt))

	again := toggle(t, http.MethodDelete, bob)
	assert.Equal(t, 0, again.LikesCount)
	assert.True(t, again.UpdatedAt.Equal(unliked.UpdatedAt))

	t.Run("Requires token", func(t *testing.T) {
		resp := ts.do(t, http.MethodPost, likePath, "", nil)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Missing recipe", func(t *testing.T) {
		resp := ts.do(t, http.MethodPost, "/api/v1/recipes/999/like", bob, nil)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})
}

func TestHealthChecks(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var out struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	decode(t, resp, &out)
	assert.Equal(t, "healthy", out.Status)
	assert.Equal(t, "healthy", out.Checks["database"])
	assert.Equal(t, "disabled", out.Checks["redis"])

	resp = ts.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
