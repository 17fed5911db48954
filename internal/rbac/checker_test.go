package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPolicy(t *testing.T) {
	assert.True(t, Can(RoleStudent, "quiz:take"))
	assert.False(t, Can(RoleStudent, "quiz:create"))
	assert.False(t, Can(RoleStudent, "question:view_key"))

	assert.True(t, Can(RoleTeacher, "question:upload"))
	assert.True(t, Can(RoleTeacher, "question:view_key"))
	assert.False(t, Can(RoleTeacher, "quiz:take"))
	assert.False(t, Can(RoleTeacher, "quiz:manage_any"))

	assert.True(t, Can(RoleAdmin, "quiz:manage_any"))
	assert.False(t, Can("guest", "course:view"))
	assert.False(t, Can("", "course:view"))
}

func TestCheckerAnyAll(t *testing.T) {
	c := NewChecker(map[string][]string{"r": {"a:*", "b"}})
	assert.True(t, c.Any("r", "x", "a:y"))
	assert.False(t, c.Any("r", "x", "c"))
	assert.True(t, c.All("r", "a:1", "b"))
	assert.False(t, c.All("r", "a:1", "c"))
}

func TestRequire(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	cases := []struct {
		name string
		role string
		mw   func(http.Handler) http.Handler
		want int
	}{
		{"allowed", RoleTeacher, Require("quiz:create"), http.StatusNoContent},
		{"denied", RoleStudent, Require("quiz:create"), http.StatusForbidden},
		{"no role", "", Require("course:view"), http.StatusForbidden},
		{"any of", RoleStudent, RequireAny("result:view-own", "result:view-all"), http.StatusNoContent},
		{"none of", RoleTeacher, RequireAny("exam:submit", "quiz:take"), http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(WithRole(context.Background(), tc.role))
			rec := httptest.NewRecorder()
			tc.mw(ok).ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}
