package statusapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sharedcode/multipathd"
	"github.com/sharedcode/multipathd/corestate"
)

type noopKerneler struct{}

func (noopKerneler) FetchTable(context.Context, string) (corestate.TableSnapshot, error) {
	return corestate.TableSnapshot{}, nil
}
func (noopKerneler) FetchStatus(context.Context, string) (corestate.StatusSnapshot, error) {
	return corestate.StatusSnapshot{}, nil
}
func (noopKerneler) SetQueueIfNoPath(context.Context, string, bool) error { return nil }

func newTestState(t *testing.T) *corestate.State {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return corestate.New(noopKerneler{})
}

func seedMap(s *corestate.State, wwid, alias string) *multipath.Map {
	m := multipath.NewMap(wwid, alias)
	p := multipath.NewPath("8:0", "sda", wwid)
	p.State = multipath.PathUp
	g := multipath.NewPathGroup()
	g.AddPath(p)
	g.Recompute()
	groups := multipath.NewVector[*multipath.PathGroup](1)
	groups.Append(g)
	m.SetGroups(groups)

	s.Lock()
	s.Maps.Append(m)
	s.Paths.Append(p)
	s.Unlock()
	return m
}

func doRequest(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGetHealthz(t *testing.T) {
	state := newTestState(t)
	router := NewRouter(state)

	rec := doRequest(router, http.MethodGet, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestGetMapsReturnsSeededMap(t *testing.T) {
	state := newTestState(t)
	seedMap(state, "wwid-1", "mpatha")
	router := NewRouter(state)

	rec := doRequest(router, http.MethodGet, "/api/v1/maps")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "mpatha") {
		t.Fatalf("expected alias in response body, got %q", body)
	}
}

func TestGetMapByAliasNotFound(t *testing.T) {
	state := newTestState(t)
	router := NewRouter(state)

	rec := doRequest(router, http.MethodGet, "/api/v1/maps/nosuch")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGetMapByAliasFound(t *testing.T) {
	state := newTestState(t)
	seedMap(state, "wwid-1", "mpatha")
	router := NewRouter(state)

	rec := doRequest(router, http.MethodGet, "/api/v1/maps/mpatha")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestGetPathsReturnsSeededPath(t *testing.T) {
	state := newTestState(t)
	seedMap(state, "wwid-1", "mpatha")
	router := NewRouter(state)

	rec := doRequest(router, http.MethodGet, "/api/v1/paths")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "sda") {
		t.Fatalf("expected path name in response body, got %q", body)
	}
}
