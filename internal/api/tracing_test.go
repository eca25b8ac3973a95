package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondErrorAddsEvent(t *testing.T) {
	rw := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rw)
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)
	tc := &Trace{ID: "t1"}
	c.Set(traceKey, tc)

	respondError(c, http.StatusTeapot, "Teapot", "teapot")

	assert.Equal(t, http.StatusTeapot, rw.Code)
	assert.True(t, c.IsAborted())
	require.NotEmpty(t, tc.Events)
	assert.Equal(t, "error", tc.Events[len(tc.Events)-1].Name)
	assert.JSONEq(t, `{"error":"teapot","code":"Teapot"}`, rw.Body.String())
}

func TestTraceRingNewestFirstAndWraps(t *testing.T) {
	ring := newTraceRing(3)
	for _, id := range []string{"a", "b", "c", "d"} {
		ring.add(&Trace{ID: id})
	}
	got := ring.all(0)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"d", "c", "b"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.Nil(t, ring.get("a"))
	assert.NotNil(t, ring.get("c"))
	assert.Len(t, ring.all(2), 2)
}

func TestTraceByIDIncludesHandlerEvents(t *testing.T) {
	r := newTestRouter(t, &fakeLister{}, nil)
	id := do(r, http.MethodGet, "/api/v1/buckets").Header().Get(traceHeader)

	rw := do(r, http.MethodGet, "/api/v1/traces/"+id)
	require.Equal(t, http.StatusOK, rw.Code)
	var tr Trace
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &tr))
	names := map[string]bool{}
	for _, e := range tr.Events {
		names[e.Name] = true
	}
	assert.True(t, names["buckets.list"])
	assert.True(t, names["buckets.listed"])
	assert.Equal(t, http.StatusOK, tr.Status)
}

func TestTracesRejectsBadLimit(t *testing.T) {
	rw := do(newTestRouter(t, &fakeLister{}, nil), http.MethodGet, "/api/v1/traces?limit=abc")
	assert.Equal(t, http.StatusBadRequest, rw.Code)
}

func TestTraceIDIgnoresClientRequestID(t *testing.T) {
	store := &memStore{}
	r := newTestRouter(t, &fakeLister{}, store)
	send := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("X-Request-ID", "dup")
		rw := httptest.NewRecorder()
		r.ServeHTTP(rw, req)
		return rw
	}
	first := send("/health")
	second := send("/api/v1/buckets")

	assert.Equal(t, "dup", second.Header().Get("X-Request-ID"))
	id1, id2 := first.Header().Get(traceHeader), second.Header().Get(traceHeader)
	require.NotEmpty(t, id1)
	require.NotEmpty(t, id2)
	assert.NotEqual(t, id1, id2)
	assert.NotEqual(t, "dup", id2)
	require.Len(t, store.saved, 2)
	assert.NotEqual(t, store.saved[0].ID, store.saved[1].ID)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/v1/traces/dup").Code)
	rw := do(r, http.MethodGet, "/api/v1/traces/"+id2)
	require.Equal(t, http.StatusOK, rw.Code)
	var tr Trace
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &tr))
	assert.Equal(t, "/api/v1/buckets", tr.Path)
}

func TestTraceRingGetReturnsNewest(t *testing.T) {
	ring := newTraceRing(4)
	ring.add(&Trace{ID: "x", Path: "/old"})
	ring.add(&Trace{ID: "x", Path: "/new"})
	assert.Equal(t, "/new", ring.get("x").Path)
}
