package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csvapi/internal/query"
	"csvapi/internal/store"
)

const peopleCSV = `name,age,joined
Ann,34,2021-03-01
Bob,28,2019-11-20
Dana,51,2022-01-05
`

func newTestServer(t *testing.T) (*Server, *store.Manager) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "people.csv")
	require.NoError(t, os.WriteFile(path, []byte(peopleCSV), 0o644))

	mgr, err := store.Open(context.Background(), path, "")
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })

	srv, err := New(mgr, nil)
	require.NoError(t, err)
	return srv, mgr
}

func get(t *testing.T, srv *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeRows(t *testing.T, rec *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	return rows
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandleQuery_FilteredRows(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := get(t, srv, "/people?name_contains=an&age_greaterThan=30")
	require.Equal(t, http.StatusOK, rec.Code)

	rows := decodeRows(t, rec)
	require.Len(t, rows, 1)
	assert.Equal(t, "Dana", rows[0]["name"])
	// JSON numbers decode as float64.
	assert.Equal(t, float64(51), rows[0]["age"])
}

func TestHandleQuery_DistinctSelection(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := get(t, srv, "/people?use_distinct=true&name_selected=true")
	require.Equal(t, http.StatusOK, rec.Code)

	rows := decodeRows(t, rec)
	require.Len(t, rows, 3)
	for _, row := range rows {
		assert.Len(t, row, 1, "only the selected column is projected")
	}
}

func TestHandleQuery_UnknownParameter(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := get(t, srv, "/people?unknown_col=x")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeError(t, rec)
	assert.Equal(t, "error", body.Status)
	assert.Equal(t, string(query.CodeUnknownParameter), body.Error.Code)
	assert.Equal(t, "unknown_col", body.Error.Param)
}

func TestHandleQuery_TypeMismatch(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := get(t, srv, "/people?age_greaterThan=abc")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(query.CodeTypeMismatch), decodeError(t, rec).Error.Code)
}

func TestHandleQuery_InvalidRegexDoesNotCrash(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := get(t, srv, "/people?name_regex="+"%5Binvalid%28")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(query.CodeInvalidPattern), decodeError(t, rec).Error.Code)
}

func TestHandleQuery_ClosedStore(t *testing.T) {
	srv, mgr := newTestServer(t)
	require.NoError(t, mgr.Close())

	rec := get(t, srv, "/people")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, string(query.CodeStoreUnavailable), decodeError(t, rec).Error.Code)
}

func TestHandleSchema(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := get(t, srv, "/people/schema")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Table      string `json:"table"`
		Parameters []struct {
			Name     string `json:"name"`
			Optional bool   `json:"optional"`
		} `json:"parameters"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "people", body.Table)

	var names []string
	for _, p := range body.Parameters {
		names = append(names, p.Name)
		assert.True(t, p.Optional)
	}
	assert.Contains(t, names, "use_distinct")
	assert.Contains(t, names, "age_greaterThan")
	assert.Contains(t, names, "joined_isBefore")
}

func TestParseParams_PreservesOrderAndSkipsEmpty(t *testing.T) {
	params, err := ParseParams("b=2&a=1&skip=&c=3")
	require.NoError(t, err)
	require.Len(t, params, 3)
	assert.Equal(t, query.Param{Name: "b", Value: "2"}, params[0])
	assert.Equal(t, query.Param{Name: "a", Value: "1"}, params[1])
	assert.Equal(t, query.Param{Name: "c", Value: "3"}, params[2])
}

func TestParseParams_Unescapes(t *testing.T) {
	params, err := ParseParams("name_like=%25an%25")
	require.NoError(t, err)
	require.Len(t, params, 1)
	assert.Equal(t, "%an%", params[0].Value)
}
