package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronos/app/handler"
	"chronos/app/router"
	"chronos/internal/model"
	"chronos/internal/service"
	redisstore "chronos/pkg/store/redis"
	sheetsstore "chronos/pkg/store/sheets"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memoryStore struct {
	mu      sync.Mutex
	ds      *model.Dataset
	loadErr error
	saveErr error
}

func (m *memoryStore) Load(context.Context) (*model.Dataset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	ds := m.ds.Clone()
	ds.ResolveReferences()
	return ds, nil
}

func (m *memoryStore) Save(_ context.Context, ds *model.Dataset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.ds = ds.Clone()
	return nil
}

func seed() *model.Dataset {
	return &model.Dataset{
		Employees: []model.Employee{{ID: "e-ann", Name: "Ann"}, {ID: "e-bob", Name: "Bob"}},
		Projects:  []model.Project{{ID: "p-apollo", Name: "Apollo"}},
		Rows: []model.TaskRow{
			{ID: "r1", Employee: "Ann", MainTask: "Apollo", SubTask: "Design", StartDate: model.NewDate(2024, 1, 1), EndDate: model.NewDate(2024, 1, 10), Progress: 100},
			{ID: "r2", Employee: "Bob", MainTask: "Apollo", SubTask: "Build", StartDate: model.NewDate(2024, 1, 11), EndDate: model.NewDate(2024, 2, 10), Progress: 40, Dependency: "Design"},
		},
	}
}

func newEngine(t *testing.T, apiKey string) (*gin.Engine, *memoryStore) {
	t.Helper()
	store := &memoryStore{ds: seed()}
	tracker := service.NewTrackerService(store, redisstore.NewSnapshotCache(time.Minute), time.UTC).
		WithClock(func() time.Time { return time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC) })
	reports := service.NewReportService(tracker)

	r := router.NewRouter(
		handler.NewTaskHandler(tracker),
		handler.NewRosterHandler(tracker),
		handler.NewReportHandler(reports),
		handler.NewAuditHandler(tracker),
	).WithAPIKey(apiKey)

	engine := gin.New()
	r.Setup(engine)
	return engine, store
}

func do(t *testing.T, engine *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	engine, _ := newEngine(t, "")
	w := do(t, engine, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDashboard(t *testing.T) {
	engine, _ := newEngine(t, "")
	w := do(t, engine, http.MethodGet, "/api/v1/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	tasks := body["tasks"].([]interface{})
	require.Len(t, tasks, 2)
	assert.Equal(t, "completed", tasks[0].(map[string]interface{})["status"])
	assert.Equal(t, "late", tasks[1].(map[string]interface{})["status"])
	assert.Equal(t, "2024-06-01", body["today"])
}

func TestDashboard_StoreUnavailable(t *testing.T) {
	engine, store := newEngine(t, "")
	store.loadErr = service.ErrStoreUnavailable
	w := do(t, engine, http.MethodGet, "/api/v1/dashboard", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestListTasks_Filters(t *testing.T) {
	engine, _ := newEngine(t, "")
	w := do(t, engine, http.MethodGet, "/api/v1/tasks?employee=Bob&status=late", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["total"])
}

func TestCreateTasks(t *testing.T) {
	engine, store := newEngine(t, "")
	req := map[string]interface{}{
		"project":    "Apollo",
		"sub_task":   "Test",
		"dependency": "Build",
		"start_date": "2024-06-01",
		"end_date":   "2024-06-10",
		"employees":  []string{"Ann", "Bob"},
	}
	w := do(t, engine, http.MethodPost, "/api/v1/tasks", req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.EqualValues(t, 2, decode(t, w)["created"])
	assert.Len(t, store.ds.Rows, 4)

	req["end_date"] = "2024-05-01"
	w = do(t, engine, http.MethodPost, "/api/v1/tasks", req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, store.ds.Rows, 4)
}

func TestCreateTasks_InvalidBody(t *testing.T) {
	engine, _ := newEngine(t, "")
	w := do(t, engine, http.MethodPost, "/api/v1/tasks", map[string]interface{}{"sub_task": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaskByID(t *testing.T) {
	engine, store := newEngine(t, "")

	w := do(t, engine, http.MethodGet, "/api/v1/tasks/r2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Build", decode(t, w)["sub_task"])

	w = do(t, engine, http.MethodGet, "/api/v1/tasks/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, engine, http.MethodPut, "/api/v1/tasks/r2", model.RowEdit{Progress: 100, Log: "done", Mode: model.EditModeReplace})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "completed", body["status"])
	assert.Equal(t, "done", body["issue"])

	w = do(t, engine, http.MethodPut, "/api/v1/tasks/r2", model.RowEdit{Progress: 101})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, engine, http.MethodPut, "/api/v1/tasks/r2", map[string]interface{}{"progress": 10, "mode": "merge"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, engine, http.MethodDelete, "/api/v1/tasks/r2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, store.ds.Rows, 1)
}

func TestRows(t *testing.T) {
	engine, store := newEngine(t, "")

	w := do(t, engine, http.MethodPut, "/api/v1/rows/0", model.RowEdit{Progress: 100, Log: "checked"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w)["issue"], "- [01/06] checked")

	w = do(t, engine, http.MethodPut, "/api/v1/rows/x", model.RowEdit{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, engine, http.MethodDelete, "/api/v1/rows/9", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, engine, http.MethodDelete, "/api/v1/rows/0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, store.ds.Rows, 1)
	assert.Equal(t, "r2", store.ds.Rows[0].ID)
}

func TestEmployees(t *testing.T) {
	engine, store := newEngine(t, "")

	w := do(t, engine, http.MethodPost, "/api/v1/employees", model.NameRequest{Name: "Cid"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, engine, http.MethodPost, "/api/v1/employees", model.NameRequest{Name: "Cid"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["added"])

	w = do(t, engine, http.MethodPost, "/api/v1/employees", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, engine, http.MethodPut, "/api/v1/employees/e-bob", model.NameRequest{Name: "Robert"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Robert", store.ds.Rows[1].Employee)

	w = do(t, engine, http.MethodDelete, "/api/v1/employees/Ann", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["removed_tasks"])

	w = do(t, engine, http.MethodGet, "/api/v1/employees", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["employees"], 2)

	w = do(t, engine, http.MethodDelete, "/api/v1/employees/Nobody", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProjects(t *testing.T) {
	engine, store := newEngine(t, "")

	w := do(t, engine, http.MethodPost, "/api/v1/projects", model.NameRequest{Name: "Gemini"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, engine, http.MethodPut, "/api/v1/projects/p-apollo", model.NameRequest{Name: "Artemis"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Artemis", store.ds.Rows[0].MainTask)

	w = do(t, engine, http.MethodGet, "/api/v1/projects/Artemis/dependencies", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{model.NoDependency, "Build", "Design"}, decode(t, w)["options"])

	w = do(t, engine, http.MethodGet, "/api/v1/projects/Artemis/dependencies/suggest-start?dependency=Build", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2024-02-11", decode(t, w)["start_date"])

	w = do(t, engine, http.MethodDelete, "/api/v1/projects/Artemis", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, store.ds.Rows)
}

func TestReports(t *testing.T) {
	engine, _ := newEngine(t, "")

	w := do(t, engine, http.MethodGet, "/api/v1/reports/late", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["total"])

	w = do(t, engine, http.MethodGet, "/api/v1/reports/timeline?view=task", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["bars"], 2)

	w = do(t, engine, http.MethodGet, "/api/v1/reports/timeline?view=month", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, engine, http.MethodGet, "/api/v1/reports/performance?year=2024", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2024, decode(t, w)["year"])

	w = do(t, engine, http.MethodGet, "/api/v1/reports/performance?year=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAudit_NotConfigured(t *testing.T) {
	engine, _ := newEngine(t, "")
	w := do(t, engine, http.MethodGet, "/api/v1/audit", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSaveFailureReportsFailedSets(t *testing.T) {
	engine, store := newEngine(t, "")
	store.saveErr = &sheetsstore.SaveError{Failed: []string{"Logs", "Projects"}, Err: errors.New("quota")}

	w := do(t, engine, http.MethodPost, "/api/v1/employees", model.NameRequest{Name: "Cid"})
	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, []interface{}{"Logs", "Projects"}, decode(t, w)["failed"])
}

func TestMutationsRequireAPIKey(t *testing.T) {
	engine, _ := newEngine(t, "secret")

	w := do(t, engine, http.MethodPost, "/api/v1/employees", model.NameRequest{Name: "Cid"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, engine, http.MethodGet, "/api/v1/employees", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
