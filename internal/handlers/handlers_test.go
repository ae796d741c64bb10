package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/chainboard/internal/clock"
	"github.com/yukikurage/chainboard/internal/constants"
	"github.com/yukikurage/chainboard/internal/database"
	"github.com/yukikurage/chainboard/internal/dto"
	"github.com/yukikurage/chainboard/internal/engine"
	"github.com/yukikurage/chainboard/internal/middleware"
	"github.com/yukikurage/chainboard/internal/models"
	"github.com/yukikurage/chainboard/internal/repository"
	"github.com/yukikurage/chainboard/internal/services"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	sessionA = "session_alpha"
	sessionB = "session_beta"
)

type recordingDispatcher struct {
	mu       sync.Mutex
	messages []string
}

func (d *recordingDispatcher) Dispatch(_ context.Context, _ models.NotificationSettings, message string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = append(d.messages, message)
	return nil
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.messages)
}

type stubSuggester struct {
	tasks []services.SuggestedTask
}

func (s stubSuggester) SuggestTasks(context.Context, string) ([]services.SuggestedTask, error) {
	return s.tasks, nil
}

// HandlerTestSuite drives the full router over an in-memory SQLite store
type HandlerTestSuite struct {
	suite.Suite
	db         *gorm.DB
	clock      *clock.FakeClock
	dispatcher *recordingDispatcher
	manager    *engine.Manager
	router     *gin.Engine
	suggester  services.TaskSuggester
}

func (suite *HandlerTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	suite.Require().NoError(err)
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)

	suite.Require().NoError(database.AutoMigrate(suite.db))

	suite.clock = clock.NewFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	suite.dispatcher = &recordingDispatcher{}
	suite.suggester = nil
	suite.buildRouter()
}

func (suite *HandlerTestSuite) buildRouter() {
	tasks := repository.NewTaskRepository(suite.db)
	settings := repository.NewSettingsRepository(suite.db)

	suite.manager = engine.NewManager(engine.Options{
		Clock:      suite.clock,
		Store:      tasks,
		Dispatcher: suite.dispatcher,
		Location:   time.UTC,
	}, settings)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(sessions.Sessions(constants.SessionCookieName, cookie.NewStore([]byte("test-secret"))))

	taskHandler := NewTaskHandler(suite.manager, suite.suggester)
	chainHandler := NewChainHandler(suite.manager)
	settingsHandler := NewSettingsHandler(services.NewSettingsService(settings, suite.manager, suite.dispatcher, time.Second))
	sessionHandler := NewSessionHandler(tasks)

	api := r.Group("/api")
	scoped := api.Group("")
	scoped.Use(middleware.RequireSession())
	{
		scoped.GET("/tasks", taskHandler.ListTasks)
		scoped.POST("/tasks", taskHandler.CreateTask)
		scoped.DELETE("/tasks", taskHandler.ClearTasks)
		scoped.POST("/tasks/sync", taskHandler.SyncTasks)
		scoped.POST("/tasks/import", taskHandler.ImportTasks)
		scoped.GET("/tasks/export", taskHandler.ExportTasks)
		scoped.POST("/tasks/generate", taskHandler.GenerateTasks)
		scoped.PUT("/tasks/batch", taskHandler.BatchUpdate)
		scoped.GET("/tasks/:id", taskHandler.GetTask)
		scoped.PUT("/tasks/:id", taskHandler.UpdateTask)
		scoped.DELETE("/tasks/:id", taskHandler.DeleteTask)
		scoped.POST("/tasks/:id/toggle", taskHandler.ToggleTimer)
		scoped.POST("/tasks/:id/reset", taskHandler.ResetTimer)
		scoped.PUT("/tasks/:id/time", taskHandler.SetTime)
		scoped.PUT("/tasks/:id/alarm", taskHandler.SetAlarm)
		scoped.POST("/tasks/:id/mode", taskHandler.ToggleMode)
		scoped.GET("/tasks/:id/chain", chainHandler.GetChain)
		scoped.POST("/tasks/:id/chain/start", chainHandler.StartChain)
		scoped.GET("/links", chainHandler.ListLinks)
		scoped.POST("/links", chainHandler.CreateLink)
		scoped.DELETE("/links", chainHandler.DeleteLink)
		scoped.GET("/chains", chainHandler.ListChains)
		scoped.POST("/chains/reset", chainHandler.ResetChain)
		scoped.GET("/settings/notifications", settingsHandler.GetNotifications)
		scoped.PUT("/settings/notifications", settingsHandler.SaveNotifications)
	}
	api.POST("/session/new", sessionHandler.NewSession)
	api.GET("/session/stats", sessionHandler.Stats)

	suite.router = r
}

func (suite *HandlerTestSuite) TearDownTest() {
	suite.manager.Close()
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

// flush waits for the sessions' queued store writes
func (suite *HandlerTestSuite) flush(sessionIDs ...string) {
	for _, id := range sessionIDs {
		board, err := suite.manager.Board(context.Background(), id)
		suite.Require().NoError(err)
		board.Flush()
	}
}

// request sends a JSON request scoped to the session
func (suite *HandlerTestSuite) request(session, method, url string, body interface{}) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		raw, err := json.Marshal(body)
		suite.Require().NoError(err)
		req = httptest.NewRequest(method, url, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	if session != "" {
		req.Header.Set(constants.HeaderSessionID, session)
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *HandlerTestSuite) decode(w *httptest.ResponseRecorder, v interface{}) {
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), v))
}

func (suite *HandlerTestSuite) createTask(session, title string) models.Task {
	w := suite.request(session, http.MethodPost, "/api/tasks", map[string]interface{}{"title": title})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var task models.Task
	suite.decode(w, &task)
	return task
}

func (suite *HandlerTestSuite) getTask(session string, id int64) models.Task {
	w := suite.request(session, http.MethodGet, fmt.Sprintf("/api/tasks/%d", id), nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var task models.Task
	suite.decode(w, &task)
	return task
}

func (suite *HandlerTestSuite) link(session string, from, to int64) {
	w := suite.request(session, http.MethodPost, "/api/links", dto.LinkRequest{FromID: from, ToID: to})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
}

func (suite *HandlerTestSuite) errorCode(w *httptest.ResponseRecorder) string {
	var resp map[string]interface{}
	suite.decode(w, &resp)
	code, _ := resp["code"].(string)
	return code
}

func (suite *HandlerTestSuite) TestCreateTask_Defaults() {
	w := suite.request(sessionA, http.MethodPost, "/api/tasks", map[string]interface{}{})

	assert.Equal(suite.T(), http.StatusCreated, w.Code)
	assert.NotEmpty(suite.T(), w.Header().Get("Last-Modified"))

	var task models.Task
	suite.decode(w, &task)
	assert.NotZero(suite.T(), task.ID)
	assert.Equal(suite.T(), constants.DefaultTaskTitle, task.Title)
	assert.Equal(suite.T(), "05:00", task.Time)
	assert.Equal(suite.T(), "05:00", task.OriginalTime)
	assert.Equal(suite.T(), models.TaskModeTimer, task.Mode)
	assert.False(suite.T(), task.IsRunning)
	assert.Empty(suite.T(), task.LinkedTo)
}

func (suite *HandlerTestSuite) TestCreateTask_InvalidMode() {
	w := suite.request(sessionA, http.MethodPost, "/api/tasks", map[string]interface{}{"mode": "stopwatch"})

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestListTasks_IsSessionScoped() {
	suite.createTask(sessionA, "Alpha task")
	suite.createTask(sessionB, "Beta task")

	w := suite.request(sessionA, http.MethodGet, "/api/tasks", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), "no-cache, no-store, must-revalidate", w.Header().Get("Cache-Control"))

	var tasks []models.Task
	suite.decode(w, &tasks)
	assert.Len(suite.T(), tasks, 1)
	assert.Equal(suite.T(), "Alpha task", tasks[0].Title)
}

func (suite *HandlerTestSuite) TestGetTask_Errors() {
	w := suite.request(sessionA, http.MethodGet, "/api/tasks/abc", nil)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w = suite.request(sessionA, http.MethodGet, "/api/tasks/999", nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
	assert.Equal(suite.T(), "NOT_FOUND", suite.errorCode(w))
}

func (suite *HandlerTestSuite) TestGetTask_NotVisibleFromOtherSession() {
	task := suite.createTask(sessionA, "Private")

	w := suite.request(sessionB, http.MethodGet, fmt.Sprintf("/api/tasks/%d", task.ID), nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *HandlerTestSuite) TestBatchUpdate() {
	first := suite.createTask(sessionA, "First")
	second := suite.createTask(sessionA, "Second")

	w := suite.request(sessionA, http.MethodPut, "/api/tasks/batch", map[string]interface{}{
		"updates": []map[string]interface{}{
			{"id": first.ID, "data": map[string]interface{}{"position": map[string]float64{"x": 10, "y": 20}}},
			{"id": second.ID, "data": map[string]interface{}{"title": "Renamed"}},
			{"id": 999, "data": map[string]interface{}{"title": "Ghost"}},
		},
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var resp dto.BatchUpdateResponse
	suite.decode(w, &resp)
	assert.True(suite.T(), resp.Success)
	assert.Equal(suite.T(), 2, resp.UpdatedCount)
	assert.NotEmpty(suite.T(), w.Header().Get("Last-Modified"))

	assert.Equal(suite.T(), models.Position{X: 10, Y: 20}, suite.getTask(sessionA, first.ID).Position)
	assert.Equal(suite.T(), "Renamed", suite.getTask(sessionA, second.ID).Title)

	w = suite.request(sessionA, http.MethodGet, "/api/tasks", nil)
	var tasks []models.Task
	suite.decode(w, &tasks)
	assert.Len(suite.T(), tasks, 2, "unknown ids are not created")
}

func (suite *HandlerTestSuite) TestBatchUpdate_RejectsMissingUpdates() {
	w := suite.request(sessionA, http.MethodPut, "/api/tasks/batch", map[string]interface{}{"items": []int{}})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w = suite.request(sessionA, http.MethodPut, "/api/tasks/batch", map[string]interface{}{
		"updates": []map[string]interface{}{{"data": map[string]interface{}{"title": "No id"}}},
	})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestUpdateTask() {
	task := suite.createTask(sessionA, "Before")

	w := suite.request(sessionA, http.MethodPut, fmt.Sprintf("/api/tasks/%d", task.ID), map[string]interface{}{
		"title": "After",
		"tags":  []string{"work"},
	})
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	got := suite.getTask(sessionA, task.ID)
	assert.Equal(suite.T(), "After", got.Title)
	assert.Equal(suite.T(), []string{"work"}, got.Tags)
	assert.Equal(suite.T(), "05:00", got.Time)
}

func (suite *HandlerTestSuite) TestToggleTimer_CountsDown() {
	task := suite.createTask(sessionA, "Focus")

	w := suite.request(sessionA, http.MethodPost, fmt.Sprintf("/api/tasks/%d/toggle", task.ID), nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var toggled models.Task
	suite.decode(w, &toggled)
	assert.True(suite.T(), toggled.IsRunning)

	suite.clock.Advance(3 * time.Second)
	assert.Equal(suite.T(), "04:57", suite.getTask(sessionA, task.ID).Time)

	w = suite.request(sessionA, http.MethodPost, fmt.Sprintf("/api/tasks/%d/toggle", task.ID), nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.clock.Advance(5 * time.Second)

	paused := suite.getTask(sessionA, task.ID)
	assert.False(suite.T(), paused.IsRunning)
	assert.Equal(suite.T(), "04:57", paused.Time)
}

func (suite *HandlerTestSuite) TestResetTimer() {
	task := suite.createTask(sessionA, "Focus")
	suite.request(sessionA, http.MethodPost, fmt.Sprintf("/api/tasks/%d/toggle", task.ID), nil)
	suite.clock.Advance(10 * time.Second)

	w := suite.request(sessionA, http.MethodPost, fmt.Sprintf("/api/tasks/%d/reset", task.ID), nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var reset models.Task
	suite.decode(w, &reset)
	assert.False(suite.T(), reset.IsRunning)
	assert.Equal(suite.T(), "05:00", reset.Time)
}

func (suite *HandlerTestSuite) TestSetTime() {
	task := suite.createTask(sessionA, "Focus")

	w := suite.request(sessionA, http.MethodPut, fmt.Sprintf("/api/tasks/%d/time", task.ID), dto.SetTimeRequest{Time: "5:60"})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), "INVALID_FORMAT", suite.errorCode(w))

	w = suite.request(sessionA, http.MethodPut, fmt.Sprintf("/api/tasks/%d/time", task.ID), dto.SetTimeRequest{Time: "25:00"})
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	got := suite.getTask(sessionA, task.ID)
	assert.Equal(suite.T(), "25:00", got.Time)
	assert.Equal(suite.T(), "25:00", got.OriginalTime)
}

func (suite *HandlerTestSuite) TestSetAlarmAndToggleMode() {
	task := suite.createTask(sessionA, "Standup")

	w := suite.request(sessionA, http.MethodPut, fmt.Sprintf("/api/tasks/%d/alarm", task.ID), dto.SetAlarmRequest{Time: "24:00"})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w = suite.request(sessionA, http.MethodPut, fmt.Sprintf("/api/tasks/%d/alarm", task.ID), dto.SetAlarmRequest{Time: "09:30", Date: "2025-03-10"})
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	w = suite.request(sessionA, http.MethodPost, fmt.Sprintf("/api/tasks/%d/mode", task.ID), nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	got := suite.getTask(sessionA, task.ID)
	assert.Equal(suite.T(), models.TaskModeAlarm, got.Mode)
	assert.Equal(suite.T(), "09:30", got.AlarmTime)
	assert.Equal(suite.T(), "2025-03-10", got.AlarmDate)
}

func (suite *HandlerTestSuite) TestLinks_CreateListDelete() {
	first := suite.createTask(sessionA, "First")
	second := suite.createTask(sessionA, "Second")
	suite.link(sessionA, first.ID, second.ID)

	w := suite.request(sessionA, http.MethodGet, "/api/links", nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var links dto.LinkListResponse
	suite.decode(w, &links)
	suite.Require().Len(links.Links, 1)
	assert.Equal(suite.T(), fmt.Sprintf("%d-%d", first.ID, second.ID), links.Links[0].ID)
	assert.Equal(suite.T(), models.LinkSequential, links.Links[0].LinkType)

	w = suite.request(sessionA, http.MethodDelete, "/api/links", dto.UnlinkRequest{FromID: first.ID, ToID: second.ID})
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Empty(suite.T(), suite.getTask(sessionA, first.ID).LinkedTo)
	assert.Empty(suite.T(), suite.getTask(sessionA, second.ID).LinkedFrom)
}

func (suite *HandlerTestSuite) TestCreateLink_Errors() {
	first := suite.createTask(sessionA, "First")
	second := suite.createTask(sessionA, "Second")

	w := suite.request(sessionA, http.MethodPost, "/api/links", dto.LinkRequest{FromID: first.ID, ToID: second.ID, LinkType: "sometimes"})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), "INVALID_FORMAT", suite.errorCode(w))

	w = suite.request(sessionA, http.MethodPost, "/api/links", dto.LinkRequest{FromID: first.ID, ToID: 42})
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	w = suite.request(sessionA, http.MethodPost, "/api/links", map[string]interface{}{"fromId": first.ID})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestDeleteTask_PrunesEdges() {
	first := suite.createTask(sessionA, "First")
	second := suite.createTask(sessionA, "Second")
	suite.link(sessionA, first.ID, second.ID)

	w := suite.request(sessionA, http.MethodDelete, fmt.Sprintf("/api/tasks/%d", second.ID), nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var resp dto.DeleteTaskResponse
	suite.decode(w, &resp)
	assert.True(suite.T(), resp.Success)
	assert.Equal(suite.T(), second.ID, resp.DeletedTask.ID)
	assert.Empty(suite.T(), suite.getTask(sessionA, first.ID).LinkedTo)

	w = suite.request(sessionA, http.MethodDelete, fmt.Sprintf("/api/tasks/%d", second.ID), nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *HandlerTestSuite) TestChain_StartProgressAndReset() {
	first := suite.createTask(sessionA, "First")
	second := suite.createTask(sessionA, "Second")
	suite.link(sessionA, first.ID, second.ID)

	w := suite.request(sessionA, http.MethodGet, fmt.Sprintf("/api/tasks/%d/chain", first.ID), nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var chain dto.ChainResponse
	suite.decode(w, &chain)
	suite.Require().Len(chain.Tasks, 2)
	assert.Equal(suite.T(), first.ID, chain.Tasks[0].ID)
	assert.Equal(suite.T(), 0, chain.Progress)

	w = suite.request(sessionA, http.MethodPost, fmt.Sprintf("/api/tasks/%d/chain/start", first.ID), nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.decode(w, &chain)
	for _, t := range chain.Tasks {
		assert.True(suite.T(), t.IsChainActive)
		assert.NotNil(suite.T(), t.ChainPosition)
	}
	assert.False(suite.T(), suite.getTask(sessionA, first.ID).IsRunning)

	suite.clock.Advance(500 * time.Millisecond)
	assert.True(suite.T(), suite.getTask(sessionA, first.ID).IsRunning)

	w = suite.request(sessionA, http.MethodPost, "/api/chains/reset", dto.ResetChainRequest{TaskIDs: []int64{first.ID, second.ID}})
	suite.Require().Equal(http.StatusOK, w.Code)

	got := suite.getTask(sessionA, first.ID)
	assert.False(suite.T(), got.IsRunning)
	assert.False(suite.T(), got.IsChainActive)
	assert.Nil(suite.T(), got.ChainPosition)
}

func (suite *HandlerTestSuite) TestChain_CompletionActivatesNext() {
	first := suite.createTask(sessionA, "First")
	second := suite.createTask(sessionA, "Second")
	suite.request(sessionA, http.MethodPut, fmt.Sprintf("/api/tasks/%d/time", first.ID), dto.SetTimeRequest{Time: "00:02"})
	suite.link(sessionA, first.ID, second.ID)

	suite.request(sessionA, http.MethodPost, fmt.Sprintf("/api/tasks/%d/toggle", first.ID), nil)
	suite.clock.Advance(3 * time.Second)

	done := suite.getTask(sessionA, first.ID)
	assert.True(suite.T(), done.IsCompleted)
	assert.Equal(suite.T(), 1, done.CompletionCount)

	suite.clock.Advance(time.Second)
	next := suite.getTask(sessionA, second.ID)
	assert.True(suite.T(), next.IsRunning)
	assert.True(suite.T(), next.IsChainActive)

	w := suite.request(sessionA, http.MethodGet, fmt.Sprintf("/api/tasks/%d/chain", first.ID), nil)
	var chain dto.ChainResponse
	suite.decode(w, &chain)
	assert.Equal(suite.T(), 50, chain.Progress)
}

func (suite *HandlerTestSuite) TestListChains() {
	first := suite.createTask(sessionA, "First")
	second := suite.createTask(sessionA, "Second")
	suite.createTask(sessionA, "Loose")
	suite.link(sessionA, first.ID, second.ID)

	w := suite.request(sessionA, http.MethodGet, "/api/chains", nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var resp dto.ChainListResponse
	suite.decode(w, &resp)
	suite.Require().Len(resp.Chains, 1)
	assert.Len(suite.T(), resp.Chains[0].Tasks, 2)
}

func (suite *HandlerTestSuite) TestResetChain_RequiresIDs() {
	w := suite.request(sessionA, http.MethodPost, "/api/chains/reset", dto.ResetChainRequest{})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestSyncAndClear() {
	suite.createTask(sessionA, "Old")

	w := suite.request(sessionA, http.MethodPost, "/api/tasks/sync", map[string]interface{}{
		"tasks": []map[string]interface{}{
			{"id": 1, "title": "One", "time": "10:00"},
			{"id": 2, "title": "Two", "time": "00:30"},
		},
	})
	suite.Require().Equal(http.StatusOK, w.Code)

	var resp dto.SyncResponse
	suite.decode(w, &resp)
	assert.True(suite.T(), resp.Success)
	assert.Equal(suite.T(), 2, resp.SyncedCount)

	suite.flush(sessionA)
	stored, err := repository.NewTaskRepository(suite.db).List(context.Background(), sessionA)
	suite.Require().NoError(err)
	assert.Len(suite.T(), stored, 2)

	w = suite.request(sessionA, http.MethodDelete, "/api/tasks", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	w = suite.request(sessionA, http.MethodGet, "/api/tasks", nil)
	var tasks []models.Task
	suite.decode(w, &tasks)
	assert.Empty(suite.T(), tasks)
}

func (suite *HandlerTestSuite) TestSync_RejectsMissingTasks() {
	w := suite.request(sessionA, http.MethodPost, "/api/tasks/sync", map[string]interface{}{"items": []int{}})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestExportThenImport() {
	suite.createTask(sessionA, "Backed up")

	w := suite.request(sessionA, http.MethodGet, "/api/tasks/export", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	assert.Contains(suite.T(), w.Header().Get("Content-Disposition"), "attachment;")

	req := httptest.NewRequest(http.MethodPost, "/api/tasks/import", bytes.NewReader(w.Body.Bytes()))
	req.Header.Set(constants.HeaderSessionID, sessionB)
	imported := httptest.NewRecorder()
	suite.router.ServeHTTP(imported, req)
	suite.Require().Equal(http.StatusOK, imported.Code, imported.Body.String())

	w = suite.request(sessionB, http.MethodGet, "/api/tasks", nil)
	var tasks []models.Task
	suite.decode(w, &tasks)
	suite.Require().Len(tasks, 1)
	assert.Equal(suite.T(), "Backed up", tasks[0].Title)
}

func (suite *HandlerTestSuite) TestImport_RejectsGarbage() {
	req := httptest.NewRequest(http.MethodPost, "/api/tasks/import", strings.NewReader("not json"))
	req.Header.Set(constants.HeaderSessionID, sessionA)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestGenerateTasks_WithoutAIService() {
	w := suite.request(sessionA, http.MethodPost, "/api/tasks/generate", dto.GenerateTasksRequest{Text: "plan my day"})

	assert.Equal(suite.T(), http.StatusServiceUnavailable, w.Code)
}

func (suite *HandlerTestSuite) TestGenerateTasks_CreatesChain() {
	suite.manager.Close()
	suite.suggester = stubSuggester{tasks: []services.SuggestedTask{
		{Title: "Warm up", Mode: models.TaskModeTimer, Time: "05:00"},
		{Title: "Run", Mode: models.TaskModeTimer, Time: "20:00"},
	}}
	suite.buildRouter()

	w := suite.request(sessionA, http.MethodPost, "/api/tasks/generate", dto.GenerateTasksRequest{Text: "workout", Create: true, Chain: true})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Tasks   []services.SuggestedTask `json:"tasks"`
		Created []models.Task            `json:"created"`
	}
	suite.decode(w, &resp)
	assert.Len(suite.T(), resp.Tasks, 2)
	suite.Require().Len(resp.Created, 2)
	assert.Equal(suite.T(), "Warm up", resp.Created[0].Title)
	assert.Equal(suite.T(), []int64{resp.Created[1].ID}, resp.Created[0].LinkedTo)
}

func (suite *HandlerTestSuite) TestNotificationSettings() {
	w := suite.request(sessionA, http.MethodGet, "/api/settings/notifications", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var got dto.NotificationSettingsResponse
	suite.decode(w, &got)
	assert.False(suite.T(), got.Enabled)
	assert.False(suite.T(), got.HasBotToken)

	w = suite.request(sessionA, http.MethodPut, "/api/settings/notifications", dto.NotificationSettingsRequest{Enabled: true})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w = suite.request(sessionA, http.MethodPut, "/api/settings/notifications", dto.NotificationSettingsRequest{
		Enabled:          true,
		ChatID:           "12345",
		BotToken:         "123:abc",
		NotifyOnComplete: true,
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.decode(w, &got)
	assert.True(suite.T(), got.HasBotToken)
	suite.Require().NotNil(got.TestSent)
	assert.True(suite.T(), *got.TestSent)
	assert.Equal(suite.T(), constants.DefaultCompletionMessage, got.CustomMessage)
	assert.Equal(suite.T(), 1, suite.dispatcher.count())
	assert.NotContains(suite.T(), w.Body.String(), "123:abc")
}

func (suite *HandlerTestSuite) TestNewSession() {
	w := suite.request("", http.MethodPost, "/api/session/new", nil)
	suite.Require().Equal(http.StatusCreated, w.Code)

	var resp dto.SessionResponse
	suite.decode(w, &resp)
	assert.True(suite.T(), strings.HasPrefix(resp.SessionID, constants.SessionIDPrefix))
	assert.NotEmpty(suite.T(), w.Header().Get("Set-Cookie"))
}

func (suite *HandlerTestSuite) TestSessionStats() {
	suite.createTask(sessionA, "One")
	suite.createTask(sessionA, "Two")
	suite.createTask(sessionB, "Three")
	suite.flush(sessionA, sessionB)

	w := suite.request("", http.MethodGet, "/api/session/stats?limit=10", nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var resp dto.SessionStatsResponse
	suite.decode(w, &resp)
	assert.Equal(suite.T(), int64(2), resp.TotalSessions)
	suite.Require().Len(resp.Sessions, 2)
	assert.Equal(suite.T(), sessionA, resp.Sessions[0].SessionID)
	assert.Equal(suite.T(), int64(2), resp.Sessions[0].TaskCount)
}

func TestHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}

func newWebhookRouter(t *testing.T, secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	hash := ""
	if secret != "" {
		raw, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
		if err != nil {
			t.Fatal(err)
		}
		hash = string(raw)
	}
	r := gin.New()
	r.POST("/api/telegram/webhook", NewWebhookHandler(hash).Telegram)
	return r
}

func postUpdate(r *gin.Engine, secret, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/telegram/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set(constants.WebhookSecretHeader, secret)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhook_StartReplies(t *testing.T) {
	r := newWebhookRouter(t, "hook-secret")

	w := postUpdate(r, "hook-secret", `{"message":{"text":"/start","chat":{"id":777}}}`)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "sendMessage", resp["method"])
	assert.Equal(t, float64(777), resp["chat_id"])
	assert.Equal(t, constants.WebhookWelcomeMessage, resp["text"])
}

func TestWebhook_OtherUpdatesAreAcknowledged(t *testing.T) {
	r := newWebhookRouter(t, "")

	w := postUpdate(r, "", `{"message":{"text":"hello","chat":{"id":1}}}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
}

func TestWebhook_RejectsWrongSecret(t *testing.T) {
	r := newWebhookRouter(t, "hook-secret")

	assert.Equal(t, http.StatusUnauthorized, postUpdate(r, "guess", `{}`).Code)
	assert.Equal(t, http.StatusUnauthorized, postUpdate(r, "", `{}`).Code)
}

func TestWebhook_RejectsMalformedBody(t *testing.T) {
	r := newWebhookRouter(t, "")

	assert.Equal(t, http.StatusBadRequest, postUpdate(r, "", `{`).Code)
}
