package client_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"task-tracker/server/internal/cache"
	"task-tracker/server/internal/client"
	"task-tracker/server/internal/handlers"
	"task-tracker/server/internal/middleware"
	"task-tracker/server/internal/models"
	"task-tracker/server/internal/services"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestServer stands up the whole API against sqlite and miniredis,
// the same route layout the server binary wires.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Task{}))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cacheConfig := cache.DefaultCacheConfig()
	cacheConfig.Addr = mr.Addr()
	taskCache := cache.NewRedisCache(cacheConfig)
	t.Cleanup(func() { taskCache.Close() })

	tokens := services.NewTokenService("test-secret", time.Hour)
	taskService := services.NewCachedTaskService(services.NewTaskService(), taskCache)

	authHandler := handlers.NewAuthHandler(db, services.NewAuthService(), services.NewRegisterService(4), services.NewUserService(), tokens, nil)
	taskHandler := handlers.NewTaskHandler(db, taskService, nil)
	userHandler := handlers.NewUserHandler(db, services.NewUserService())

	router := gin.New()
	router.Use(middleware.RecoveryWithLog())

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.GET("/user", middleware.AuthRequired(tokens), authHandler.CurrentUser)
		}

		tasks := api.Group("/tasks", middleware.AuthRequired(tokens))
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.GET("/:id", taskHandler.GetTaskByID)
			tasks.PUT("/:id", taskHandler.UpdateTask)
			tasks.DELETE("/:id", taskHandler.DeleteTask)
		}

		me := api.Group("/me", middleware.AuthRequired(tokens))
		{
			me.GET("", userHandler.GetProfile)
			me.PUT("", userHandler.UpdateProfile)
		}
	}

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return server
}

func TestClient_SignupAndTaskLifecycle(t *testing.T) {
	server := newTestServer(t)
	c := client.New(server.URL)
	ctx := context.Background()

	user, err := c.Signup(ctx, "Ana", "ana@x.com", "secret1")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "Ana", user.Name)
	assert.True(t, c.Session().Authenticated())

	task, err := c.CreateTask(ctx, "buy milk", "two liters", "", "")
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, models.StatusPending, task.Status)
	assert.Equal(t, models.PriorityMedium, task.Priority)

	got, err := c.GetTask(ctx, task.ID.String())
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)

	newStatus := models.StatusCompleted
	updated, err := c.UpdateTask(ctx, task.ID.String(), services.TaskPatch{Status: &newStatus})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, updated.Status)
	assert.Equal(t, "buy milk", updated.Title)

	tasks, err := c.ListTasks(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	require.NoError(t, c.DeleteTask(ctx, task.ID.String()))

	tasks, err = c.ListTasks(ctx, "", "")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestClient_LoginFailure(t *testing.T) {
	server := newTestServer(t)
	c := client.New(server.URL)
	ctx := context.Background()

	_, err := c.Signup(ctx, "Ana", "ana@x.com", "secret1")
	require.NoError(t, err)
	c.Logout()

	_, err = c.Login(ctx, "ana@x.com", "wrong")
	require.Error(t, err)

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid Credentials", apiErr.Message)
	assert.False(t, c.Session().Authenticated())
}

func TestClient_UnauthenticatedClearsSession(t *testing.T) {
	server := newTestServer(t)
	c := client.New(server.URL)
	ctx := context.Background()

	c.Session().Set("not-a-real-token")

	_, err := c.CurrentUser(ctx)
	require.ErrorIs(t, err, client.ErrUnauthenticated)
	assert.False(t, c.Session().Authenticated())
}

func TestClient_ProfileUpdate(t *testing.T) {
	server := newTestServer(t)
	c := client.New(server.URL)
	ctx := context.Background()

	_, err := c.Signup(ctx, "Ana", "ana@x.com", "secret1")
	require.NoError(t, err)

	updated, err := c.UpdateProfile(ctx, "Ana Maria", "ana.maria@x.com")
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", updated.Name)
	assert.Equal(t, "ana.maria@x.com", updated.Email)

	profile, err := c.GetProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", profile.Name)
}

func TestSearcher_DebouncesRapidQueries(t *testing.T) {
	server := newTestServer(t)
	c := client.New(server.URL)
	ctx := context.Background()

	_, err := c.Signup(ctx, "Ana", "ana@x.com", "secret1")
	require.NoError(t, err)

	_, err = c.CreateTask(ctx, "water the plants", "", "", "")
	require.NoError(t, err)
	_, err = c.CreateTask(ctx, "walk the dog", "", "", "")
	require.NoError(t, err)

	type result struct {
		query string
		tasks []models.Task
		err   error
	}
	results := make(chan result, 4)

	s := client.NewSearcher(c, 50*time.Millisecond, func(query string, tasks []models.Task, err error) {
		results <- result{query: query, tasks: tasks, err: err}
	})
	defer s.Stop()

	// Rapid keystrokes: only the final query should reach the server.
	s.Query("", "w")
	s.Query("", "wa")
	s.Query("", "wat")
	s.Query("", "water")

	select {
	case r := <-results:
		require.NoError(t, r.err)
		assert.Equal(t, "water", r.query)
		require.Len(t, r.tasks, 1)
		assert.Equal(t, "water the plants", r.tasks[0].Title)
	case <-time.After(2 * time.Second):
		t.Fatal("search result never delivered")
	}

	select {
	case r := <-results:
		t.Fatalf("unexpected extra delivery for query %q", r.query)
	case <-time.After(200 * time.Millisecond):
	}
}

func writeTaskList(w http.ResponseWriter, title string) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"result":"success","count":1,"tasks":[{"title":%q}]}`, title)
}

func TestSearcher_StaleResponseNeverDelivered(t *testing.T) {
	slowStarted := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("search") {
		case "slow":
			close(slowStarted)
			select {
			case <-r.Context().Done():
				return
			case <-time.After(2 * time.Second):
			}
			writeTaskList(w, "stale result")
		default:
			writeTaskList(w, "fresh result")
		}
	}))
	t.Cleanup(server.Close)

	c := client.New(server.URL)
	deliveries := make(chan string, 4)

	s := client.NewSearcher(c, 10*time.Millisecond, func(query string, tasks []models.Task, err error) {
		if err != nil || len(tasks) != 1 {
			deliveries <- fmt.Sprintf("unexpected (%v, %d tasks)", err, len(tasks))
			return
		}
		deliveries <- tasks[0].Title
	})
	defer s.Stop()

	s.Query("", "slow")
	select {
	case <-slowStarted:
	case <-time.After(2 * time.Second):
		t.Fatal("slow request never reached the server")
	}

	// A newer query arrives while the slow one is still in flight.
	s.Query("", "fresh")

	select {
	case title := <-deliveries:
		assert.Equal(t, "fresh result", title)
	case <-time.After(2 * time.Second):
		t.Fatal("fresh result never delivered")
	}

	select {
	case title := <-deliveries:
		t.Fatalf("stale in-flight response was delivered: %q", title)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestSearcher_CancelSurvivesSupersededRun(t *testing.T) {
	firstStarted := make(chan struct{})
	secondStarted := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("search") {
		case "first":
			close(firstStarted)
			<-r.Context().Done()
		case "second":
			close(secondStarted)
			select {
			case <-r.Context().Done():
				return
			case <-time.After(600 * time.Millisecond):
			}
			writeTaskList(w, "stale second")
		default:
			writeTaskList(w, "fresh third")
		}
	}))
	t.Cleanup(server.Close)

	c := client.New(server.URL)
	deliveries := make(chan string, 4)

	s := client.NewSearcher(c, 10*time.Millisecond, func(query string, tasks []models.Task, err error) {
		if err != nil || len(tasks) != 1 {
			deliveries <- fmt.Sprintf("unexpected (%v, %d tasks)", err, len(tasks))
			return
		}
		deliveries <- tasks[0].Title
	})
	defer s.Stop()

	s.Query("", "first")
	select {
	case <-firstStarted:
	case <-time.After(2 * time.Second):
		t.Fatal("first request never reached the server")
	}

	s.Query("", "second")
	select {
	case <-secondStarted:
	case <-time.After(2 * time.Second):
		t.Fatal("second request never reached the server")
	}

	// Let the cancelled first request finish winding down, then make
	// sure a third query can still cancel the second one.
	time.Sleep(50 * time.Millisecond)
	s.Query("", "third")

	select {
	case title := <-deliveries:
		assert.Equal(t, "fresh third", title)
	case <-time.After(2 * time.Second):
		t.Fatal("third result never delivered")
	}

	select {
	case title := <-deliveries:
		t.Fatalf("superseded second response was delivered: %q", title)
	case <-time.After(time.Second):
	}
}
