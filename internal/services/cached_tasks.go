package services

import (
	"context"
	"fmt"
	"time"

	"task-tracker/server/internal/cache"
	"task-tracker/server/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// CachedTaskService is a cache-aside decorator over TaskService. List
// keys embed the owner id, so one user's cached listing can never be
// served to another. Cache failures fall through to the store.
type CachedTaskService struct {
	taskService TaskService
	cache       *cache.RedisCache
}

func NewCachedTaskService(taskService TaskService, cacheInstance *cache.RedisCache) *CachedTaskService {
	return &CachedTaskService{
		taskService: taskService,
		cache:       cacheInstance,
	}
}

func taskKey(id uuid.UUID) string {
	return fmt.Sprintf("task:%s", id.String())
}

func userTasksKey(userID uuid.UUID, filter TaskFilter) string {
	return fmt.Sprintf("user_tasks:%s:%s:%s", userID.String(), filter.Status, filter.Search)
}

func userTasksPattern(userID uuid.UUID) string {
	return fmt.Sprintf("user_tasks:%s:*", userID.String())
}

func (s *CachedTaskService) CreateTask(db *gorm.DB, task models.Task) (models.Task, error) {
	created, err := s.taskService.CreateTask(db, task)
	if err != nil {
		return models.Task{}, err
	}

	ctx := context.Background()
	s.cache.DeletePattern(ctx, userTasksPattern(created.UserID))

	return created, nil
}

func (s *CachedTaskService) GetTaskByID(db *gorm.DB, id uuid.UUID) (models.Task, error) {
	ctx := context.Background()

	var cached models.Task
	if err := s.cache.Get(ctx, taskKey(id), &cached); err == nil {
		return cached, nil
	}

	task, err := s.taskService.GetTaskByID(db, id)
	if err != nil {
		return task, err
	}

	s.cache.Set(ctx, taskKey(id), task, 30*time.Minute)

	return task, nil
}

func (s *CachedTaskService) ListTasks(db *gorm.DB, userID uuid.UUID, filter TaskFilter) ([]models.Task, error) {
	ctx := context.Background()
	key := userTasksKey(userID, filter)

	var cached []models.Task
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return cached, nil
	}

	tasks, err := s.taskService.ListTasks(db, userID, filter)
	if err != nil {
		return tasks, err
	}

	s.cache.Set(ctx, key, tasks, 10*time.Minute)

	return tasks, nil
}

func (s *CachedTaskService) UpdateTask(db *gorm.DB, id uuid.UUID, patch TaskPatch) (models.Task, error) {
	task, err := s.taskService.UpdateTask(db, id, patch)
	if err != nil {
		return task, err
	}

	ctx := context.Background()
	s.cache.Delete(ctx, taskKey(id))
	s.cache.DeletePattern(ctx, userTasksPattern(task.UserID))

	return task, nil
}

func (s *CachedTaskService) DeleteTask(db *gorm.DB, id uuid.UUID) error {
	task, getErr := s.taskService.GetTaskByID(db, id)

	if err := s.taskService.DeleteTask(db, id); err != nil {
		return err
	}

	ctx := context.Background()
	s.cache.Delete(ctx, taskKey(id))
	if getErr == nil {
		s.cache.DeletePattern(ctx, userTasksPattern(task.UserID))
	}

	return nil
}

func (s *CachedTaskService) CacheStats() map[string]interface{} {
	return s.cache.Stats()
}
