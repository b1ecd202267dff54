package services

import (
	"strings"
	"time"

	"task-tracker/server/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// TaskFilter narrows a listing. The owner scope is mandatory and applied
// at the query level; filters only narrow within it.
type TaskFilter struct {
	Status string
	Search string
}

// TaskPatch carries a partial update. Nil fields are left untouched
// (merge-patch). The owner of a task can never change.
type TaskPatch struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
}

type TaskService interface {
	CreateTask(db *gorm.DB, task models.Task) (models.Task, error)
	GetTaskByID(db *gorm.DB, id uuid.UUID) (models.Task, error)
	ListTasks(db *gorm.DB, userID uuid.UUID, filter TaskFilter) ([]models.Task, error)
	UpdateTask(db *gorm.DB, id uuid.UUID, patch TaskPatch) (models.Task, error)
	DeleteTask(db *gorm.DB, id uuid.UUID) error
}

type TaskServiceImpl struct{}

func NewTaskService() *TaskServiceImpl {
	return &TaskServiceImpl{}
}

// CreateTask stores the task and returns the persisted record, with
// the timestamps the store filled in.
func (s *TaskServiceImpl) CreateTask(db *gorm.DB, task models.Task) (models.Task, error) {
	if task.Status == "" {
		task.Status = models.StatusPending
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	if err := db.Create(&task).Error; err != nil {
		return models.Task{}, err
	}
	return task, nil
}

func (s *TaskServiceImpl) GetTaskByID(db *gorm.DB, id uuid.UUID) (models.Task, error) {
	var task models.Task
	err := db.First(&task, "id = ?", id).Error
	return task, err
}

func (s *TaskServiceImpl) ListTasks(db *gorm.DB, userID uuid.UUID, filter TaskFilter) ([]models.Task, error) {
	query := db.Where("user_id = ?", userID)

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(title) LIKE ?", pattern)
	}

	var tasks []models.Task
	err := query.Order("created_at DESC").Find(&tasks).Error
	return tasks, err
}

func (s *TaskServiceImpl) UpdateTask(db *gorm.DB, id uuid.UUID, patch TaskPatch) (models.Task, error) {
	var task models.Task
	if err := db.First(&task, "id = ?", id).Error; err != nil {
		return models.Task{}, err
	}

	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Status != nil {
		task.Status = *patch.Status
	}
	if patch.Priority != nil {
		task.Priority = *patch.Priority
	}
	task.UpdatedAt = time.Now()

	if err := db.Save(&task).Error; err != nil {
		return models.Task{}, err
	}

	return task, nil
}

func (s *TaskServiceImpl) DeleteTask(db *gorm.DB, id uuid.UUID) error {
	return db.Delete(&models.Task{}, "id = ?", id).Error
}
