package handlers

import (
	"errors"
	"log"
	"net/http"

	"task-tracker/server/internal/middleware"
	"task-tracker/server/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type UserHandler struct {
	db          *gorm.DB
	userService services.UserService
}

func NewUserHandler(db *gorm.DB, userService services.UserService) *UserHandler {
	return &UserHandler{db: db, userService: userService}
}

type updateProfileRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		respondFail(c, http.StatusUnauthorized, "Not authenticated")
		return
	}

	user, err := h.userService.GetUserProfile(h.db, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondFail(c, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("get profile failed: %v", err)
		respondInternal(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": "success", "user": user.Public()})
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		respondFail(c, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	update := services.ProfileUpdate{Name: &req.Name, Email: &req.Email}

	user, err := h.userService.UpdateUserProfile(h.db, userID, update)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmailTaken):
			respondFail(c, http.StatusBadRequest, "Email already in use")
		case errors.Is(err, gorm.ErrRecordNotFound):
			respondFail(c, http.StatusNotFound, "User not found")
		default:
			log.Printf("update profile failed: %v", err)
			respondInternal(c)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": "success", "user": user.Public()})
}
