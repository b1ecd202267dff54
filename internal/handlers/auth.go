package handlers

import (
	"errors"
	"log"
	"net/http"

	"task-tracker/server/internal/middleware"
	"task-tracker/server/internal/services"
	"task-tracker/server/internal/worker"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AuthHandler struct {
	db              *gorm.DB
	authService     services.AuthService
	registerService services.RegisterService
	userService     services.UserService
	tokens          *services.TokenService
	jobs            *worker.JobQueue
}

func NewAuthHandler(db *gorm.DB, authService services.AuthService, registerService services.RegisterService, userService services.UserService, tokens *services.TokenService, jobs *worker.JobQueue) *AuthHandler {
	return &AuthHandler{
		db:              db,
		authService:     authService,
		registerService: registerService,
		userService:     userService,
		tokens:          tokens,
		jobs:            jobs,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// authUserPayload is the slim user shape returned alongside a token.
type authUserPayload struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req services.RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	user, err := h.registerService.RegisterUser(h.db, req)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			respondFail(c, http.StatusBadRequest, "User already exists")
			return
		}
		log.Printf("signup failed: %v", err)
		respondInternal(c)
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		log.Printf("token issue failed: %v", err)
		respondInternal(c)
		return
	}

	if h.jobs != nil {
		h.jobs.Enqueue("notifications", worker.JobTypeWelcomeEmail, map[string]interface{}{
			"user_id": user.ID.String(),
			"email":   user.Email,
			"name":    user.Name,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"result": "success",
		"token":  token,
		"user":   authUserPayload{ID: user.ID.String(), Name: user.Name, Email: user.Email},
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	user, err := h.authService.AuthenticateUser(h.db, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			respondFail(c, http.StatusBadRequest, "Invalid Credentials")
			return
		}
		log.Printf("login failed: %v", err)
		respondInternal(c)
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		log.Printf("token issue failed: %v", err)
		respondInternal(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"result": "success",
		"token":  token,
		"user":   authUserPayload{ID: user.ID.String(), Name: user.Name, Email: user.Email},
	})
}

// CurrentUser returns the authenticated user's record, password hash
// excluded.
func (h *AuthHandler) CurrentUser(c *gin.Context) {
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
		log.Printf("get current user failed: %v", err)
		respondInternal(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": "success", "user": user.Public()})
}
