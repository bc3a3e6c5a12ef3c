package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fleetops/internal/domain"
	"fleetops/internal/repository"
)

// UserHandler handles HTTP requests for operations users.
type UserHandler struct {
	userRepo repository.UserRepository
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userRepo repository.UserRepository) *UserHandler {
	return &UserHandler{userRepo: userRepo}
}

// RegisterUserRequest is the HTTP request body for user registration.
type RegisterUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UserResponse is the HTTP response for user data.
type UserResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Register handles POST /v1/users/register
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.Name == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "name is required"})
		return
	}

	user := &domain.User{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Email:     req.Email,
		CreatedAt: time.Now().UTC(),
	}

	if err := h.userRepo.Create(c.Request.Context(), user); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, UserResponse{ID: user.ID, Name: user.Name, Email: user.Email})
}

// GetAll handles GET /v1/users
func (h *UserHandler) GetAll(c *gin.Context) {
	users, err := h.userRepo.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]UserResponse, 0, len(users))
	for _, u := range users {
		response = append(response, UserResponse{ID: u.ID, Name: u.Name, Email: u.Email})
	}

	respondJSON(c, http.StatusOK, response)
}
