package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fleetops/internal/domain"
	"fleetops/internal/repository"
)

// DriverHandler handles HTTP requests for drivers.
type DriverHandler struct {
	driverRepo repository.DriverRepository
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(driverRepo repository.DriverRepository) *DriverHandler {
	return &DriverHandler{driverRepo: driverRepo}
}

// RegisterDriverRequest is the HTTP request body for driver registration.
type RegisterDriverRequest struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	BondRequired string `json:"bond_required"`
}

// DriverResponse is the HTTP response for driver data.
type DriverResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Status       string `json:"status"`
	BondBalance  string `json:"bond_balance"`
	BondRequired string `json:"bond_required"`
}

func driverResponse(d *domain.Driver) DriverResponse {
	return DriverResponse{
		ID:           d.ID,
		Name:         d.Name,
		Phone:        d.Phone,
		Status:       string(d.Status),
		BondBalance:  d.BondBalance.String(),
		BondRequired: d.BondRequired.String(),
	}
}

// Register handles POST /v1/drivers/register
func (h *DriverHandler) Register(c *gin.Context) {
	var req RegisterDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.Name == "" || req.Phone == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "name and phone are required"})
		return
	}

	bondRequired := decimal.Zero
	if req.BondRequired != "" {
		var err error
		bondRequired, err = decimal.NewFromString(req.BondRequired)
		if err != nil || bondRequired.IsNegative() {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid bond_required"})
			return
		}
	}

	// Check if driver already exists
	existing, err := h.driverRepo.GetByPhone(c.Request.Context(), req.Phone)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		respondError(c, err)
		return
	}

	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{
			"message": "Driver already registered",
			"driver":  driverResponse(existing),
		})
		return
	}

	driver := &domain.Driver{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Phone:        req.Phone,
		Status:       domain.DriverStatusActive,
		BondBalance:  decimal.Zero,
		BondRequired: bondRequired,
		CreatedAt:    time.Now().UTC(),
	}

	if err := h.driverRepo.Create(c.Request.Context(), driver); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, driverResponse(driver))
}

// GetAll handles GET /v1/drivers
func (h *DriverHandler) GetAll(c *gin.Context) {
	drivers, err := h.driverRepo.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]DriverResponse, 0, len(drivers))
	for _, d := range drivers {
		response = append(response, driverResponse(d))
	}

	respondJSON(c, http.StatusOK, response)
}

// Get handles GET /v1/drivers/:id
func (h *DriverHandler) Get(c *gin.Context) {
	driver, err := h.driverRepo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, driverResponse(driver))
}
