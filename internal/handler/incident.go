package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"fleetops/internal/domain"
	"fleetops/internal/repository"
	"fleetops/internal/service"
)

// IncidentHandler handles HTTP requests for incidents.
type IncidentHandler struct {
	incidentService  *service.IncidentService
	deductionService *service.DeductionService
}

// NewIncidentHandler creates a new IncidentHandler.
func NewIncidentHandler(incidentService *service.IncidentService, deductionService *service.DeductionService) *IncidentHandler {
	return &IncidentHandler{
		incidentService:  incidentService,
		deductionService: deductionService,
	}
}

// CreateIncidentRequest is the HTTP request body for filing an incident.
type CreateIncidentRequest struct {
	DriverID            string `json:"driver_id"`
	ShiftID             string `json:"shift_id"`
	TripID              string `json:"trip_id"`
	AssetID             string `json:"asset_id"`
	Type                string `json:"type"`
	Severity            int    `json:"severity"`
	OccurredAt          string `json:"occurred_at"`
	Description         string `json:"description"`
	ThirdPartyName      string `json:"third_party_name"`
	ThirdPartyContact   string `json:"third_party_contact"`
	ThirdPartyPlate     string `json:"third_party_plate"`
	ThirdPartyInsurance string `json:"third_party_insurance"`
	Actor               string `json:"actor"`
}

// IncidentResponse is the HTTP response for incident data.
type IncidentResponse struct {
	ID               string   `json:"id"`
	IncidentNumber   string   `json:"incident_number"`
	DriverID         string   `json:"driver_id"`
	ShiftID          string   `json:"shift_id,omitempty"`
	TripID           string   `json:"trip_id,omitempty"`
	AssetID          string   `json:"asset_id,omitempty"`
	Type             string   `json:"type"`
	Severity         int      `json:"severity"`
	Status           string   `json:"status"`
	OccurredAt       string   `json:"occurred_at"`
	Description      string   `json:"description"`
	DeductibleAmount string   `json:"deductible_amount"`
	PhotoURLs        []string `json:"photo_urls,omitempty"`
	FootageURL       string   `json:"footage_url,omitempty"`
	SLADueAt         string   `json:"sla_due_at,omitempty"`
	SLABreached      bool     `json:"sla_breached"`
	AssignedToID     string   `json:"assigned_to_id,omitempty"`
	ResolvedByID     string   `json:"resolved_by_id,omitempty"`
	ResolutionNotes  string   `json:"resolution_notes,omitempty"`
	ResolvedAt       string   `json:"resolved_at,omitempty"`
	CreatedAt        string   `json:"created_at"`
}

func incidentResponse(i *domain.Incident) IncidentResponse {
	resp := IncidentResponse{
		ID:               i.ID,
		IncidentNumber:   i.IncidentNumber,
		DriverID:         i.DriverID,
		ShiftID:          i.ShiftID,
		TripID:           i.TripID,
		AssetID:          i.AssetID,
		Type:             string(i.Type),
		Severity:         i.Severity,
		Status:           string(i.Status),
		OccurredAt:       i.OccurredAt.Format(time.RFC3339),
		Description:      i.Description,
		DeductibleAmount: i.DeductibleAmount.String(),
		PhotoURLs:        i.PhotoURLs,
		FootageURL:       i.FootageURL,
		SLABreached:      i.SLABreached,
		AssignedToID:     i.AssignedToID,
		ResolvedByID:     i.ResolvedByID,
		ResolutionNotes:  i.ResolutionNotes,
		CreatedAt:        i.CreatedAt.Format(time.RFC3339),
	}
	if !i.SLADueAt.IsZero() {
		resp.SLADueAt = i.SLADueAt.Format(time.RFC3339)
	}
	if !i.ResolvedAt.IsZero() {
		resp.ResolvedAt = i.ResolvedAt.Format(time.RFC3339)
	}
	return resp
}

// Create handles POST /v1/incidents
func (h *IncidentHandler) Create(c *gin.Context) {
	var req CreateIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	var occurredAt time.Time
	if req.OccurredAt != "" {
		var err error
		occurredAt, err = time.Parse(time.RFC3339, req.OccurredAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid occurred_at"})
			return
		}
	}

	incident, err := h.deductionService.CreateIncident(c.Request.Context(), service.CreateIncidentRequest{
		DriverID:            req.DriverID,
		ShiftID:             req.ShiftID,
		TripID:              req.TripID,
		AssetID:             req.AssetID,
		Type:                domain.IncidentType(req.Type),
		Severity:            req.Severity,
		OccurredAt:          occurredAt,
		Description:         req.Description,
		ThirdPartyName:      req.ThirdPartyName,
		ThirdPartyContact:   req.ThirdPartyContact,
		ThirdPartyPlate:     req.ThirdPartyPlate,
		ThirdPartyInsurance: req.ThirdPartyInsurance,
		Actor:               req.Actor,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, incidentResponse(incident))
}

// Get handles GET /v1/incidents/:id
func (h *IncidentHandler) Get(c *gin.Context) {
	incident, err := h.incidentService.GetIncident(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, incidentResponse(incident))
}

// List handles GET /v1/incidents
func (h *IncidentHandler) List(c *gin.Context) {
	severity, _ := strconv.Atoi(c.Query("severity"))
	filter := repository.IncidentFilter{
		DriverID: c.Query("driver_id"),
		Type:     domain.IncidentType(c.Query("type")),
		Status:   domain.IncidentStatus(c.Query("status")),
		Severity: severity,
	}
	if from, err := time.Parse(time.RFC3339, c.Query("from")); err == nil {
		filter.From = from
	}
	if to, err := time.Parse(time.RFC3339, c.Query("to")); err == nil {
		filter.To = to
	}

	page, pageSize := pageParams(c)

	incidents, total, err := h.incidentService.ListIncidents(c.Request.Context(), filter, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]IncidentResponse, 0, len(incidents))
	for _, incident := range incidents {
		items = append(items, incidentResponse(incident))
	}

	respondJSON(c, http.StatusOK, PaginatedResponse{
		Items:    items,
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	})
}

// AssignRequest is the HTTP request body for assigning an incident.
type AssignRequest struct {
	UserID string `json:"user_id"`
	Actor  string `json:"actor"`
}

// Assign handles POST /v1/incidents/:id/assign
func (h *IncidentHandler) Assign(c *gin.Context) {
	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	incident, err := h.incidentService.Assign(c.Request.Context(), service.AssignRequest{
		IncidentID: c.Param("id"),
		UserID:     req.UserID,
		Actor:      req.Actor,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, incidentResponse(incident))
}

// EscalateRequest is the HTTP request body for escalating an incident.
type EscalateRequest struct {
	Reason string `json:"reason"`
	Actor  string `json:"actor"`
}

// Escalate handles POST /v1/incidents/:id/escalate
func (h *IncidentHandler) Escalate(c *gin.Context) {
	var req EscalateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	incident, err := h.incidentService.Escalate(c.Request.Context(), service.EscalateRequest{
		IncidentID: c.Param("id"),
		Actor:      req.Actor,
		Reason:     req.Reason,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, incidentResponse(incident))
}

// ResolveRequest is the HTTP request body for resolving an incident.
type ResolveRequest struct {
	Notes        string `json:"notes"`
	ResolvedByID string `json:"resolved_by_id"`
}

// Resolve handles POST /v1/incidents/:id/resolve
func (h *IncidentHandler) Resolve(c *gin.Context) {
	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	incident, err := h.incidentService.Resolve(c.Request.Context(), service.ResolveRequest{
		IncidentID:   c.Param("id"),
		Notes:        req.Notes,
		ResolvedByID: req.ResolvedByID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, incidentResponse(incident))
}

// EvidenceRequest is the HTTP request body for attaching evidence.
type EvidenceRequest struct {
	PhotoURLs  []string `json:"photo_urls"`
	FootageURL string   `json:"footage_url"`
	Actor      string   `json:"actor"`
}

// AddEvidence handles POST /v1/incidents/:id/evidence
func (h *IncidentHandler) AddEvidence(c *gin.Context) {
	var req EvidenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	incident, err := h.incidentService.AddEvidence(c.Request.Context(), service.EvidenceRequest{
		IncidentID: c.Param("id"),
		PhotoURLs:  req.PhotoURLs,
		FootageURL: req.FootageURL,
		Actor:      req.Actor,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, incidentResponse(incident))
}

// ProcessDeductionRequest is the HTTP request body for the monitoring
// deduction path.
type ProcessDeductionRequest struct {
	DriverID string `json:"driver_id"`
	Type     string `json:"type"`
	Actor    string `json:"actor"`
}

// ProcessDeduction handles POST /v1/incidents/:id/deduction
func (h *IncidentHandler) ProcessDeduction(c *gin.Context) {
	var req ProcessDeductionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	tx, err := h.deductionService.ProcessIncidentDeduction(
		c.Request.Context(),
		req.DriverID,
		c.Param("id"),
		domain.IncidentType(req.Type),
		req.Actor,
	)
	if err != nil {
		respondError(c, err)
		return
	}

	if tx == nil {
		// No deduction configured for this incident type.
		c.Status(http.StatusNoContent)
		return
	}

	respondJSON(c, http.StatusCreated, transactionResponse(tx))
}

// Activities handles GET /v1/incidents/:id/activities
func (h *IncidentHandler) Activities(c *gin.Context) {
	activities, err := h.incidentService.ListActivities(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	type activityResponse struct {
		ID           string `json:"id"`
		ActivityType string `json:"activity_type"`
		Description  string `json:"description"`
		OldValue     string `json:"old_value,omitempty"`
		NewValue     string `json:"new_value,omitempty"`
		CreatedByID  string `json:"created_by_id,omitempty"`
		CreatedAt    string `json:"created_at"`
	}

	items := make([]activityResponse, 0, len(activities))
	for _, a := range activities {
		items = append(items, activityResponse{
			ID:           a.ID,
			ActivityType: string(a.ActivityType),
			Description:  a.Description,
			OldValue:     a.OldValue,
			NewValue:     a.NewValue,
			CreatedByID:  a.CreatedByID,
			CreatedAt:    a.CreatedAt.Format(time.RFC3339),
		})
	}

	respondJSON(c, http.StatusOK, items)
}
