// Package web provides the HTTP handlers for the automation runtime API.
package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/pulsehq/pulse/pkg/engine"
	"github.com/pulsehq/pulse/pkg/models"
	"github.com/pulsehq/pulse/pkg/persistence"
	"github.com/pulsehq/pulse/pkg/services"
)

type APIHandlers struct {
	engine     *engine.Engine
	runService *services.Runs
	store      persistence.Persistence
	validator  *validator.Validate
}

func NewAPIHandlers(
	eng *engine.Engine,
	runService *services.Runs,
	store persistence.Persistence,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		engine:     eng,
		runService: runService,
		store:      store,
		validator:  validator,
	}
}

// ExecuteRun drives a run synchronously until it terminates or suspends.
// This is the invocation contract the serverless dispatch also uses: the
// same payload works from the queue worker and from plain HTTP.
func (h *APIHandlers) ExecuteRun(c fiber.Ctx) error {
	var req ExecuteRunRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.engine.Execute(c.Context(), engine.Request{
		RunID:            req.RunID,
		ResumeFromNodeID: req.ResumeFromNodeID,
	})
	if err != nil {
		if engine.IsRunNotFound(err) {
			return notFound(c, "Run not found")
		}

		return internalError(c, err)
	}

	return c.JSON(ExecuteRunResponse{
		Success:        result.Status != models.RunStatusFailed,
		RunID:          result.RunID,
		Status:         result.Status,
		StepsProcessed: result.StepsProcessed,
		Error:          result.Error,
	})
}

// CreateRun starts a run from a business event. Duplicate idempotency keys
// return the existing run with 200 instead of creating a second one.
func (h *APIHandlers) CreateRun(c fiber.Ctx) error {
	var req CreateRunRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	run, created, err := h.runService.Create(c.Context(), services.CreateRunRequest{
		WorkflowID:     req.WorkflowID,
		OrganizationID: req.OrganizationID,
		TriggerEvent:   req.TriggerEvent,
		Payload:        req.Payload,
		Contact:        req.Contact,
		IdempotencyKey: req.IdempotencyKey,
		MaxSteps:       req.MaxSteps,
	})
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return notFound(c, "Workflow not found")
		}

		if errors.Is(err, services.ErrWorkflowNotExecutable) {
			return conflict(c, err.Error())
		}

		return internalError(c, err)
	}

	status := fiber.StatusCreated
	if !created {
		status = fiber.StatusOK
	}

	return c.Status(status).JSON(TransformRunResponse(run))
}

func (h *APIHandlers) GetRun(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Run ID is required")
	}

	run, err := h.store.RunByID(c.Context(), id)
	if err != nil {
		if persistence.IsRunNotFound(err) {
			return notFound(c, "Run not found")
		}

		return internalError(c, err)
	}

	return c.JSON(TransformRunResponse(run))
}

func (h *APIHandlers) CancelRun(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Run ID is required")
	}

	run, err := h.runService.Cancel(c.Context(), id)
	if err != nil {
		if persistence.IsRunNotFound(err) {
			return notFound(c, "Run not found")
		}

		return internalError(c, err)
	}

	return c.JSON(TransformRunResponse(run))
}

// GetRunLogs returns a run's audit trail in insertion order.
func (h *APIHandlers) GetRunLogs(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Run ID is required")
	}

	if _, err := h.store.RunByID(c.Context(), id); err != nil {
		if persistence.IsRunNotFound(err) {
			return notFound(c, "Run not found")
		}

		return internalError(c, err)
	}

	entries, err := h.store.LogEntriesByRun(c.Context(), id)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"run_id": id,
		"logs":   entries,
	})
}

// GetSettings returns a tenant's automation policy, falling back to the
// permissive defaults when nothing is stored.
func (h *APIHandlers) GetSettings(c fiber.Ctx) error {
	organizationID := c.Params("organizationId")
	if organizationID == "" {
		return badRequest(c, "Organization ID is required")
	}

	settings, err := h.store.SettingsByOrganization(c.Context(), organizationID)
	if err != nil {
		if persistence.IsSettingsNotFound(err) {
			return c.JSON(models.DefaultAutomationSettings(organizationID))
		}

		return internalError(c, err)
	}

	return c.JSON(settings)
}

func (h *APIHandlers) UpdateSettings(c fiber.Ctx) error {
	organizationID := c.Params("organizationId")
	if organizationID == "" {
		return badRequest(c, "Organization ID is required")
	}

	var req UpdateSettingsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	settings := &models.AutomationSettings{
		OrganizationID: organizationID,
		BusinessHours:  req.BusinessHours,
		QuietHours:     req.QuietHours,
		RateLimits:     req.RateLimits,
		Sender:         req.Sender,
	}

	if err := h.validator.Struct(settings); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.store.SaveSettings(c.Context(), settings); err != nil {
		return internalError(c, err)
	}

	return c.JSON(settings)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	message := "Pulse API is healthy"
	httpStatus := http.StatusOK

	if err := h.store.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		message = "Pulse API is unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"message":   message,
		"timestamp": time.Now().UTC(),
	})
}
