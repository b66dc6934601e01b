package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dreamic/permission-tracker/internal/domain"
	"github.com/dreamic/permission-tracker/internal/observability"
	"github.com/dreamic/permission-tracker/internal/ratelimit"
	"github.com/dreamic/permission-tracker/internal/repository"
	"github.com/dreamic/permission-tracker/internal/service"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
)

// PermissionService is the slice of the service layer the handler needs.
type PermissionService interface {
	RecordDenial(ctx context.Context, installID string, permanent bool) (*domain.NotificationDenialInfo, error)
	RecordBlockedRequest(ctx context.Context, installID string) (*domain.NotificationDenialInfo, error)
	RecordSettingsPrompt(ctx context.Context, installID string, openedSettings bool) (*domain.GoToSettingsPromptInfo, error)
	MarkGranted(ctx context.Context, installID string) error
	GetState(ctx context.Context, installID string) (*service.PermissionState, error)
	ClearDenialInfo(ctx context.Context, installID string) error
	ClearSettingsPromptInfo(ctx context.Context, installID string) error
	ShouldShowReminder(ctx context.Context, installID string, intervalDays int) (bool, int, error)
	TouchReminder(ctx context.Context, installID string) error
}

// EventLister is the audit-trail read surface, satisfied by the gorm repo.
type EventLister interface {
	ListByInstall(ctx context.Context, params repository.ListParams) ([]domain.PermissionEvent, int64, error)
	CountByType(ctx context.Context, installID string) ([]repository.TypeCount, error)
}

type PermissionHandler struct {
	service PermissionService
	events  EventLister
}

func NewPermissionHandler(service PermissionService, events EventLister) (*PermissionHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("permission service is required")
	}
	if events == nil {
		return nil, fmt.Errorf("event lister is required")
	}
	return &PermissionHandler{service: service, events: events}, nil
}

func RegisterPermissionRoutes(
	router fiber.Router,
	svc PermissionService,
	events EventLister,
	limiter ratelimit.RateLimiter,
	metrics *observability.Metrics,
) error {
	h, err := NewPermissionHandler(svc, events)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	installs := v1.Group("/installs/:installId")

	permission := installs.Group("/permission")
	permission.Get("", h.GetState)
	permission.Post("/denials", recordRateLimit(limiter, metrics), h.RecordDenial)
	permission.Post("/blocked-requests", recordRateLimit(limiter, metrics), h.RecordBlockedRequest)
	permission.Post("/settings-prompts", recordRateLimit(limiter, metrics), h.RecordSettingsPrompt)
	permission.Delete("/denials", h.ClearDenialInfo)
	permission.Delete("/settings-prompts", h.ClearSettingsPromptInfo)
	permission.Post("/granted", h.MarkGranted)
	permission.Get("/reminder", h.GetReminder)
	permission.Post("/reminder", h.TouchReminder)

	installs.Get("/events", h.ListEvents)
	installs.Get("/events/counts", h.CountEvents)

	return nil
}

// CorrelationMiddleware tags each request with a correlation id, preferring
// the caller-supplied X-Request-ID header.
func CorrelationMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		correlationID := strings.TrimSpace(c.Get(fiber.HeaderXRequestID))
		if correlationID == "" {
			correlationID = uuid.NewString()
		}

		c.SetUserContext(observability.WithCorrelationID(c.UserContext(), correlationID))
		c.Set(fiber.HeaderXRequestID, correlationID)
		return c.Next()
	}
}

func recordRateLimit(limiter ratelimit.RateLimiter, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if limiter == nil {
			return c.Next()
		}

		allowed, err := limiter.Allow(c.UserContext(), c.Params("installId"))
		if err != nil {
			// Fail open: the limiter protects against abuse, it must not
			// take recording down with Redis.
			return c.Next()
		}
		if !allowed {
			metrics.IncRateLimited()
			return fiber.NewError(fiber.StatusTooManyRequests, "rate limit exceeded")
		}
		return c.Next()
	}
}

type recordDenialRequest struct {
	Permanent bool `json:"permanent"`
}

type recordSettingsPromptRequest struct {
	OpenedSettings bool `json:"openedSettings"`
}

type denialInfoResponse struct {
	LastDenialTime         *time.Time `json:"lastDenialTime,omitempty"`
	DenialCount            int        `json:"denialCount"`
	IsPermanent            bool       `json:"isPermanent"`
	RequestAttemptCount    int        `json:"requestAttemptCount"`
	LastRequestAttemptTime *time.Time `json:"lastRequestAttemptTime,omitempty"`
	LastRequestWasBlocked  bool       `json:"lastRequestWasBlocked"`
}

type settingsPromptResponse struct {
	LastPromptTime            time.Time `json:"lastPromptTime"`
	PromptCount               int       `json:"promptCount"`
	LastActionWasOpenSettings bool      `json:"lastActionWasOpenSettings"`
}

type stateResponse struct {
	InstallID             string                  `json:"installId"`
	DenialInfo            *denialInfoResponse     `json:"denialInfo,omitempty"`
	SettingsPromptInfo    *settingsPromptResponse `json:"settingsPromptInfo,omitempty"`
	HasRequested          bool                    `json:"hasRequested"`
	CanRequestPermission  bool                    `json:"canRequestPermission"`
	CanShowSettingsPrompt bool                    `json:"canShowSettingsPrompt"`
}

type reminderResponse struct {
	Due          bool `json:"due"`
	IntervalDays int  `json:"intervalDays"`
}

type eventResponse struct {
	EventID             string    `json:"eventId"`
	CorrelationID       string    `json:"correlationId,omitempty"`
	Type                string    `json:"type"`
	Permanent           *bool     `json:"permanent,omitempty"`
	OpenedSettings      *bool     `json:"openedSettings,omitempty"`
	DenialCount         int       `json:"denialCount"`
	RequestAttemptCount int       `json:"requestAttemptCount"`
	OccurredAt          time.Time `json:"occurredAt"`
}

type listEventsResponse struct {
	Data []eventResponse `json:"data"`
	Meta listMeta        `json:"meta"`
}

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

type eventTypeCount struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}

type eventCountsResponse struct {
	Data []eventTypeCount `json:"data"`
}

func (h *PermissionHandler) GetState(c *fiber.Ctx) error {
	state, err := h.service.GetState(c.UserContext(), c.Params("installId"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusOK).JSON(toStateResponse(state))
}

func (h *PermissionHandler) RecordDenial(c *fiber.Ctx) error {
	var req recordDenialRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	info, err := h.service.RecordDenial(c.UserContext(), c.Params("installId"), req.Permanent)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(toDenialInfoResponse(info))
}

func (h *PermissionHandler) RecordBlockedRequest(c *fiber.Ctx) error {
	info, err := h.service.RecordBlockedRequest(c.UserContext(), c.Params("installId"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(toDenialInfoResponse(info))
}

func (h *PermissionHandler) RecordSettingsPrompt(c *fiber.Ctx) error {
	var req recordSettingsPromptRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	info, err := h.service.RecordSettingsPrompt(c.UserContext(), c.Params("installId"), req.OpenedSettings)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(toSettingsPromptResponse(info))
}

func (h *PermissionHandler) ClearDenialInfo(c *fiber.Ctx) error {
	if err := h.service.ClearDenialInfo(c.UserContext(), c.Params("installId")); err != nil {
		return toHTTPError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *PermissionHandler) ClearSettingsPromptInfo(c *fiber.Ctx) error {
	if err := h.service.ClearSettingsPromptInfo(c.UserContext(), c.Params("installId")); err != nil {
		return toHTTPError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *PermissionHandler) MarkGranted(c *fiber.Ctx) error {
	if err := h.service.MarkGranted(c.UserContext(), c.Params("installId")); err != nil {
		return toHTTPError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *PermissionHandler) GetReminder(c *fiber.Ctx) error {
	intervalDays := c.QueryInt("intervalDays", 0)
	if intervalDays < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "intervalDays must not be negative")
	}

	due, effectiveDays, err := h.service.ShouldShowReminder(c.UserContext(), c.Params("installId"), intervalDays)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusOK).JSON(reminderResponse{Due: due, IntervalDays: effectiveDays})
}

func (h *PermissionHandler) TouchReminder(c *fiber.Ctx) error {
	if err := h.service.TouchReminder(c.UserContext(), c.Params("installId")); err != nil {
		return toHTTPError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *PermissionHandler) ListEvents(c *fiber.Ctx) error {
	params := repository.ListParams{
		InstallID: c.Params("installId"),
		Page:      c.QueryInt("page", defaultPage),
		PageSize:  c.QueryInt("pageSize", defaultPageSize),
	}

	if rawType := strings.TrimSpace(c.Query("type")); rawType != "" {
		eventType, err := domain.ParseEventTypeFromString(rawType)
		if err != nil {
			return toHTTPError(err)
		}
		params.Type = &eventType
	}

	if rawFrom := strings.TrimSpace(c.Query("from")); rawFrom != "" {
		from, err := parseTimeParam(rawFrom)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid from timestamp")
		}
		params.From = &from
	}
	if rawTo := strings.TrimSpace(c.Query("to")); rawTo != "" {
		to, err := parseTimeParam(rawTo)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid to timestamp")
		}
		params.To = &to
	}

	eventsList, total, err := h.events.ListByInstall(c.UserContext(), params)
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]eventResponse, 0, len(eventsList))
	for i := range eventsList {
		data = append(data, toEventResponse(&eventsList[i]))
	}

	return c.Status(fiber.StatusOK).JSON(listEventsResponse{
		Data: data,
		Meta: listMeta{
			Page:     max(params.Page, 1),
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

func (h *PermissionHandler) CountEvents(c *fiber.Ctx) error {
	counts, err := h.events.CountByType(c.UserContext(), c.Params("installId"))
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]eventTypeCount, 0, len(counts))
	for _, count := range counts {
		data = append(data, eventTypeCount{Type: count.EventType.String(), Count: count.Count})
	}
	return c.Status(fiber.StatusOK).JSON(eventCountsResponse{Data: data})
}

func parseTimeParam(raw string) (time.Time, error) {
	if millis, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(millis).UTC(), nil
	}
	return time.Parse(time.RFC3339, raw)
}

func toStateResponse(state *service.PermissionState) stateResponse {
	if state == nil {
		return stateResponse{}
	}

	return stateResponse{
		InstallID:             state.InstallID,
		DenialInfo:            toDenialInfoResponse(state.DenialInfo),
		SettingsPromptInfo:    toSettingsPromptResponse(state.SettingsPromptInfo),
		HasRequested:          state.HasRequested,
		CanRequestPermission:  state.CanRequestPermission,
		CanShowSettingsPrompt: state.CanShowSettingsPrompt,
	}
}

func toDenialInfoResponse(info *domain.NotificationDenialInfo) *denialInfoResponse {
	if info == nil {
		return nil
	}

	resp := &denialInfoResponse{
		DenialCount:            info.DenialCount,
		IsPermanent:            info.IsPermanent,
		RequestAttemptCount:    info.RequestAttemptCount,
		LastRequestAttemptTime: info.LastRequestAttemptTime,
		LastRequestWasBlocked:  info.LastRequestWasBlocked,
	}
	if !info.LastDenialTime.IsZero() {
		lastDenial := info.LastDenialTime
		resp.LastDenialTime = &lastDenial
	}
	return resp
}

func toSettingsPromptResponse(info *domain.GoToSettingsPromptInfo) *settingsPromptResponse {
	if info == nil {
		return nil
	}

	return &settingsPromptResponse{
		LastPromptTime:            info.LastPromptTime,
		PromptCount:               info.PromptCount,
		LastActionWasOpenSettings: info.LastActionWasOpenSettings,
	}
}

func toEventResponse(e *domain.PermissionEvent) eventResponse {
	if e == nil {
		return eventResponse{}
	}

	return eventResponse{
		EventID:             e.EventID,
		CorrelationID:       e.CorrelationID,
		Type:                e.Type.String(),
		Permanent:           e.Permanent,
		OpenedSettings:      e.OpenedSettings,
		DenialCount:         e.DenialCount,
		RequestAttemptCount: e.RequestAttemptCount,
		OccurredAt:          e.OccurredAt,
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
