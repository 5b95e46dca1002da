package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"helphand/internal/usecase"
	"helphand/pkg/errors"
	"helphand/pkg/response"
	"helphand/pkg/utils"
)

type RequestHandler struct {
	requestUseCase *usecase.RequestUseCase
	chatUseCase    *usecase.ChatUseCase
}

func NewRequestHandler(requestUseCase *usecase.RequestUseCase, chatUseCase *usecase.ChatUseCase) *RequestHandler {
	return &RequestHandler{
		requestUseCase: requestUseCase,
		chatUseCase:    chatUseCase,
	}
}

type createRequestRequest struct {
	Category      string `json:"category" validate:"required"`
	Description   string `json:"description" validate:"required,max=1000"`
	EstimatedTime int    `json:"estimated_time" validate:"required,oneof=10 15 30 60"`
}

func (h *RequestHandler) Create(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req createRequestRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	created, err := h.requestUseCase.Create(c.Request().Context(), uid, usecase.CreateRequestInput{
		Category:      req.Category,
		Description:   req.Description,
		EstimatedTime: req.EstimatedTime,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, created)
}

// Browse lists open and in-progress requests, filtered by the "category" and
// "max_time" query parameters and paged by "page" and "limit".
func (h *RequestHandler) Browse(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return response.Error(c, err)
	}

	filter := usecase.BrowseFilter{Category: c.QueryParam("category")}
	if raw := c.QueryParam("max_time"); raw != "" {
		maxTime, err := strconv.Atoi(raw)
		if err != nil || maxTime <= 0 {
			return response.Error(c, errors.BadRequest("max_time must be a positive number of minutes", err))
		}
		filter.MaxEstimatedTime = maxTime
	}

	result, err := h.requestUseCase.Browse(c.Request().Context(), uid, filter)
	if err != nil {
		return response.Error(c, err)
	}

	page := utils.GetPaginationParams(c)
	start, end := page.Window(len(result.Requests))

	return response.Success(c, map[string]interface{}{
		"items":    result.Requests[start:end],
		"total":    len(result.Requests),
		"page":     page.Page,
		"limit":    page.PageSize,
		"advisory": result.Advisory,
	})
}

func (h *RequestHandler) ListMine(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return response.Error(c, err)
	}

	requests, err := h.requestUseCase.ListMine(c.Request().Context(), uid)
	if err != nil {
		return response.Error(c, err)
	}

	return response.List(c, requests, len(requests))
}

func (h *RequestHandler) Get(c echo.Context) error {
	req, err := h.requestUseCase.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, req)
}

// Claim offers help on a request and opens the chat with its requester. A
// repeat claim by the same helper returns the existing chat.
func (h *RequestHandler) Claim(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return response.Error(c, err)
	}

	result, err := h.chatUseCase.OpenOrCreate(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return response.Error(c, err)
	}

	if result.Created {
		return response.Created(c, result)
	}
	return response.Success(c, result)
}
