package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/bondarys/entitycore"
	"github.com/bondarys/entitycore/internal/domain"
	"github.com/bondarys/entitycore/internal/present/rest/presenter"
	"github.com/bondarys/entitycore/internal/usecase"
)

// EventStreamer feeds entity lifecycle events for the requested type names
// until ctx is done.
type EventStreamer interface {
	Realtime(ctx context.Context, input <-chan []string, output chan<- entitycore.Event)
}

type Handler struct {
	types    *usecase.TypeUsecase
	entities *usecase.EntityUsecase
	query    *usecase.QueryUsecase
	events   EventStreamer
}

func NewHandler(
	types *usecase.TypeUsecase,
	entities *usecase.EntityUsecase,
	query *usecase.QueryUsecase,
	events EventStreamer,
) *Handler {
	return &Handler{
		types:    types,
		entities: entities,
		query:    query,
		events:   events,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/v1/types", h.handleListTypes)
	e.POST("/api/v1/types", h.handleCreateType)
	e.GET("/api/v1/types/:name", h.handleGetType)
	e.PUT("/api/v1/types/:id", h.handleUpdateType)
	e.DELETE("/api/v1/types/:id", h.handleDeleteType)
	e.POST("/api/v1/collections/:type/entities", h.handleCreateEntity)
	e.GET("/api/v1/collections/:type", h.handleQuery)
	e.GET("/api/v1/collections/:type/search", h.handleSearch)
	e.GET("/api/v1/entities/:id", h.handleGetEntity)
	e.PATCH("/api/v1/entities/:id", h.handleUpdateEntity)
	e.DELETE("/api/v1/entities/:id", h.handleDeleteEntity)
	e.GET("/realtime", h.handleRealtime)
}

// fail maps the store's error taxonomy onto status codes.
func fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return presenter.BadRequest(c, err)
	case errors.Is(err, domain.ErrUnknownType):
		return presenter.NotFound(c, err.Error())
	case errors.Is(err, domain.ErrProtectedType):
		return presenter.Forbidden(c, err)
	case errors.Is(err, domain.ErrInvalidReference):
		return presenter.UnprocessableEntity(c, err)
	case errors.Is(err, domain.ErrNotFound):
		return presenter.NotFound(c, err.Error())
	default:
		return presenter.InternalError(c, err)
	}
}

func optionalParam(c echo.Context, name string) *string {
	v := c.QueryParam(name)
	if v == "" {
		return nil
	}
	return &v
}

func (h *Handler) handleListTypes(c echo.Context) error {
	ctx := c.Request().Context()

	types, err := h.types.List(ctx, optionalParam(c, "applicationId"))
	if err != nil {
		return fail(c, err)
	}
	return presenter.OK(c, types)
}

func (h *Handler) handleCreateType(c echo.Context) error {
	ctx := c.Request().Context()

	var input entitycore.CreateTypeInput
	if err := c.Bind(&input); err != nil {
		return presenter.BadRequest(c, err)
	}

	typ, err := h.types.Create(ctx, input)
	if err != nil {
		return fail(c, err)
	}
	return presenter.Created(c, typ)
}

func (h *Handler) handleGetType(c echo.Context) error {
	ctx := c.Request().Context()

	typ, err := h.types.Get(ctx, c.Param("name"))
	if err != nil {
		return fail(c, err)
	}
	if typ == nil {
		return presenter.NotFound(c, "entity type not found")
	}
	return presenter.OK(c, typ)
}

func (h *Handler) handleUpdateType(c echo.Context) error {
	ctx := c.Request().Context()

	var input entitycore.UpdateTypeInput
	if err := c.Bind(&input); err != nil {
		return presenter.BadRequest(c, err)
	}

	typ, err := h.types.Update(ctx, c.Param("id"), input)
	if err != nil {
		return fail(c, err)
	}
	if typ == nil {
		return presenter.NotFound(c, "entity type not found")
	}
	return presenter.OK(c, typ)
}

func (h *Handler) handleDeleteType(c echo.Context) error {
	ctx := c.Request().Context()

	deleted, err := h.types.Delete(ctx, c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	if !deleted {
		return presenter.NotFound(c, "entity type not found")
	}
	return presenter.OK(c, echo.Map{"status": "ok"})
}

func (h *Handler) handleCreateEntity(c echo.Context) error {
	ctx := c.Request().Context()

	var input entitycore.CreateEntityInput
	if err := c.Bind(&input); err != nil {
		return presenter.BadRequest(c, err)
	}

	entity, err := h.entities.Create(ctx, c.Param("type"), input)
	if err != nil {
		return fail(c, err)
	}
	return presenter.Created(c, entity)
}

func (h *Handler) handleGetEntity(c echo.Context) error {
	ctx := c.Request().Context()

	entity, err := h.entities.Get(ctx, c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	if entity == nil {
		return presenter.NotFound(c, "entity not found")
	}
	return presenter.OK(c, entity)
}

func (h *Handler) handleUpdateEntity(c echo.Context) error {
	ctx := c.Request().Context()

	var input entitycore.UpdateEntityInput
	if err := c.Bind(&input); err != nil {
		return presenter.BadRequest(c, err)
	}

	entity, err := h.entities.Update(ctx, c.Param("id"), input)
	if err != nil {
		return fail(c, err)
	}
	if entity == nil {
		return presenter.NotFound(c, "entity not found")
	}
	return presenter.OK(c, entity)
}

func (h *Handler) handleDeleteEntity(c echo.Context) error {
	ctx := c.Request().Context()

	hard := c.QueryParam("hard") == "true"

	deleted, err := h.entities.Delete(ctx, c.Param("id"), hard)
	if err != nil {
		return fail(c, err)
	}
	if !deleted {
		return presenter.NotFound(c, "entity not found")
	}
	return presenter.OK(c, echo.Map{"status": "ok"})
}

func (h *Handler) handleQuery(c echo.Context) error {
	ctx := c.Request().Context()

	opts := entitycore.QueryOptions{
		ApplicationID: optionalParam(c, "applicationId"),
		OwnerID:       optionalParam(c, "ownerId"),
		Status:        optionalParam(c, "status"),
		OrderBy:       c.QueryParam("orderBy"),
		OrderDir:      c.QueryParam("orderDir"),
	}

	if pageStr := c.QueryParam("page"); pageStr != "" {
		page, err := strconv.Atoi(pageStr)
		if err != nil {
			return presenter.BadRequestMessage(c, "invalid page parameter")
		}
		opts.Page = page
	}
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return presenter.BadRequestMessage(c, "invalid limit parameter")
		}
		opts.Limit = limit
	}

	result, err := h.query.Query(ctx, c.Param("type"), opts)
	if err != nil {
		return fail(c, err)
	}
	return presenter.OK(c, result)
}

func (h *Handler) handleSearch(c echo.Context) error {
	ctx := c.Request().Context()

	term := c.QueryParam("q")
	if term == "" {
		return presenter.BadRequestMessage(c, "q parameter is required")
	}

	opts := entitycore.SearchOptions{
		ApplicationID: optionalParam(c, "applicationId"),
	}
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return presenter.BadRequestMessage(c, "invalid limit parameter")
		}
		opts.Limit = limit
	}

	entities, err := h.query.Search(ctx, c.Param("type"), term, opts)
	if err != nil {
		return fail(c, err)
	}
	return presenter.OK(c, entities)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type realtimeRequest struct {
	Type  string   `json:"type"`
	Types []string `json:"types"`
}

func (h *Handler) handleRealtime(c echo.Context) error {
	if h.events == nil {
		return presenter.ServiceUnavailable(c, "realtime events are not configured")
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"Failed to upgrade WebSocket",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return err
	}
	defer func() {
		ws.Close()
	}()

	ctx := c.Request().Context()

	// The event stream stops on its own when the request context is
	// canceled, so input is never closed here. done tells the reader the
	// writer is gone; quit is buffered so the reader never blocks on it.
	input := make(chan []string)
	output := make(chan entitycore.Event)

	go h.events.Realtime(ctx, input, output)

	quit := make(chan struct{}, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			var req realtimeRequest
			err := ws.ReadJSON(&req)
			if err != nil {

				wsErr, ok := err.(*websocket.CloseError)
				if ok {
					if !(wsErr.Code == websocket.CloseNormalClosure || wsErr.Code == websocket.CloseGoingAway) {
						slog.DebugContext(
							ctx, "WebSocket closed",
							slog.String("error", wsErr.Error()),
							slog.String("module", "socket"),
						)
					}
				} else {
					slog.ErrorContext(
						ctx, "Error reading message",
						slog.String("error", err.Error()),
						slog.String("module", "socket"),
					)
				}

				quit <- struct{}{}
				break
			}

			switch req.Type {
			case "listen":
				select {
				case input <- req.Types:
				case <-done:
					return
				}
			case "h": // heartbeat
				// do nothing
			default:
				slog.InfoContext(
					ctx, "Unknown request type",
					slog.String("type", req.Type),
					slog.String("module", "socket"),
				)
			}
		}
	}()

	for {
		select {
		case <-quit:
			return nil
		case ev := <-output:
			err := ws.WriteJSON(ev)
			if err != nil {
				slog.ErrorContext(
					ctx, "Error writing message",
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
				return nil
			}
		}
	}
}
