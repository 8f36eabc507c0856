package resource

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/records/internal/platform/schema"
	"github.com/ehr/records/internal/platform/store"
)

type Handler struct {
	mod *Module
}

func NewHandler(mod *Module) *Handler {
	return &Handler{mod: mod}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group(h.mod.def.Path)
	g.GET("", h.List)
	g.GET("/count", h.Count)
	g.GET("/search", h.Search)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)

	// Placeholder sub-resources
	g.GET("/:id/history", h.History)
	g.POST("/:id/notes", h.AddNote)
	g.GET("/:id/related", h.Related)

	for _, t := range h.mod.def.Transitions {
		g.PATCH("/:id/"+t.Name, h.transition(t))
	}
}

func (h *Handler) List(c echo.Context) error {
	records, err := h.mod.List(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, records)
}

func (h *Handler) Count(c echo.Context) error {
	n, err := h.mod.Count(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"count": n})
}

func (h *Handler) Search(c echo.Context) error {
	records, err := h.mod.Search(c.Request().Context(), c.QueryParams())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, records)
}

func (h *Handler) Get(c echo.Context) error {
	r, err := h.mod.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) Create(c echo.Context) error {
	body, err := decodeBody(c)
	if err != nil {
		return err
	}
	r, err := h.mod.Create(c.Request().Context(), body)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) Update(c echo.Context) error {
	body, err := decodeBody(c)
	if err != nil {
		return err
	}
	r, err := h.mod.Update(c.Request().Context(), c.Param("id"), body)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) Delete(c echo.Context) error {
	if err := h.mod.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) transition(t Transition) echo.HandlerFunc {
	return func(c echo.Context) error {
		r, err := h.mod.Transition(c.Request().Context(), c.Param("id"), t.Set)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, r)
	}
}

func (h *Handler) History(c echo.Context) error {
	return c.JSON(http.StatusOK, h.mod.History(c.Request().Context(), c.Param("id")))
}

// AddNote acknowledges any payload. An unreadable body is passed on as {}.
func (h *Handler) AddNote(c echo.Context) error {
	body, err := decodeBody(c)
	if err != nil {
		body = map[string]any{}
	}
	return c.JSON(http.StatusOK, h.mod.AddNote(c.Request().Context(), c.Param("id"), body))
}

func (h *Handler) Related(c echo.Context) error {
	return c.JSON(http.StatusOK, h.mod.Related(c.Request().Context(), c.Param("id")))
}

// decodeBody reads a JSON object, keeping numbers as json.Number so integer
// fields are not rounded through float64. An empty body decodes to {};
// anything after the object is rejected.
func decodeBody(c echo.Context) (map[string]any, error) {
	data, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid request body").SetInternal(err)
	}
	body := map[string]any{}
	if len(bytes.TrimSpace(data)) == 0 {
		return body, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil || body == nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid request body").SetInternal(err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid request body").SetInternal(err)
	}
	return body, nil
}

type validationResponse struct {
	Error   string              `json:"error"`
	Details []schema.FieldError `json:"details"`
}

// fail maps an operation error to its HTTP response.
func fail(c echo.Context, err error) error {
	var verr *schema.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, validationResponse{Error: "validation_error", Details: verr.Errors})
	case errors.Is(err, store.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not_found")
	case errors.Is(err, store.ErrUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "store_unavailable").SetInternal(err)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
	}
}
