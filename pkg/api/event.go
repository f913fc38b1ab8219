package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo"

	"github.com/fitlab/doorman/pkg/api/resource"
	"github.com/fitlab/doorman/pkg/storage"
)

func (h *Handler) handleFetchEvents(c echo.Context) error {
	m, err := h.store.Events().FetchAll()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, resource.NewEventList(m))
}

func (h *Handler) handleGetEventByID(c echo.Context) error {
	idParam := c.Param("id")
	id, err := strconv.Atoi(idParam)
	if err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}

	m, err := h.store.Events().FindByID(int32(id))
	if err != nil && err == storage.ErrNotFound {
		return c.JSON(http.StatusNotFound, err)
	} else if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, resource.NewEvent(m))
}
