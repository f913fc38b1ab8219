package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo"

	"github.com/fitlab/doorman/pkg/api/resource"
	"github.com/fitlab/doorman/pkg/storage"
)

func (h *Handler) handleFetchCommands(c echo.Context) error {
	m, err := h.store.Commands().FetchAll()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, resource.NewCommandList(m))
}

func (h *Handler) handleGetCommandByID(c echo.Context) error {
	idParam := c.Param("id")
	id, err := strconv.Atoi(idParam)
	if err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}

	m, err := h.store.Commands().FindByID(int32(id))
	if err != nil && err == storage.ErrNotFound {
		return c.JSON(http.StatusNotFound, err)
	} else if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, resource.NewCommand(m))
}
