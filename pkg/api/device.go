package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo"

	"github.com/fitlab/doorman/pkg/api/resource"
	"github.com/fitlab/doorman/pkg/storage"
)

func (h *Handler) handleFetchDevices(c echo.Context) error {
	m, err := h.store.Devices().FetchAll()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, resource.NewDeviceList(m))
}

func (h *Handler) handleGetDeviceByID(c echo.Context) error {
	idParam := c.Param("id")
	id, err := strconv.Atoi(idParam)
	if err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}

	m, err := h.store.Devices().FindByID(int32(id))
	if err != nil && err == storage.ErrNotFound {
		return c.JSON(http.StatusNotFound, err)
	} else if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, resource.NewDevice(m))
}

func (h *Handler) handleCreateDevice(c echo.Context) error {
	r := &resource.DeviceResource{}
	if err := c.Bind(r); err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}

	m, err := resource.ValidateDevice(r)
	if err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}

	err = h.store.Devices().Create(m)
	if err == storage.ErrNotUnique {
		return c.JSON(http.StatusConflict, err)
	} else if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusCreated, resource.NewDevice(m))
}

// handleResyncDevice schedules a full token replay for the device. The
// resync itself runs asynchronously; its outcome lands on the device row.
func (h *Handler) handleResyncDevice(c echo.Context) error {
	idParam := c.Param("id")
	id, err := strconv.Atoi(idParam)
	if err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}

	m, err := h.store.Devices().FindByID(int32(id))
	if err != nil && err == storage.ErrNotFound {
		return c.JSON(http.StatusNotFound, err)
	} else if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	h.resync(m.ID, "admin")

	return c.JSON(http.StatusAccepted, resource.NewDevice(m))
}

func (h *Handler) handleFetchDeviceCommands(c echo.Context) error {
	idParam := c.Param("id")
	id, err := strconv.Atoi(idParam)
	if err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}

	models, err := h.store.Commands().FetchByDeviceID(int32(id))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, resource.NewCommandSlice(models))
}

func (h *Handler) handleFetchDeviceEvents(c echo.Context) error {
	idParam := c.Param("id")
	id, err := strconv.Atoi(idParam)
	if err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}

	models, err := h.store.Events().FetchByDeviceID(int32(id))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, resource.NewEventSlice(models))
}

func (h *Handler) handleFetchDeviceTokens(c echo.Context) error {
	idParam := c.Param("id")
	id, err := strconv.Atoi(idParam)
	if err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}

	models, err := h.store.Tokens().FetchByDeviceID(int32(id))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, resource.NewTokenSlice(models))
}
