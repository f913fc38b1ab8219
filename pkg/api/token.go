package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo"

	"github.com/fitlab/doorman/pkg/api/resource"
	"github.com/fitlab/doorman/pkg/storage"
)

func (h *Handler) handleFetchTokens(c echo.Context) error {
	m, err := h.store.Tokens().FetchAll()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, resource.NewTokenList(m))
}

func (h *Handler) handleGetTokenByID(c echo.Context) error {
	idParam := c.Param("id")
	id, err := strconv.Atoi(idParam)
	if err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}

	m, err := h.store.Tokens().FindByID(int32(id))
	if err != nil && err == storage.ErrNotFound {
		return c.JSON(http.StatusNotFound, err)
	} else if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, resource.NewToken(m))
}

func (h *Handler) handleCreateToken(c echo.Context) error {
	r := &resource.TokenResource{}
	if err := c.Bind(r); err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}

	m, err := resource.ValidateToken(r)
	if err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}

	if _, err := h.store.Devices().FindByID(m.DeviceID); err != nil {
		if err == storage.ErrNotFound {
			return c.JSON(http.StatusBadRequest, err)
		}
		return c.JSON(http.StatusInternalServerError, err)
	}

	err = h.store.Tokens().Create(m)
	if err == storage.ErrNotUnique {
		return c.JSON(http.StatusConflict, err)
	} else if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	if err := h.tokens.TokenChanged(m, nil); err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusCreated, resource.NewToken(m))
}

func (h *Handler) handleUpdateToken(c echo.Context) error {
	idParam := c.Param("id")
	id, err := strconv.Atoi(idParam)
	if err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}

	prev, err := h.store.Tokens().FindByID(int32(id))
	if err != nil && err == storage.ErrNotFound {
		return c.JSON(http.StatusNotFound, err)
	} else if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	r := &resource.TokenResource{}
	if err := c.Bind(r); err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}

	m, err := resource.ValidateToken(r)
	if err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}
	m.ID = prev.ID
	m.CreatedAt = prev.CreatedAt

	err = h.store.Tokens().Update(m)
	if err == storage.ErrNotUnique {
		return c.JSON(http.StatusConflict, err)
	} else if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	if err := h.tokens.TokenChanged(m, prev); err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, resource.NewToken(m))
}

func (h *Handler) handleDeleteToken(c echo.Context) error {
	idParam := c.Param("id")
	id, err := strconv.Atoi(idParam)
	if err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}

	m, err := h.store.Tokens().FindByID(int32(id))
	if err != nil && err == storage.ErrNotFound {
		return c.JSON(http.StatusNotFound, err)
	} else if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	if err := h.store.Tokens().Delete(m.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	if err := h.tokens.TokenRemoved(m); err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.NoContent(http.StatusNoContent)
}
