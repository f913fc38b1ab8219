package api

import (
	"github.com/labstack/echo"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/fitlab/doorman/pkg/acs"
	"github.com/fitlab/doorman/pkg/storage"
)

// Handler contains all properties to serve the API
type Handler struct {
	nc     *nats.Conn
	store  storage.Interface
	tokens *acs.TokenSync
	resync acs.ScheduleResyncFunc
}

// NewHandler create a new API handler
func NewHandler(nc *nats.Conn, store storage.Interface, tokens *acs.TokenSync, resync acs.ScheduleResyncFunc) *Handler {
	return &Handler{
		nc:     nc,
		store:  store,
		tokens: tokens,
		resync: resync,
	}
}

// RegisterRoutes attaches the handlers to the echo web server
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	log.Debug("Register API routes")
	api := e.Group("/api/v1")

	api.GET("/devices", h.handleFetchDevices)
	api.POST("/devices", h.handleCreateDevice)
	api.GET("/devices/:id", h.handleGetDeviceByID)
	api.POST("/devices/:id/resync", h.handleResyncDevice)
	api.GET("/devices/:id/commands", h.handleFetchDeviceCommands)
	api.GET("/devices/:id/events", h.handleFetchDeviceEvents)
	api.GET("/devices/:id/tokens", h.handleFetchDeviceTokens)

	api.GET("/commands", h.handleFetchCommands)
	api.GET("/commands/:id", h.handleGetCommandByID)

	api.GET("/events", h.handleFetchEvents)
	api.GET("/events/:id", h.handleGetEventByID)

	api.GET("/tokens", h.handleFetchTokens)
	api.POST("/tokens", h.handleCreateToken)
	api.GET("/tokens/:id", h.handleGetTokenByID)
	api.PUT("/tokens/:id", h.handleUpdateToken)
	api.DELETE("/tokens/:id", h.handleDeleteToken)

	api.Any("/realtime-events", h.realtimeEventsHandler())
}
