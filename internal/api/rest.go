package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/markusressel/vent2go/internal/controller"
	"github.com/markusressel/vent2go/internal/device"
	"github.com/markusressel/vent2go/internal/persistence"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	urlParamId      = "id"
	queryParamLimit = "limit"
	indentationChar = "  "

	// origin of commands received through this package
	originRest      = "rest"
	originWebsocket = "websocket"
)

type (
	Result struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	}
)

// CreateRestService creates the echo server exposing devices and sensors.
// p may be nil, in which case the command history endpoint is unavailable.
func CreateRestService(p persistence.Persistence) *echo.Echo {
	echoRest := echo.New()
	echoRest.HideBanner = true
	echoRest.HidePort = true

	// Root level middleware
	echoRest.Pre(middleware.AddTrailingSlash())

	echoRest.Use(middleware.Secure())
	echoRest.Use(middleware.Recover())

	// keep http metrics of the api separate from the daemon metrics
	registry := prometheus.NewRegistry()
	echoRest.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "vent2go",
		Subsystem:  "api",
		Registerer: registry,
	}))
	echoRest.GET("/metrics/", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: registry,
	}))

	echoRest.GET("/alive/", isAlive)

	registerDeviceEndpoints(echoRest, p)
	registerSensorEndpoints(echoRest)
	registerWebsocketEndpoint(echoRest)

	return echoRest
}

// returns an empty "ok" answer
func isAlive(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

// return a "not found" message
func returnNotFound(c echo.Context, id string) (err error) {
	return c.JSONPretty(http.StatusNotFound, &Result{
		Name:    "Not found",
		Message: "No item with id '" + id + "' found",
	}, indentationChar)
}

func returnBadRequest(c echo.Context, e error) (err error) {
	return c.JSONPretty(http.StatusBadRequest, &Result{
		Name:    "Bad request",
		Message: e.Error(),
	}, indentationChar)
}

// return the error message of an error, with a status code matching its cause
func returnError(c echo.Context, e error) (err error) {
	status, name := statusOf(e)
	return c.JSONPretty(status, &Result{
		Name:    name,
		Message: e.Error(),
	}, indentationChar)
}

func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, controller.ErrUnknownDevice):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, device.ErrUnknownAction),
		errors.Is(err, device.ErrActionNotAvailable),
		errors.Is(err, device.ErrMissingLevel),
		errors.Is(err, controller.ErrInvalidMode):
		return http.StatusUnprocessableEntity, "Invalid command"
	case errors.Is(err, controller.ErrControllerStopped),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "Unavailable"
	default:
		return http.StatusInternalServerError, "Unknown Error"
	}
}
