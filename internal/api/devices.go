package api

import (
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/markusressel/vent2go/internal/controller"
	"github.com/markusressel/vent2go/internal/device"
	"github.com/markusressel/vent2go/internal/persistence"
)

// ActionRequest is the body of a device command
type ActionRequest struct {
	Action string `json:"action"`
	Level  *int   `json:"level,omitempty"`
}

type ModeRequest struct {
	Mode string `json:"mode"`
}

func registerDeviceEndpoints(rest *echo.Echo, p persistence.Persistence) {
	group := rest.Group("/device")

	group.GET("/", getDevices)
	group.GET("/:"+urlParamId+"/", getDevice)
	group.POST("/:"+urlParamId+"/action/", postDeviceAction)
	group.POST("/:"+urlParamId+"/mode/", postDeviceMode)
	group.GET("/:"+urlParamId+"/history/", getDeviceHistory(p))
}

// returns the current state of all devices, ordered by id
func getDevices(c echo.Context) error {
	return c.JSONPretty(http.StatusOK, deviceStates(), indentationChar)
}

func deviceStates() []controller.State {
	states := make([]controller.State, 0, controller.ControllerMap.Count())
	for _, ctrl := range controller.ControllerMap.Items() {
		states = append(states, ctrl.GetState())
	}
	sort.Slice(states, func(i, j int) bool {
		return states[i].Id < states[j].Id
	})
	return states
}

func getDevice(c echo.Context) error {
	id := c.Param(urlParamId)
	ctrl, exists := controller.ControllerMap.Get(id)
	if !exists {
		return returnNotFound(c, id)
	}
	return c.JSONPretty(http.StatusOK, ctrl.GetState(), indentationChar)
}

func postDeviceAction(c echo.Context) error {
	id := c.Param(urlParamId)

	var body ActionRequest
	if err := c.Bind(&body); err != nil {
		return returnBadRequest(c, err)
	}
	command, err := commandFrom(body.Action, body.Level, originRest)
	if err != nil {
		return returnError(c, err)
	}

	state, err := controller.Submit(c.Request().Context(), id, command)
	if err != nil {
		return returnError(c, err)
	}
	return c.JSONPretty(http.StatusOK, state, indentationChar)
}

func commandFrom(action string, level *int, origin string) (controller.Command, error) {
	a, err := device.ParseAction(action)
	if err != nil {
		return controller.Command{}, err
	}
	return controller.Command{
		Origin: origin,
		Action: a,
		Level:  level,
	}, nil
}

func postDeviceMode(c echo.Context) error {
	id := c.Param(urlParamId)

	var body ModeRequest
	if err := c.Bind(&body); err != nil {
		return returnBadRequest(c, err)
	}
	mode, err := controller.ParseMode(body.Mode)
	if err != nil {
		return returnError(c, err)
	}

	state, err := controller.SetMode(c.Request().Context(), id, mode)
	if err != nil {
		return returnError(c, err)
	}
	return c.JSONPretty(http.StatusOK, state, indentationChar)
}

func getDeviceHistory(p persistence.Persistence) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param(urlParamId)
		if !controller.ControllerMap.Has(id) {
			return returnNotFound(c, id)
		}
		if p == nil {
			return returnError(c, errors.New("command history is not available"))
		}

		limit := 0
		if value := c.QueryParam(queryParamLimit); value != "" {
			parsed, err := strconv.Atoi(value)
			if err != nil {
				return returnBadRequest(c, err)
			}
			limit = parsed
		}

		records, err := p.LoadCommandHistory(id, limit)
		if err != nil {
			return returnError(c, err)
		}
		return c.JSONPretty(http.StatusOK, records, indentationChar)
	}
}
