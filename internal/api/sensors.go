package api

import (
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"
	"github.com/markusressel/vent2go/internal/configuration"
	"github.com/markusressel/vent2go/internal/sensors"
	"github.com/qdm12/reprint"
)

type SensorView struct {
	Id        string                     `json:"id"`
	Config    configuration.SensorConfig `json:"config"`
	Value     *float64                   `json:"value,omitempty"`
	Error     string                     `json:"error,omitempty"`
	MovingAvg float64                    `json:"movingAvg"`
}

func registerSensorEndpoints(rest *echo.Echo) {
	group := rest.Group("/sensor")

	group.GET("/", getSensors)
	group.GET("/:"+urlParamId+"/", getSensor)
}

func getSensors(c echo.Context) error {
	items := sensors.SensorMap.Items()
	data := make([]SensorView, 0, len(items))
	for _, sensor := range items {
		data = append(data, viewOf(sensor))
	}
	sort.Slice(data, func(i, j int) bool {
		return data[i].Id < data[j].Id
	})
	return c.JSONPretty(http.StatusOK, data, indentationChar)
}

func getSensor(c echo.Context) error {
	id := c.Param(urlParamId)

	sensor, exists := sensors.SensorMap.Get(id)
	if !exists {
		return returnNotFound(c, id)
	}
	return c.JSONPretty(http.StatusOK, viewOf(sensor), indentationChar)
}

func viewOf(sensor sensors.Sensor) SensorView {
	view := SensorView{
		Id:        sensor.GetId(),
		Config:    reprint.This(sensor.GetConfig()).(configuration.SensorConfig),
		MovingAvg: sensor.GetMovingAvg(),
	}
	value, err := sensor.GetValue()
	if err != nil {
		view.Error = err.Error()
	} else {
		view.Value = &value
	}
	return view
}
