package statistics

import (
	"sync"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/markusressel/vent2go/internal/configuration"
	"github.com/markusressel/vent2go/internal/controller"
	"github.com/markusressel/vent2go/internal/ui"
)

const measurementDevice = "vent2go.device"

// InfluxExporter writes one point per device whenever its controller state changes
type InfluxExporter struct {
	client   influxdb2.Client
	writeApi api.WriteApi

	mu   sync.Mutex
	last map[string]stateKey
}

// stateKey holds the parts of a state that are worth a new point
type stateKey struct {
	mode           controller.Mode
	action         string
	target         int
	duty           int
	sensorFaults   uint64
	actuatorFaults uint64
	rejected       uint64
	running        bool
}

func NewInfluxExporter(config configuration.InfluxConfig) *InfluxExporter {
	client := influxdb2.NewClient(config.Url, config.Token)
	writeApi := client.WriteApi(config.Org, config.Bucket)
	exporter := newInfluxExporter(writeApi)
	exporter.client = client

	go func() {
		for err := range writeApi.Errors() {
			ui.Warning("InfluxDB write error: %v", err)
		}
	}()

	return exporter
}

func newInfluxExporter(writeApi api.WriteApi) *InfluxExporter {
	return &InfluxExporter{
		writeApi: writeApi,
		last:     map[string]stateKey{},
	}
}

func keyOf(state controller.State) stateKey {
	return stateKey{
		mode:           state.Mode,
		action:         string(state.Device.Action),
		target:         state.Device.Target,
		duty:           state.Duty,
		sensorFaults:   state.Statistics.SensorFaultCount,
		actuatorFaults: state.Statistics.ActuatorFaultCount,
		rejected:       state.Statistics.RejectedCommandCount,
		running:        state.Running,
	}
}

// OnState implements controller.TickObserver
func (e *InfluxExporter) OnState(state controller.State) {
	key := keyOf(state)

	e.mu.Lock()
	last, ok := e.last[state.Id]
	e.last[state.Id] = key
	e.mu.Unlock()
	if ok && last == key {
		return
	}

	p := influxdb2.NewPoint(measurementDevice,
		map[string]string{
			"device": state.Id,
			"mode":   string(state.Mode),
		},
		map[string]interface{}{
			"action":           string(state.Device.Action),
			"target":           state.Device.Target,
			"dutyCycle":        state.Device.DutyCycle,
			"duty":             state.Duty,
			"reading":          state.Statistics.LastReading,
			"sensorFaults":     int64(state.Statistics.SensorFaultCount),
			"actuatorFaults":   int64(state.Statistics.ActuatorFaultCount),
			"rejectedCommands": int64(state.Statistics.RejectedCommandCount),
			"running":          state.Running,
		},
		state.UpdatedAt,
	)
	// write asynchronously
	e.writeApi.WritePoint(p)
}

func (e *InfluxExporter) Close() {
	e.writeApi.Flush()
	if e.client != nil {
		e.client.Close()
	}
}
