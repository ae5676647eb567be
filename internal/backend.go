package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/markusressel/vent2go/internal/api"
	"github.com/markusressel/vent2go/internal/configuration"
	"github.com/markusressel/vent2go/internal/controller"
	"github.com/markusressel/vent2go/internal/device"
	"github.com/markusressel/vent2go/internal/hwmon"
	"github.com/markusressel/vent2go/internal/outputs"
	"github.com/markusressel/vent2go/internal/persistence"
	"github.com/markusressel/vent2go/internal/sensors"
	"github.com/markusressel/vent2go/internal/statistics"
	"github.com/markusressel/vent2go/internal/ui"
	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

func RunDaemon() {
	if getProcessOwner() != "root" {
		ui.Warning("vent2go is not running as root, writing to PWM outputs may fail due to missing permissions")
	}

	config := configuration.CurrentConfig

	pers := persistence.NewPersistence(config.DbPath, config.HistorySize)
	if err := pers.Init(); err != nil {
		ui.Fatal("Unable to initialize command history database %s: %v", config.DbPath, err)
	}

	var observers []controller.TickObserver
	var influxExporter *statistics.InfluxExporter
	if config.Statistics.Influx.Enabled {
		influxExporter = statistics.NewInfluxExporter(config.Statistics.Influx)
		observers = append(observers, influxExporter)
	}

	objects, err := InitializeObjects(config, pers, observers...)
	if err != nil {
		ui.Fatal("%v", err)
	}

	if len(objects.Controllers) == 0 {
		ui.Fatal("No valid device configurations, exiting.")
	}

	ctx, cancel := context.WithCancel(context.Background())

	var g run.Group
	if config.Statistics.Enabled {
		statistics.Register(statistics.NewSensorCollector(objects.Sensors))
		statistics.Register(statistics.NewDeviceCollector(objects.Controllers))
		statistics.Register(statistics.NewControllerCollector(objects.Controllers))

		// === Prometheus Exporter
		port := config.Statistics.Port
		if port <= 0 || port >= 65535 {
			port = 9000
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		server := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}

		g.Add(func() error {
			ui.Info("Serving metrics on %s/metrics", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("cannot start prometheus metrics endpoint: %w", err)
			}
			return nil
		}, func(err error) {
			ui.Info("Stopping statistics server...")
			timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer timeoutCancel()
			if err := server.Shutdown(timeoutCtx); err != nil {
				ui.Warning("Error stopping statistics server: %v", err)
			}
		})
	}
	if config.Api.Enabled {
		// === REST/websocket API
		rest := api.CreateRestService(pers)
		addr := fmt.Sprintf("%s:%d", config.Api.Host, config.Api.Port)

		g.Add(func() error {
			ui.Info("Serving API on %s", addr)
			if err := rest.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("cannot start API server: %w", err)
			}
			return nil
		}, func(err error) {
			ui.Info("Stopping API server...")
			timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer timeoutCancel()
			if err := rest.Shutdown(timeoutCtx); err != nil {
				ui.Warning("Error stopping API server: %v", err)
			}
		})
	}
	{
		// === device controllers
		for _, c := range objects.Controllers {
			deviceController := c
			g.Add(func() error {
				err := deviceController.Run(ctx)
				ui.Info("Controller for device %s stopped.", deviceController.GetId())
				return err
			}, func(err error) {
				cancel()
				if err != nil {
					ui.Warning("Error in device controller: %v", err)
				}
			})
		}
	}
	{
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

		g.Add(func() error {
			select {
			case <-sig:
				ui.Info("Received SIGTERM signal, exiting...")
			case <-ctx.Done():
			}
			return nil
		}, func(err error) {
			signal.Stop(sig)
			cancel()
		})
	}

	err = g.Run()
	objects.Close()
	if influxExporter != nil {
		influxExporter.Close()
	}
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ui.Info("Done.")
	os.Exit(0)
}

// Objects are the runtime components created from a configuration
type Objects struct {
	Sensors     []sensors.Sensor
	Outputs     []outputs.Output
	Controllers []controller.DeviceController
}

// Close releases sensors holding a connection, e.g. modbus
func (o *Objects) Close() {
	for _, sensor := range o.Sensors {
		if closer, ok := sensor.(interface{ Close() }); ok {
			closer.Close()
		}
	}
}

// InitializeObjects creates sensors, outputs and one controller per device and registers them
// in their global maps. p may be nil to disable the command history.
func InitializeObjects(config configuration.Configuration, p persistence.Persistence, observers ...controller.TickObserver) (*Objects, error) {
	objects := &Objects{}

	if err := resolveHwMonSensors(config.Sensors); err != nil {
		return nil, err
	}

	for _, sensorConfig := range config.Sensors {
		sensor, err := sensors.NewSensor(sensorConfig)
		if err != nil {
			return nil, fmt.Errorf("unable to process sensor configuration %s: %w", sensorConfig.ID, err)
		}
		sensors.SensorMap.Set(sensorConfig.ID, sensor)
		objects.Sensors = append(objects.Sensors, sensor)
	}
	// function sensors need all sensors registered before their first read
	for _, sensor := range objects.Sensors {
		currentValue, err := sensor.GetValue()
		if err != nil {
			ui.Warning("Error reading sensor %s: %v", sensor.GetId(), err)
		}
		sensor.SetMovingAvg(currentValue)
	}

	for _, outputConfig := range config.Outputs {
		output, err := outputs.NewOutput(outputConfig)
		if err != nil {
			return nil, fmt.Errorf("unable to process output configuration %s: %w", outputConfig.ID, err)
		}
		outputs.OutputMap.Set(outputConfig.ID, output)
		objects.Outputs = append(objects.Outputs, output)
	}

	for _, deviceConfig := range config.Devices {
		deviceController, err := newDeviceController(deviceConfig, p, observers)
		if err != nil {
			return nil, err
		}
		controller.ControllerMap.Set(deviceConfig.ID, deviceController)
		objects.Controllers = append(objects.Controllers, deviceController)
	}

	return objects, nil
}

func newDeviceController(config configuration.DeviceConfig, p persistence.Persistence, observers []controller.TickObserver) (controller.DeviceController, error) {
	actions, err := device.ParseActions(config.Actions)
	if err != nil {
		return nil, fmt.Errorf("device %s: %w", config.ID, err)
	}
	d, err := device.New(config.ID, actions, config.DutyCycles, config.DefaultLevel, config.FreqKHz)
	if err != nil {
		return nil, err
	}

	output, ok := outputs.OutputMap.Get(config.Output)
	if !ok {
		return nil, fmt.Errorf("device %s: output '%s' not found", config.ID, config.Output)
	}
	if outputFreq, ok := output.GetConfig().CarrierFrequencyKHz(); ok && config.FreqKHz > 0 && outputFreq != config.FreqKHz {
		ui.Warning("device %s: expects a carrier frequency of %d kHz, but output %s is configured for %d kHz", config.ID, config.FreqKHz, output.GetId(), outputFreq)
	}

	var sensor sensors.Sensor
	if len(config.Sensor) > 0 {
		sensor, ok = sensors.SensorMap.Get(config.Sensor)
		if !ok {
			return nil, fmt.Errorf("device %s: sensor '%s' not found", config.ID, config.Sensor)
		}
	}

	return controller.NewDeviceController(controller.Config{
		Id:              config.ID,
		TickRate:        config.TickRate,
		Thresholds:      config.Thresholds,
		SmoothingWindow: config.SmoothingWindow,
		ManualOnCommand: config.ManualOnCommand,
	}, d, sensor, output, p, observers...), nil
}

// resolves the voltage input file of all hwmon sensors, chips are only scanned if needed
func resolveHwMonSensors(sensorConfigs []configuration.SensorConfig) error {
	var controllers []*hwmon.HwMonController
	for _, sensorConfig := range sensorConfigs {
		if sensorConfig.HwMon == nil {
			continue
		}
		if controllers == nil {
			controllers = hwmon.GetChips()
		}
		if err := hwmon.UpdateSensorConfigFromHwMonControllers(controllers, sensorConfig.HwMon); err != nil {
			return fmt.Errorf("sensor %s: %w. Run 'vent2go detect' again and correct any mistake", sensorConfig.ID, err)
		}
	}
	return nil
}

func getProcessOwner() string {
	stdout, err := exec.Command("ps", "-o", "user=", "-p", strconv.Itoa(os.Getpid())).Output()
	if err != nil {
		ui.Warning("Error checking process owner: %v", err)
		return ""
	}
	return strings.TrimSpace(string(stdout))
}
