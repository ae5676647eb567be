package statistics

import (
	"github.com/markusressel/vent2go/internal/controller"
	"github.com/prometheus/client_golang/prometheus"
)

const controllerSubsystem = "controller"

type ControllerCollector struct {
	controllers []controller.DeviceController

	tickCount            *prometheus.Desc
	sensorFaultCount     *prometheus.Desc
	actuatorFaultCount   *prometheus.Desc
	rejectedCommandCount *prometheus.Desc
	autoMode             *prometheus.Desc
}

func NewControllerCollector(controllers []controller.DeviceController) *ControllerCollector {
	return &ControllerCollector{
		controllers: controllers,
		tickCount: prometheus.NewDesc(prometheus.BuildFQName(namespace, controllerSubsystem, "tick_count"),
			"Number of control loop iterations",
			[]string{"id"}, nil,
		),
		sensorFaultCount: prometheus.NewDesc(prometheus.BuildFQName(namespace, controllerSubsystem, "sensor_fault_count"),
			"Number of ticks skipped due to a failing or implausible sensor reading",
			[]string{"id"}, nil,
		),
		actuatorFaultCount: prometheus.NewDesc(prometheus.BuildFQName(namespace, controllerSubsystem, "actuator_fault_count"),
			"Number of failed writes to the output",
			[]string{"id"}, nil,
		),
		rejectedCommandCount: prometheus.NewDesc(prometheus.BuildFQName(namespace, controllerSubsystem, "rejected_command_count"),
			"Number of commands rejected by the device",
			[]string{"id"}, nil,
		),
		autoMode: prometheus.NewDesc(prometheus.BuildFQName(namespace, controllerSubsystem, "auto_mode"),
			"1 if the sensor drives the device, 0 in manual mode",
			[]string{"id"}, nil,
		),
	}
}

func (collector *ControllerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- collector.tickCount
	ch <- collector.sensorFaultCount
	ch <- collector.actuatorFaultCount
	ch <- collector.rejectedCommandCount
	ch <- collector.autoMode
}

// Collect implements required collect function for all prometheus collectors
func (collector *ControllerCollector) Collect(ch chan<- prometheus.Metric) {
	for _, c := range collector.controllers {
		state := c.GetState()
		stats := state.Statistics
		ch <- prometheus.MustNewConstMetric(collector.tickCount, prometheus.CounterValue, float64(stats.TickCount), state.Id)
		ch <- prometheus.MustNewConstMetric(collector.sensorFaultCount, prometheus.CounterValue, float64(stats.SensorFaultCount), state.Id)
		ch <- prometheus.MustNewConstMetric(collector.actuatorFaultCount, prometheus.CounterValue, float64(stats.ActuatorFaultCount), state.Id)
		ch <- prometheus.MustNewConstMetric(collector.rejectedCommandCount, prometheus.CounterValue, float64(stats.RejectedCommandCount), state.Id)

		autoMode := 0.0
		if state.Mode == controller.ModeAuto {
			autoMode = 1
		}
		ch <- prometheus.MustNewConstMetric(collector.autoMode, prometheus.GaugeValue, autoMode, state.Id)
	}
}
