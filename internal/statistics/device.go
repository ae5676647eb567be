package statistics

import (
	"github.com/markusressel/vent2go/internal/controller"
	"github.com/prometheus/client_golang/prometheus"
)

const subsystemDevice = "device"

type DeviceCollector struct {
	controllers []controller.DeviceController

	target       *prometheus.Desc
	dutyCycle    *prometheus.Desc
	hardwareDuty *prometheus.Desc
}

func NewDeviceCollector(controllers []controller.DeviceController) *DeviceCollector {
	return &DeviceCollector{
		controllers: controllers,
		target: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemDevice, "target"),
			"Current level of the device",
			[]string{"id"}, nil,
		),
		dutyCycle: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemDevice, "duty_cycle_percent"),
			"Duty cycle percentage of the current level",
			[]string{"id"}, nil,
		),
		hardwareDuty: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemDevice, "hardware_duty"),
			"Duty of the current level in hardware units",
			[]string{"id"}, nil,
		),
	}
}

func (collector *DeviceCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- collector.target
	ch <- collector.dutyCycle
	ch <- collector.hardwareDuty
}

// Collect implements required collect function for all prometheus collectors
func (collector *DeviceCollector) Collect(ch chan<- prometheus.Metric) {
	for _, c := range collector.controllers {
		state := c.GetState()
		ch <- prometheus.MustNewConstMetric(collector.target, prometheus.GaugeValue, float64(state.Device.Target), state.Id)
		ch <- prometheus.MustNewConstMetric(collector.dutyCycle, prometheus.GaugeValue, float64(state.Device.DutyCycle), state.Id)
		ch <- prometheus.MustNewConstMetric(collector.hardwareDuty, prometheus.GaugeValue, float64(state.Duty), state.Id)
	}
}
