package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/asecurityteam/rolling"
	"github.com/markusressel/vent2go/internal/configuration"
	"github.com/markusressel/vent2go/internal/device"
	"github.com/markusressel/vent2go/internal/outputs"
	"github.com/markusressel/vent2go/internal/persistence"
	"github.com/markusressel/vent2go/internal/sensors"
	"github.com/markusressel/vent2go/internal/ui"
	"github.com/markusressel/vent2go/internal/util"
	cmap "github.com/orcaman/concurrent-map/v2"
)

var (
	ControllerMap = cmap.New[DeviceController]()

	ErrControllerStopped = errors.New("controller is not running")
	ErrUnknownDevice     = errors.New("unknown device")
	ErrInvalidMode       = errors.New("invalid mode")
)

type Mode string

const (
	// ModeAuto lets the sensor drive the device level
	ModeAuto Mode = "auto"
	// ModeManual only changes the level on remote commands
	ModeManual Mode = "manual"
)

func ParseMode(name string) (Mode, error) {
	mode := Mode(strings.ToLower(strings.TrimSpace(name)))
	switch mode {
	case ModeAuto, ModeManual:
		return mode, nil
	}
	return "", fmt.Errorf("%w: '%s', must be one of: %s | %s", ErrInvalidMode, name, ModeAuto, ModeManual)
}

// Command is a remote request to change the level of a device
type Command struct {
	// Origin names the control surface that issued the command, e.g. "rest"
	Origin string
	Action device.Action
	Level  *int
}

// Statistics are counters of a single controller since its start
type Statistics struct {
	TickCount            uint64  `json:"tickCount"`
	SensorFaultCount     uint64  `json:"sensorFaultCount"`
	ActuatorFaultCount   uint64  `json:"actuatorFaultCount"`
	RejectedCommandCount uint64  `json:"rejectedCommandCount"`
	LastReading          float64 `json:"lastReading"`
	LastLevel            int     `json:"lastLevel"`
	LastWrittenDuty      int     `json:"lastWrittenDuty"`
}

// State is published by the controller after each tick and command
type State struct {
	Id         string          `json:"id"`
	Device     device.Snapshot `json:"device"`
	Mode       Mode            `json:"mode"`
	HasSensor  bool            `json:"hasSensor"`
	Running    bool            `json:"running"`
	MaxDuty    int             `json:"maxDuty"`
	Duty       int             `json:"duty"`
	Statistics Statistics      `json:"statistics"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// TickObserver is notified with the published state, on the controller goroutine
type TickObserver interface {
	OnState(state State)
}

type DeviceController interface {
	GetId() string

	// Run owns the device and its output until ctx is cancelled
	Run(ctx context.Context) error

	// Submit queues a command and waits until it has been applied
	Submit(ctx context.Context, command Command) (State, error)
	// SetMode queues a mode change and waits until it has been applied
	SetMode(ctx context.Context, mode Mode) (State, error)

	// GetState returns the most recently published state
	GetState() State
}

type request struct {
	command *Command
	mode    Mode
	reply   chan response
}

type response struct {
	state State
	err   error
}

type Config struct {
	Id              string
	TickRate        time.Duration
	Thresholds      []int
	SmoothingWindow int
	ManualOnCommand bool
}

type deviceController struct {
	config Config

	// owned by the Run goroutine
	device          *device.Device
	sensor          sensors.Sensor
	output          outputs.Output
	mode            Mode
	maxDuty         int
	window          *rolling.PointPolicy
	windowFilled    bool
	lastWrittenDuty int
	lastWriteOk     bool
	stats           Statistics

	persistence persistence.Persistence
	observers   []TickObserver

	requests chan request
	stopped  chan struct{}
	started  chan struct{}
	runOnce  sync.Once

	stateMu sync.RWMutex
	state   State
}

// NewDeviceController creates a controller for the given device.
// sensor and p may be nil, a device without sensor is always in manual mode.
func NewDeviceController(config Config, d *device.Device, sensor sensors.Sensor, output outputs.Output, p persistence.Persistence, observers ...TickObserver) DeviceController {
	if config.SmoothingWindow < 1 {
		config.SmoothingWindow = 1
	}
	if config.TickRate <= 0 {
		config.TickRate = configuration.DefaultTickRate
	}
	mode := ModeManual
	if sensor != nil {
		mode = ModeAuto
	}

	c := &deviceController{
		config:      config,
		device:      d,
		sensor:      sensor,
		output:      output,
		mode:        mode,
		window:      util.CreateRollingWindow(config.SmoothingWindow),
		persistence: p,
		observers:   observers,
		requests:    make(chan request),
		stopped:     make(chan struct{}),
		started:     make(chan struct{}),
	}
	c.state = c.buildState(false)
	return c
}

func (c *deviceController) GetId() string {
	return c.config.Id
}

func (c *deviceController) Run(ctx context.Context) (err error) {
	alreadyRunning := true
	c.runOnce.Do(func() {
		alreadyRunning = false
	})
	if alreadyRunning {
		return fmt.Errorf("device %s: controller can only be run once", c.GetId())
	}
	defer close(c.stopped)

	if err := c.output.Init(); err != nil {
		return fmt.Errorf("device %s: unable to initialize output %s: %w", c.GetId(), c.output.GetId(), err)
	}
	c.maxDuty = c.output.GetMaxDuty()
	ui.Info("Starting controller for device '%s' (output: %s, max duty: %d, mode: %s)", c.GetId(), c.output.GetId(), c.maxDuty, c.mode)

	defer func() {
		if closeErr := c.output.Close(); closeErr != nil {
			ui.Warning("device %s: unable to close output %s: %v", c.GetId(), c.output.GetId(), closeErr)
		}
		c.publish(false)
		ui.Info("Stopped controller for device '%s'", c.GetId())
	}()

	c.writeDuty()
	close(c.started)
	c.publish(true)

	ticker := time.NewTicker(c.config.TickRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		select {
		case <-ctx.Done():
			return nil
		case req := <-c.requests:
			req.reply <- c.handle(req)
		case <-ticker.C:
			c.tick()
		}
	}
}

func (c *deviceController) Submit(ctx context.Context, command Command) (State, error) {
	return c.send(ctx, request{command: &command})
}

func (c *deviceController) SetMode(ctx context.Context, mode Mode) (State, error) {
	return c.send(ctx, request{mode: mode})
}

// send hands a request to the Run goroutine and waits for its response
func (c *deviceController) send(ctx context.Context, req request) (State, error) {
	select {
	case <-c.started:
	default:
		return c.GetState(), fmt.Errorf("device %s: %w", c.GetId(), ErrControllerStopped)
	}

	req.reply = make(chan response, 1)
	select {
	case c.requests <- req:
	case <-c.stopped:
		return c.GetState(), fmt.Errorf("device %s: %w", c.GetId(), ErrControllerStopped)
	case <-ctx.Done():
		return c.GetState(), ctx.Err()
	}

	resp := <-req.reply
	return resp.state, resp.err
}

func (c *deviceController) GetState() State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

func (c *deviceController) handle(req request) response {
	if req.command == nil {
		err := c.applyMode(req.mode)
		return response{state: c.publish(true), err: err}
	}

	err := c.applyCommand(*req.command)
	state := c.publish(true)
	// history follows the order in which commands were applied
	c.record(*req.command, state, err)
	return response{state: state, err: err}
}

func (c *deviceController) applyCommand(command Command) error {
	err := c.device.Apply(command.Action, command.Level)
	if err != nil {
		c.stats.RejectedCommandCount++
		ui.Warning("device %s: rejected command '%s' from %s: %v", c.GetId(), command.Action, command.Origin, err)
	} else {
		ui.Debug("device %s: applied command '%s' from %s, level is now %d", c.GetId(), command.Action, command.Origin, c.device.Target())
		if c.config.ManualOnCommand && c.mode == ModeAuto {
			c.mode = ModeManual
			ui.Info("device %s: switched to %s mode after command from %s", c.GetId(), c.mode, command.Origin)
		}
	}

	c.writeDuty()
	return err
}

func (c *deviceController) applyMode(mode Mode) error {
	mode, err := ParseMode(string(mode))
	if err != nil {
		return fmt.Errorf("device %s: %w", c.GetId(), err)
	}
	if mode == ModeAuto && c.sensor == nil {
		return fmt.Errorf("device %s: %w: a device without sensor can only be controlled manually", c.GetId(), ErrInvalidMode)
	}
	if mode != c.mode {
		ui.Info("device %s: switched to %s mode", c.GetId(), mode)
		c.mode = mode
		// start over with fresh readings
		c.windowFilled = false
	}
	return nil
}

func (c *deviceController) tick() {
	c.stats.TickCount++
	if c.mode == ModeAuto && c.sensor != nil {
		c.updateFromSensor()
	}
	c.writeDuty()
	c.publish(true)
}

func (c *deviceController) updateFromSensor() {
	sensor := c.sensor
	value, err := sensor.GetValue()
	if err != nil {
		c.stats.SensorFaultCount++
		ui.Warning("device %s: skipping tick, unable to read sensor %s: %v", c.GetId(), sensor.GetId(), err)
		return
	}
	if !sensor.GetConfig().IsPlausible(value) {
		c.stats.SensorFaultCount++
		ui.Warning("device %s: skipping tick, implausible reading of sensor %s: %v", c.GetId(), sensor.GetId(), value)
		return
	}
	c.stats.LastReading = value

	if !c.windowFilled {
		fillWindow(c.window, c.config.SmoothingWindow, value)
		c.windowFilled = true
	} else {
		c.window.Append(value)
	}
	avg := util.GetWindowAvg(c.window)
	sensor.SetMovingAvg(avg)

	level := Quantize(avg, c.config.Thresholds)
	c.stats.LastLevel = level

	if err := c.device.Apply(device.ActionSet, &level); err != nil {
		c.stats.RejectedCommandCount++
		ui.Warning("device %s: unable to apply level %d: %v", c.GetId(), level, err)
		return
	}
	ui.Debug("device %s: reading %.0f -> level %d", c.GetId(), avg, level)
}

// writeDuty applies the duty of the current device level to the output, unless it
// has already been written successfully
func (c *deviceController) writeDuty() {
	duty := ScaleDuty(c.device.DutyCycle(), c.maxDuty)
	if c.lastWriteOk && c.lastWrittenDuty == duty {
		return
	}

	if err := c.output.SetDuty(duty); err != nil {
		c.stats.ActuatorFaultCount++
		c.lastWriteOk = false
		ui.Error("device %s: unable to set duty %d on output %s: %v", c.GetId(), duty, c.output.GetId(), err)
		return
	}
	c.lastWrittenDuty = duty
	c.lastWriteOk = true
	c.stats.LastWrittenDuty = duty
}

func (c *deviceController) buildState(running bool) State {
	return State{
		Id:         c.GetId(),
		Device:     c.device.Snapshot(),
		Mode:       c.mode,
		HasSensor:  c.sensor != nil,
		Running:    running,
		MaxDuty:    c.maxDuty,
		Duty:       ScaleDuty(c.device.DutyCycle(), c.maxDuty),
		Statistics: c.stats,
		UpdatedAt:  time.Now(),
	}
}

func (c *deviceController) publish(running bool) State {
	state := c.buildState(running)

	c.stateMu.Lock()
	c.state = state
	c.stateMu.Unlock()

	for _, observer := range c.observers {
		observer.OnState(state)
	}
	return state
}

func (c *deviceController) record(command Command, state State, commandErr error) {
	if c.persistence == nil {
		return
	}
	record := persistence.CommandRecord{
		Time:   time.Now(),
		Origin: command.Origin,
		Action: string(command.Action),
		Level:  command.Level,
		Target: state.Device.Target,
	}
	if commandErr != nil {
		record.Error = commandErr.Error()
	}
	if err := c.persistence.SaveCommand(c.GetId(), record); err != nil {
		ui.Warning("device %s: unable to save command history: %v", c.GetId(), err)
	}
}

// completely fills the given window with the given value
func fillWindow(window *rolling.PointPolicy, size int, value float64) {
	for i := 0; i < size; i++ {
		window.Append(value)
	}
}

// Submit routes a command to the controller of the given device
func Submit(ctx context.Context, deviceId string, command Command) (State, error) {
	c, ok := ControllerMap.Get(deviceId)
	if !ok {
		return State{}, fmt.Errorf("%w: %s", ErrUnknownDevice, deviceId)
	}
	return c.Submit(ctx, command)
}

// SetMode routes a mode change to the controller of the given device
func SetMode(ctx context.Context, deviceId string, mode Mode) (State, error) {
	c, ok := ControllerMap.Get(deviceId)
	if !ok {
		return State{}, fmt.Errorf("%w: %s", ErrUnknownDevice, deviceId)
	}
	return c.SetMode(ctx, mode)
}
