package controller

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/markusressel/vent2go/internal/configuration"
	"github.com/markusressel/vent2go/internal/device"
	"github.com/markusressel/vent2go/internal/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testTickRate = 5 * time.Millisecond
	waitFor      = 2 * time.Second
)

var defaultDutyCycles = []int{0, 20, 40, 60, 80, 96}

type MockSensor struct {
	mu        sync.Mutex
	ID        string
	Config    configuration.SensorConfig
	Value     float64
	Err       error
	MovingAvg float64
}

func (sensor *MockSensor) GetId() string {
	return sensor.ID
}

func (sensor *MockSensor) GetConfig() configuration.SensorConfig {
	return sensor.Config
}

func (sensor *MockSensor) GetValue() (float64, error) {
	sensor.mu.Lock()
	defer sensor.mu.Unlock()
	return sensor.Value, sensor.Err
}

func (sensor *MockSensor) Set(value float64, err error) {
	sensor.mu.Lock()
	defer sensor.mu.Unlock()
	sensor.Value = value
	sensor.Err = err
}

func (sensor *MockSensor) GetMovingAvg() float64 {
	sensor.mu.Lock()
	defer sensor.mu.Unlock()
	return sensor.MovingAvg
}

func (sensor *MockSensor) SetMovingAvg(avg float64) {
	sensor.mu.Lock()
	defer sensor.mu.Unlock()
	sensor.MovingAvg = avg
}

type MockOutput struct {
	mu       sync.Mutex
	ID       string
	MaxDuty  int
	Duty     int
	Writes   []int
	WriteErr error
	InitErr  error
	Closed   bool
}

func (output *MockOutput) GetId() string {
	return output.ID
}

func (output *MockOutput) GetConfig() configuration.OutputConfig {
	return configuration.OutputConfig{ID: output.ID}
}

func (output *MockOutput) Init() error {
	return output.InitErr
}

func (output *MockOutput) GetMaxDuty() int {
	return output.MaxDuty
}

func (output *MockOutput) GetDuty() (int, error) {
	output.mu.Lock()
	defer output.mu.Unlock()
	return output.Duty, nil
}

func (output *MockOutput) SetDuty(duty int) error {
	output.mu.Lock()
	defer output.mu.Unlock()
	if output.WriteErr != nil {
		return output.WriteErr
	}
	output.Duty = duty
	output.Writes = append(output.Writes, duty)
	return nil
}

func (output *MockOutput) SetWriteErr(err error) {
	output.mu.Lock()
	defer output.mu.Unlock()
	output.WriteErr = err
}

func (output *MockOutput) GetWrites() []int {
	output.mu.Lock()
	defer output.mu.Unlock()
	return append([]int{}, output.Writes...)
}

func (output *MockOutput) Close() error {
	output.mu.Lock()
	defer output.mu.Unlock()
	output.Closed = true
	return nil
}

func (output *MockOutput) IsClosed() bool {
	output.mu.Lock()
	defer output.mu.Unlock()
	return output.Closed
}

type MockObserver struct {
	mu     sync.Mutex
	states []State
}

func (o *MockObserver) OnState(state State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states = append(o.states, state)
}

func (o *MockObserver) Count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.states)
}

type MockPersistence struct {
	mu      sync.Mutex
	records []persistence.CommandRecord
}

func (p *MockPersistence) Init() error {
	return nil
}

func (p *MockPersistence) SaveCommand(deviceId string, record persistence.CommandRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, record)
	return nil
}

func (p *MockPersistence) LoadCommandHistory(deviceId string, limit int) ([]persistence.CommandRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]persistence.CommandRecord{}, p.records...), nil
}

func (p *MockPersistence) DeleteCommandHistory(deviceId string) error {
	return nil
}

func createDevice(t *testing.T, actions []device.Action, dutyCycles []int) *device.Device {
	d, err := device.New("vent", actions, dutyCycles, 2, 1)
	require.NoError(t, err)
	return d
}

func createSensor(value float64) *MockSensor {
	minValue := 0.0
	maxValue := 60000.0
	return &MockSensor{
		ID:     "sensor",
		Config: configuration.SensorConfig{ID: "sensor", Min: &minValue, Max: &maxValue},
		Value:  value,
	}
}

func createConfig() Config {
	return Config{
		Id:              "vent",
		TickRate:        testTickRate,
		Thresholds:      []int{680, 1360, 2040, 2720, 3400, 50000},
		SmoothingWindow: 1,
	}
}

// startController runs the controller in the background and waits until it accepts commands
func startController(t *testing.T, c DeviceController) (cancel func()) {
	ctx, cancelCtx := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- c.Run(ctx)
	}()
	require.Eventually(t, func() bool {
		return c.GetState().Running
	}, waitFor, time.Millisecond)

	return func() {
		cancelCtx()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(waitFor):
			t.Fatal("controller did not stop")
		}
	}
}

func TestController_SensorDrivesDuty(t *testing.T) {
	// GIVEN
	sensor := createSensor(2050)
	output := &MockOutput{ID: "pwm", MaxDuty: 1023}
	c := NewDeviceController(createConfig(), createDevice(t, device.AllActions, defaultDutyCycles), sensor, output, nil)

	// WHEN
	stop := startController(t, c)
	defer stop()

	// THEN
	assert.Eventually(t, func() bool {
		duty, _ := output.GetDuty()
		return duty == 613
	}, waitFor, time.Millisecond)
	state := c.GetState()
	assert.Equal(t, 3, state.Device.Target)
	assert.Equal(t, 60, state.Device.DutyCycle)
	assert.Equal(t, ModeAuto, state.Mode)
	assert.Equal(t, 2050.0, sensor.GetMovingAvg())
}

func TestController_LowReadingTurnsOff(t *testing.T) {
	// GIVEN
	sensor := createSensor(2050)
	output := &MockOutput{ID: "pwm", MaxDuty: 1023}
	c := NewDeviceController(createConfig(), createDevice(t, device.AllActions, defaultDutyCycles), sensor, output, nil)
	stop := startController(t, c)
	defer stop()
	require.Eventually(t, func() bool {
		duty, _ := output.GetDuty()
		return duty == 613
	}, waitFor, time.Millisecond)

	// WHEN
	sensor.Set(50, nil)

	// THEN
	assert.Eventually(t, func() bool {
		duty, _ := output.GetDuty()
		return duty == 0 && c.GetState().Device.Target == 0
	}, waitFor, time.Millisecond)
}

func TestController_SensorErrorHoldsDuty(t *testing.T) {
	// GIVEN
	sensor := createSensor(2050)
	output := &MockOutput{ID: "pwm", MaxDuty: 1023}
	c := NewDeviceController(createConfig(), createDevice(t, device.AllActions, defaultDutyCycles), sensor, output, nil)
	stop := startController(t, c)
	defer stop()
	require.Eventually(t, func() bool {
		duty, _ := output.GetDuty()
		return duty == 613
	}, waitFor, time.Millisecond)

	// WHEN
	sensor.Set(0, errors.New("adc timeout"))

	// THEN
	assert.Eventually(t, func() bool {
		return c.GetState().Statistics.SensorFaultCount >= 3
	}, waitFor, time.Millisecond)
	duty, _ := output.GetDuty()
	assert.Equal(t, 613, duty)
	assert.Equal(t, 3, c.GetState().Device.Target)
}

func TestController_ImplausibleReadingIsSkipped(t *testing.T) {
	// GIVEN
	sensor := createSensor(70000)
	output := &MockOutput{ID: "pwm", MaxDuty: 1023}
	c := NewDeviceController(createConfig(), createDevice(t, device.AllActions, defaultDutyCycles), sensor, output, nil)

	// WHEN
	stop := startController(t, c)
	defer stop()

	// THEN
	assert.Eventually(t, func() bool {
		return c.GetState().Statistics.SensorFaultCount >= 2
	}, waitFor, time.Millisecond)
	assert.Equal(t, 0, c.GetState().Device.Target)
	assert.Equal(t, 0.0, c.GetState().Statistics.LastReading)
}

func TestController_NonFiniteReadingHoldsDuty(t *testing.T) {
	var tests = []struct {
		name   string
		value  float64
		limits bool
	}{
		{"NaN", math.NaN(), true},
		{"+Inf", math.Inf(1), true},
		{"-Inf", math.Inf(-1), true},
		{"NaN without limits", math.NaN(), false},
		{"+Inf without limits", math.Inf(1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// GIVEN
			sensor := createSensor(2050)
			if !tt.limits {
				sensor.Config = configuration.SensorConfig{ID: "sensor"}
			}
			output := &MockOutput{ID: "pwm", MaxDuty: 1023}
			c := NewDeviceController(createConfig(), createDevice(t, device.AllActions, defaultDutyCycles), sensor, output, nil)
			stop := startController(t, c)
			defer stop()
			require.Eventually(t, func() bool {
				duty, _ := output.GetDuty()
				return duty == 613
			}, waitFor, time.Millisecond)
			faults := c.GetState().Statistics.SensorFaultCount

			// WHEN
			sensor.Set(tt.value, nil)

			// THEN
			assert.Eventually(t, func() bool {
				return c.GetState().Statistics.SensorFaultCount >= faults+3
			}, waitFor, time.Millisecond)
			duty, _ := output.GetDuty()
			assert.Equal(t, 613, duty)
			state := c.GetState()
			assert.Equal(t, 3, state.Device.Target)
			assert.Equal(t, 2050.0, state.Statistics.LastReading)
		})
	}
}

func TestController_ReadingJustBelowThresholdKeepsLowerLevel(t *testing.T) {
	// GIVEN
	sensor := createSensor(679.6)
	output := &MockOutput{ID: "pwm", MaxDuty: 1023}
	d := createDevice(t, device.AllActions, defaultDutyCycles)
	c := NewDeviceController(createConfig(), d, sensor, output, nil)
	stop := startController(t, c)
	defer stop()

	// WHEN
	require.Eventually(t, func() bool {
		return c.GetState().Statistics.LastReading == 679.6
	}, waitFor, time.Millisecond)

	// THEN
	assert.Equal(t, 0, c.GetState().Statistics.LastLevel)
	assert.Equal(t, 0, c.GetState().Device.Target)

	// WHEN
	sensor.Set(680, nil)

	// THEN
	assert.Eventually(t, func() bool {
		return c.GetState().Device.Target == 1
	}, waitFor, time.Millisecond)
}

func TestController_ActuatorErrorIsRetried(t *testing.T) {
	// GIVEN
	sensor := createSensor(2050)
	output := &MockOutput{ID: "pwm", MaxDuty: 1023, WriteErr: errors.New("EBUSY")}
	c := NewDeviceController(createConfig(), createDevice(t, device.AllActions, defaultDutyCycles), sensor, output, nil)
	stop := startController(t, c)
	defer stop()
	require.Eventually(t, func() bool {
		return c.GetState().Statistics.ActuatorFaultCount >= 2
	}, waitFor, time.Millisecond)

	// WHEN
	output.SetWriteErr(nil)

	// THEN
	assert.Eventually(t, func() bool {
		duty, _ := output.GetDuty()
		return duty == 613
	}, waitFor, time.Millisecond)
	assert.Equal(t, 613, c.GetState().Statistics.LastWrittenDuty)
}

func TestController_DuplicateWritesAreSuppressed(t *testing.T) {
	// GIVEN
	sensor := createSensor(2050)
	output := &MockOutput{ID: "pwm", MaxDuty: 1023}
	c := NewDeviceController(createConfig(), createDevice(t, device.AllActions, defaultDutyCycles), sensor, output, nil)
	stop := startController(t, c)
	defer stop()

	// WHEN
	require.Eventually(t, func() bool {
		return c.GetState().Statistics.TickCount >= 10
	}, waitFor, time.Millisecond)

	// THEN
	assert.Equal(t, []int{0, 613}, output.GetWrites())
}

func TestController_SmoothingWindow(t *testing.T) {
	// GIVEN
	sensor := createSensor(1000)
	output := &MockOutput{ID: "pwm", MaxDuty: 100}
	config := createConfig()
	config.SmoothingWindow = 4
	c := NewDeviceController(config, createDevice(t, device.AllActions, defaultDutyCycles), sensor, output, nil)
	stop := startController(t, c)
	defer stop()
	require.Eventually(t, func() bool {
		return c.GetState().Device.Target == 1
	}, waitFor, time.Millisecond)

	// WHEN
	sensor.Set(3000, nil)

	// THEN
	assert.Eventually(t, func() bool {
		return c.GetState().Device.Target == 4
	}, waitFor, time.Millisecond)
	assert.Equal(t, 3000.0, sensor.GetMovingAvg())
}

func TestController_SubmitBeforeRun(t *testing.T) {
	// GIVEN
	output := &MockOutput{ID: "pwm", MaxDuty: 255}
	c := NewDeviceController(createConfig(), createDevice(t, device.AllActions, defaultDutyCycles), nil, output, nil)

	// WHEN
	_, err := c.Submit(context.Background(), Command{Origin: "test", Action: device.ActionOn})

	// THEN
	assert.ErrorIs(t, err, ErrControllerStopped)
}

func TestController_SubmitAfterStop(t *testing.T) {
	// GIVEN
	output := &MockOutput{ID: "pwm", MaxDuty: 255}
	c := NewDeviceController(createConfig(), createDevice(t, device.AllActions, defaultDutyCycles), nil, output, nil)
	stop := startController(t, c)

	// WHEN
	stop()
	_, err := c.Submit(context.Background(), Command{Origin: "test", Action: device.ActionOn})

	// THEN
	assert.ErrorIs(t, err, ErrControllerStopped)
	assert.True(t, output.IsClosed())
	assert.False(t, c.GetState().Running)
}

func TestController_InitErrorIsFatal(t *testing.T) {
	// GIVEN
	output := &MockOutput{ID: "pwm", MaxDuty: 255, InitErr: errors.New("no such device")}
	c := NewDeviceController(createConfig(), createDevice(t, device.AllActions, defaultDutyCycles), nil, output, nil)

	// WHEN
	err := c.Run(context.Background())

	// THEN
	assert.ErrorContains(t, err, "device vent: unable to initialize output pwm: no such device")
	_, err = c.Submit(context.Background(), Command{Action: device.ActionOn})
	assert.ErrorIs(t, err, ErrControllerStopped)
}

func TestController_RunOnlyOnce(t *testing.T) {
	// GIVEN
	output := &MockOutput{ID: "pwm", MaxDuty: 255}
	c := NewDeviceController(createConfig(), createDevice(t, device.AllActions, defaultDutyCycles), nil, output, nil)
	stop := startController(t, c)
	defer stop()

	// WHEN
	err := c.Run(context.Background())

	// THEN
	assert.Error(t, err)
}

func TestController_CommandWritesDuty(t *testing.T) {
	// GIVEN
	output := &MockOutput{ID: "pwm", MaxDuty: 1023}
	c := NewDeviceController(createConfig(), createDevice(t, device.AllActions, defaultDutyCycles), nil, output, nil)
	stop := startController(t, c)
	defer stop()

	// WHEN
	state, err := c.Submit(context.Background(), Command{Origin: "test", Action: device.ActionOn})

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, 2, state.Device.Target)
	assert.Equal(t, device.ActionOn, state.Device.Action)
	assert.Equal(t, 409, state.Duty)
	duty, _ := output.GetDuty()
	assert.Equal(t, 409, duty)
}

func TestController_RejectedCommand(t *testing.T) {
	// GIVEN
	output := &MockOutput{ID: "pwm", MaxDuty: 1023}
	d := createDevice(t, []device.Action{device.ActionOn, device.ActionOff}, defaultDutyCycles)
	p := &MockPersistence{}
	c := NewDeviceController(createConfig(), d, nil, output, p)
	stop := startController(t, c)
	defer stop()

	// WHEN
	state, err := c.Submit(context.Background(), Command{Origin: "test", Action: device.ActionUp})

	// THEN
	assert.ErrorIs(t, err, device.ErrActionNotAvailable)
	assert.Equal(t, 0, state.Device.Target)
	assert.Equal(t, device.ActionOff, state.Device.Action)
	assert.Equal(t, uint64(1), state.Statistics.RejectedCommandCount)
	history, _ := p.LoadCommandHistory("vent", 0)
	assert.Len(t, history, 1)
	assert.NotEmpty(t, history[0].Error)
}

func TestController_ConcurrentUpCommandsSerialize(t *testing.T) {
	// GIVEN
	dutyCycles := make([]int, 50)
	for i := range dutyCycles {
		dutyCycles[i] = i * 2
	}
	output := &MockOutput{ID: "pwm", MaxDuty: 1000}
	d, err := device.New("vent", device.AllActions, dutyCycles, 0, 1)
	require.NoError(t, err)
	c := NewDeviceController(createConfig(), d, nil, output, nil)
	stop := startController(t, c)
	defer stop()

	// WHEN
	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Submit(context.Background(), Command{Origin: "test", Action: device.ActionUp})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// THEN
	state := c.GetState()
	assert.Equal(t, 30, state.Device.Target)
	duty, _ := output.GetDuty()
	assert.Equal(t, ScaleDuty(60, 1000), duty)
}

func TestController_HistoryFollowsApplicationOrder(t *testing.T) {
	// GIVEN
	dutyCycles := make([]int, 50)
	for i := range dutyCycles {
		dutyCycles[i] = i * 2
	}
	output := &MockOutput{ID: "pwm", MaxDuty: 1000}
	d, err := device.New("vent", device.AllActions, dutyCycles, 0, 1)
	require.NoError(t, err)
	p := &MockPersistence{}
	c := NewDeviceController(createConfig(), d, nil, output, p)
	stop := startController(t, c)
	defer stop()

	// WHEN
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Submit(context.Background(), Command{Origin: "test", Action: device.ActionUp})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// THEN
	history, err := p.LoadCommandHistory("vent", 0)
	require.NoError(t, err)
	require.Len(t, history, 40)
	for i, record := range history {
		assert.Equal(t, i+1, record.Target)
	}
}

func TestController_ManualOnCommand(t *testing.T) {
	// GIVEN
	sensor := createSensor(2050)
	output := &MockOutput{ID: "pwm", MaxDuty: 1023}
	config := createConfig()
	config.ManualOnCommand = true
	c := NewDeviceController(config, createDevice(t, device.AllActions, defaultDutyCycles), sensor, output, nil)
	stop := startController(t, c)
	defer stop()
	require.Eventually(t, func() bool {
		return c.GetState().Device.Target == 3
	}, waitFor, time.Millisecond)

	// WHEN
	state, err := c.Submit(context.Background(), Command{Origin: "test", Action: device.ActionOff})

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, ModeManual, state.Mode)
	ticks := state.Statistics.TickCount
	require.Eventually(t, func() bool {
		return c.GetState().Statistics.TickCount >= ticks+5
	}, waitFor, time.Millisecond)
	assert.Equal(t, 0, c.GetState().Device.Target)

	// WHEN
	state, err = c.SetMode(context.Background(), ModeAuto)

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, ModeAuto, state.Mode)
	assert.Eventually(t, func() bool {
		return c.GetState().Device.Target == 3
	}, waitFor, time.Millisecond)
}

func TestController_AutoModeWithoutSensor(t *testing.T) {
	// GIVEN
	output := &MockOutput{ID: "pwm", MaxDuty: 1023}
	c := NewDeviceController(createConfig(), createDevice(t, device.AllActions, defaultDutyCycles), nil, output, nil)
	stop := startController(t, c)
	defer stop()

	// WHEN
	state, err := c.SetMode(context.Background(), ModeAuto)

	// THEN
	assert.ErrorIs(t, err, ErrInvalidMode)
	assert.Equal(t, ModeManual, state.Mode)
	assert.False(t, state.HasSensor)
}

func TestController_ObserversReceiveStates(t *testing.T) {
	// GIVEN
	observer := &MockObserver{}
	output := &MockOutput{ID: "pwm", MaxDuty: 1023}
	c := NewDeviceController(createConfig(), createDevice(t, device.AllActions, defaultDutyCycles), nil, output, nil, observer)

	// WHEN
	stop := startController(t, c)
	defer stop()

	// THEN
	assert.Eventually(t, func() bool {
		return observer.Count() >= 3
	}, waitFor, time.Millisecond)
}

func TestController_CommandHistory(t *testing.T) {
	// GIVEN
	p := &MockPersistence{}
	output := &MockOutput{ID: "pwm", MaxDuty: 1023}
	c := NewDeviceController(createConfig(), createDevice(t, device.AllActions, defaultDutyCycles), nil, output, p)
	stop := startController(t, c)
	defer stop()
	level := 4

	// WHEN
	_, err := c.Submit(context.Background(), Command{Origin: "rest", Action: device.ActionSet, Level: &level})

	// THEN
	assert.NoError(t, err)
	history, _ := p.LoadCommandHistory("vent", 0)
	require.Len(t, history, 1)
	assert.Equal(t, "rest", history[0].Origin)
	assert.Equal(t, "set", history[0].Action)
	assert.Equal(t, 4, history[0].Target)
	assert.Empty(t, history[0].Error)
}

func TestSubmitUnknownDevice(t *testing.T) {
	// WHEN
	_, err := Submit(context.Background(), "does-not-exist", Command{Action: device.ActionOn})

	// THEN
	assert.ErrorIs(t, err, ErrUnknownDevice)
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode(" Manual ")
	assert.NoError(t, err)
	assert.Equal(t, ModeManual, mode)

	_, err = ParseMode("turbo")
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestController_ZeroTickRateUsesDefault(t *testing.T) {
	// GIVEN
	sensor := createSensor(2050)
	output := &MockOutput{ID: "pwm", MaxDuty: 1023}
	config := createConfig()
	config.TickRate = 0

	// WHEN
	c := NewDeviceController(config, createDevice(t, device.AllActions, defaultDutyCycles), sensor, output, nil)
	stop := startController(t, c)
	defer stop()

	// THEN
	assert.Eventually(t, func() bool {
		return c.GetState().Statistics.TickCount >= 2
	}, waitFor, time.Millisecond)
	assert.Equal(t, 3, c.GetState().Device.Target)
}
