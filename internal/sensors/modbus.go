package sensors

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/goburrow/modbus"
	"github.com/markusressel/vent2go/internal/configuration"
)

type modbusHandler interface {
	modbus.ClientHandler
	Connect() error
	Close() error
}

// ModbusSensor reads a single 16 bit register of a Modbus TCP or RTU device
type ModbusSensor struct {
	movingAvg
	Config configuration.SensorConfig

	mu      sync.Mutex
	handler modbusHandler
	client  modbus.Client
}

func (sensor *ModbusSensor) GetId() string {
	return sensor.Config.ID
}

func (sensor *ModbusSensor) GetConfig() configuration.SensorConfig {
	return sensor.Config
}

func (sensor *ModbusSensor) connect() {
	config := sensor.Config.Modbus
	if len(config.Address) > 0 {
		handler := modbus.NewTCPClientHandler(config.Address)
		handler.Timeout = config.Timeout
		handler.SlaveId = config.SlaveId
		sensor.handler = handler
	} else {
		handler := modbus.NewRTUClientHandler(config.Port)
		handler.BaudRate = config.BaudRate
		handler.DataBits = 8
		handler.Parity = "N"
		handler.StopBits = 1
		handler.Timeout = config.Timeout
		handler.SlaveId = config.SlaveId
		sensor.handler = handler
	}
	sensor.client = modbus.NewClient(sensor.handler)
}

func (sensor *ModbusSensor) GetValue() (float64, error) {
	sensor.mu.Lock()
	defer sensor.mu.Unlock()

	if sensor.client == nil {
		sensor.connect()
	}

	config := sensor.Config.Modbus
	var results []byte
	var err error
	if config.Holding {
		results, err = sensor.client.ReadHoldingRegisters(config.Register, 1)
	} else {
		results, err = sensor.client.ReadInputRegisters(config.Register, 1)
	}
	if err != nil {
		sensor.reset()
		return 0, fmt.Errorf("sensor %s: reading register %d: %w", sensor.GetId(), config.Register, err)
	}

	return decodeRegister(results, config.Signed)
}

// reset drops the connection, the next read reconnects
func (sensor *ModbusSensor) reset() {
	if sensor.handler != nil {
		_ = sensor.handler.Close()
		sensor.handler = nil
		sensor.client = nil
	}
}

// Close releases the underlying connection
func (sensor *ModbusSensor) Close() {
	sensor.mu.Lock()
	defer sensor.mu.Unlock()
	sensor.reset()
}

func decodeRegister(data []byte, signed bool) (float64, error) {
	if len(data) < 2 {
		return 0, fmt.Errorf("short register response: %d bytes", len(data))
	}
	raw := binary.BigEndian.Uint16(data)
	if signed {
		return float64(int16(raw)), nil
	}
	return float64(raw), nil
}
