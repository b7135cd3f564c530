package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical defaults file shipped with
// the repository.
const DefaultConfigPath = "config/tools.defaults.json"

// ToolsConfig holds the settings of both commands. Every field is optional;
// the Get* accessors fall back to the built-in defaults for nil fields, so a
// partial JSON file only overrides what it names.
type ToolsConfig struct {
	// Live plotter
	WindowSize     *int     `json:"window_size,omitempty"`
	BatchSize      *int     `json:"batch_size,omitempty"`
	RedrawInterval *string  `json:"redraw_interval,omitempty"` // duration string like "200ms"
	YMin           *float64 `json:"y_min,omitempty"`
	YMax           *float64 `json:"y_max,omitempty"`
	AutoYRange     *bool    `json:"auto_y_range,omitempty"` // fit each panel to its data instead of y_min/y_max
	PNGPath        *string  `json:"png_path,omitempty"`
	Listen         *string  `json:"listen,omitempty"`

	// Live plotter input sources
	SerialPort       *string  `json:"serial_port,omitempty"`
	SerialBaudRate   *int     `json:"serial_baud_rate,omitempty"`
	SerialDataBits   *int     `json:"serial_data_bits,omitempty"`
	SerialStopBits   *int     `json:"serial_stop_bits,omitempty"`
	SerialParity     *string  `json:"serial_parity,omitempty"` // N, E or O
	MQTTBroker       *string  `json:"mqtt_broker,omitempty"`
	MQTTTopic        *string  `json:"mqtt_topic,omitempty"`
	MQTTCommandTopic *string  `json:"mqtt_command_topic,omitempty"`
	MQTTClientID     *string  `json:"mqtt_client_id,omitempty"`
	StartupCommands  []string `json:"startup_commands,omitempty"` // written to the input device before reading

	// Scan log post-processor
	ServoCenter    *int     `json:"servo_center,omitempty"`
	DegreesPerUnit *float64 `json:"degrees_per_unit,omitempty"`
	InputPath      *string  `json:"input_path,omitempty"`
	OutputPath     *string  `json:"output_path,omitempty"`
}

// EmptyToolsConfig returns a ToolsConfig with all fields set to nil, which
// makes every accessor return its default.
func EmptyToolsConfig() *ToolsConfig {
	return &ToolsConfig{}
}

// LoadToolsConfig loads a ToolsConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadToolsConfig(path string) (*ToolsConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyToolsConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads path when it is non-empty and returns an empty config
// otherwise.
func LoadOrDefault(path string) (*ToolsConfig, error) {
	if path == "" {
		return EmptyToolsConfig(), nil
	}
	return LoadToolsConfig(path)
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath.
// It searches the current directory and its parents up to the repository
// root. Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *ToolsConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // deeper packages
		"../../../../" + DefaultConfigPath, // even deeper
	}
	for _, path := range candidates {
		if cfg, err := LoadToolsConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *ToolsConfig) Validate() error {
	if c.WindowSize != nil && *c.WindowSize <= 0 {
		return fmt.Errorf("window_size must be positive, got %d", *c.WindowSize)
	}
	if c.BatchSize != nil && *c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", *c.BatchSize)
	}

	if c.RedrawInterval != nil && *c.RedrawInterval != "" {
		d, err := time.ParseDuration(*c.RedrawInterval)
		if err != nil {
			return fmt.Errorf("invalid redraw_interval '%s': %w", *c.RedrawInterval, err)
		}
		if d <= 0 {
			return fmt.Errorf("redraw_interval must be positive, got %s", d)
		}
	}

	if c.GetYMin() >= c.GetYMax() {
		return fmt.Errorf("y_min (%g) must be below y_max (%g)", c.GetYMin(), c.GetYMax())
	}

	if c.SerialBaudRate != nil && *c.SerialBaudRate < 0 {
		return fmt.Errorf("serial_baud_rate must be non-negative, got %d", *c.SerialBaudRate)
	}
	if bits := c.GetSerialDataBits(); bits < 5 || bits > 8 {
		return fmt.Errorf("serial_data_bits must be between 5 and 8, got %d", bits)
	}
	if bits := c.GetSerialStopBits(); bits != 1 && bits != 2 {
		return fmt.Errorf("serial_stop_bits must be 1 or 2, got %d", bits)
	}

	if c.DegreesPerUnit != nil && *c.DegreesPerUnit == 0 {
		return fmt.Errorf("degrees_per_unit must be non-zero")
	}

	return nil
}

// GetWindowSize returns the window_size value or the default.
func (c *ToolsConfig) GetWindowSize() int {
	if c.WindowSize == nil {
		return 300
	}
	return *c.WindowSize
}

// GetBatchSize returns the batch_size value or the default.
func (c *ToolsConfig) GetBatchSize() int {
	if c.BatchSize == nil {
		return 50
	}
	return *c.BatchSize
}

// GetRedrawInterval parses and returns the RedrawInterval as a time.Duration.
func (c *ToolsConfig) GetRedrawInterval() time.Duration {
	if c.RedrawInterval == nil || *c.RedrawInterval == "" {
		return 200 * time.Millisecond // default
	}
	d, err := time.ParseDuration(*c.RedrawInterval)
	if err != nil || d <= 0 {
		return 200 * time.Millisecond // default on parse error
	}
	return d
}

// GetYMin returns the y_min value or the default.
func (c *ToolsConfig) GetYMin() float64 {
	if c.YMin == nil {
		return -300
	}
	return *c.YMin
}

// GetYMax returns the y_max value or the default.
func (c *ToolsConfig) GetYMax() float64 {
	if c.YMax == nil {
		return 300
	}
	return *c.YMax
}

// GetAutoYRange reports whether panels fit their data; false by default.
func (c *ToolsConfig) GetAutoYRange() bool {
	return c.AutoYRange != nil && *c.AutoYRange
}

// GetPNGPath returns the png_path value; empty disables the PNG renderer.
func (c *ToolsConfig) GetPNGPath() string {
	if c.PNGPath == nil {
		return ""
	}
	return *c.PNGPath
}

// GetListen returns the listen value; empty disables the HTTP server.
func (c *ToolsConfig) GetListen() string {
	if c.Listen == nil {
		return ""
	}
	return *c.Listen
}

// GetSerialPort returns the serial_port value; empty means read stdin.
func (c *ToolsConfig) GetSerialPort() string {
	if c.SerialPort == nil {
		return ""
	}
	return *c.SerialPort
}

// GetSerialBaudRate returns the serial_baud_rate value or the default.
func (c *ToolsConfig) GetSerialBaudRate() int {
	if c.SerialBaudRate == nil {
		return 9600
	}
	return *c.SerialBaudRate
}

// GetSerialDataBits returns the serial_data_bits value or the default.
func (c *ToolsConfig) GetSerialDataBits() int {
	if c.SerialDataBits == nil {
		return 8
	}
	return *c.SerialDataBits
}

// GetSerialStopBits returns the serial_stop_bits value or the default.
func (c *ToolsConfig) GetSerialStopBits() int {
	if c.SerialStopBits == nil {
		return 1
	}
	return *c.SerialStopBits
}

// GetSerialParity returns the serial_parity value or the default.
func (c *ToolsConfig) GetSerialParity() string {
	if c.SerialParity == nil || *c.SerialParity == "" {
		return "N"
	}
	return *c.SerialParity
}

// GetMQTTBroker returns the mqtt_broker value; empty disables MQTT input.
func (c *ToolsConfig) GetMQTTBroker() string {
	if c.MQTTBroker == nil {
		return ""
	}
	return *c.MQTTBroker
}

// GetMQTTTopic returns the mqtt_topic value or the default.
func (c *ToolsConfig) GetMQTTTopic() string {
	if c.MQTTTopic == nil || *c.MQTTTopic == "" {
		return "lidar-tools/imu"
	}
	return *c.MQTTTopic
}

// GetMQTTCommandTopic returns the mqtt_command_topic value; empty discards
// commands sent to an MQTT input.
func (c *ToolsConfig) GetMQTTCommandTopic() string {
	if c.MQTTCommandTopic == nil {
		return ""
	}
	return *c.MQTTCommandTopic
}

// GetMQTTClientID returns the mqtt_client_id value or the default.
func (c *ToolsConfig) GetMQTTClientID() string {
	if c.MQTTClientID == nil || *c.MQTTClientID == "" {
		return "lidar-tools-liveplot"
	}
	return *c.MQTTClientID
}

// GetStartupCommands returns the commands written to the input device
// before samples are read.
func (c *ToolsConfig) GetStartupCommands() []string {
	return c.StartupCommands
}

// GetServoCenter returns the servo_center value or the default.
func (c *ToolsConfig) GetServoCenter() int {
	if c.ServoCenter == nil {
		return 2500
	}
	return *c.ServoCenter
}

// GetDegreesPerUnit returns the degrees_per_unit value or the default.
func (c *ToolsConfig) GetDegreesPerUnit() float64 {
	if c.DegreesPerUnit == nil {
		return 0.05
	}
	return *c.DegreesPerUnit
}

// GetInputPath returns the input_path value or the default.
func (c *ToolsConfig) GetInputPath() string {
	if c.InputPath == nil || *c.InputPath == "" {
		return "misc/out.txt"
	}
	return *c.InputPath
}

// GetOutputPath returns the output_path value or the default.
func (c *ToolsConfig) GetOutputPath() string {
	if c.OutputPath == nil || *c.OutputPath == "" {
		return "misc/out2.txt"
	}
	return *c.OutputPath
}
