package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"sonar-ng/internal/gpio"
)

type Config struct {
	GPIO     GPIOConfig     `yaml:"gpio"`
	Trigger  TriggerConfig  `yaml:"trigger"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Display  DisplayConfig  `yaml:"display"`
	Sim      SimConfig      `yaml:"sim"`
	Web      WebConfig      `yaml:"web"`
}

type GPIOConfig struct {
	// Chip is e.g. "gpiochip0". Empty searches every chip for the lines.
	Chip string `yaml:"chip"`
	// Lines are BCM numbers ("16") or kernel line names ("GPIO16").
	TriggerLine string `yaml:"trigger_line"`
	EchoLine    string `yaml:"echo_line"`
	// EchoBias is one of as-is, disabled, pull-down, pull-up.
	EchoBias string `yaml:"echo_bias"`
}

type TriggerConfig struct {
	Period time.Duration `yaml:"period"`
	Pulse  time.Duration `yaml:"pulse"`
}

type PipelineConfig struct {
	PulseQueue     int           `yaml:"pulse_queue"`
	DistanceQueue  int           `yaml:"distance_queue"`
	ReceiveTimeout time.Duration `yaml:"receive_timeout"`
	SendTimeout    time.Duration `yaml:"send_timeout"`
}

type DisplayConfig struct {
	Enable  bool   `yaml:"enable"`
	I2CBus  string `yaml:"i2c_bus"`
	Address int    `yaml:"address"`
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
}

type SimConfig struct {
	Enable bool          `yaml:"enable"`
	MinCm  float64       `yaml:"min_cm"`
	MaxCm  float64       `yaml:"max_cm"`
	Period time.Duration `yaml:"period"`
	// Scenario is an optional keyframe script; it replaces the sweep.
	Scenario string `yaml:"scenario"`
	Loop     bool   `yaml:"loop"`
}

type WebConfig struct {
	// Listen is the HTTP address for the status API. Empty disables it.
	Listen   string `yaml:"listen"`
	LogLines int    `yaml:"log_lines"`
}

const (
	minTriggerPeriod = 15 * time.Millisecond
	maxTriggerPeriod = 2 * time.Second
	minTriggerPulse  = 10 * time.Microsecond
)

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(b)
}

func Parse(b []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	applyDefaults(&cfg)
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	cfg.GPIO.Chip = strings.TrimSpace(cfg.GPIO.Chip)
	cfg.GPIO.TriggerLine = strings.TrimSpace(cfg.GPIO.TriggerLine)
	cfg.GPIO.EchoLine = strings.TrimSpace(cfg.GPIO.EchoLine)
	if cfg.GPIO.EchoBias == "" {
		cfg.GPIO.EchoBias = string(gpio.BiasAsIs)
	}

	if cfg.Trigger.Period == 0 {
		cfg.Trigger.Period = 500 * time.Millisecond
	}
	if cfg.Trigger.Pulse == 0 {
		cfg.Trigger.Pulse = 10 * time.Microsecond
	}

	if cfg.Pipeline.PulseQueue == 0 {
		cfg.Pipeline.PulseQueue = 32
	}
	if cfg.Pipeline.DistanceQueue == 0 {
		cfg.Pipeline.DistanceQueue = 32
	}
	if cfg.Pipeline.ReceiveTimeout == 0 {
		cfg.Pipeline.ReceiveTimeout = 50 * time.Millisecond
	}
	if cfg.Pipeline.SendTimeout == 0 {
		cfg.Pipeline.SendTimeout = 10 * time.Millisecond
	}

	if cfg.Display.I2CBus == "" {
		cfg.Display.I2CBus = "/dev/i2c-1"
	}
	if cfg.Display.Address == 0 {
		cfg.Display.Address = 0x3C
	}
	if cfg.Display.Width == 0 {
		cfg.Display.Width = 128
	}
	if cfg.Display.Height == 0 {
		cfg.Display.Height = 32
	}

	// Simulator defaults (safe even if disabled).
	if cfg.Sim.MinCm == 0 && cfg.Sim.MaxCm == 0 {
		cfg.Sim.MinCm = 2
		cfg.Sim.MaxCm = 420
	}
	if cfg.Sim.Period <= 0 {
		cfg.Sim.Period = 20 * time.Second
	}

	if cfg.Web.LogLines <= 0 {
		cfg.Web.LogLines = 2000
	}
}

func validate(cfg Config) error {
	if !cfg.Sim.Enable {
		if cfg.GPIO.TriggerLine == "" {
			return fmt.Errorf("gpio.trigger_line is required unless sim.enable is true")
		}
		if cfg.GPIO.EchoLine == "" {
			return fmt.Errorf("gpio.echo_line is required unless sim.enable is true")
		}
		if cfg.GPIO.TriggerLine == cfg.GPIO.EchoLine {
			return fmt.Errorf("gpio.trigger_line and gpio.echo_line must differ")
		}
	}
	if _, err := gpio.ParseBias(cfg.GPIO.EchoBias); err != nil {
		return fmt.Errorf("gpio.echo_bias must be one of as-is, disabled, pull-down, pull-up")
	}

	if cfg.Trigger.Period < minTriggerPeriod || cfg.Trigger.Period > maxTriggerPeriod {
		return fmt.Errorf("trigger.period must be between %s and %s", minTriggerPeriod, maxTriggerPeriod)
	}
	if cfg.Trigger.Pulse < minTriggerPulse {
		return fmt.Errorf("trigger.pulse must be >= %s", minTriggerPulse)
	}
	if cfg.Trigger.Pulse >= cfg.Trigger.Period {
		return fmt.Errorf("trigger.pulse must be shorter than trigger.period")
	}

	if cfg.Pipeline.PulseQueue < 1 {
		return fmt.Errorf("pipeline.pulse_queue must be >= 1")
	}
	if cfg.Pipeline.DistanceQueue < 1 {
		return fmt.Errorf("pipeline.distance_queue must be >= 1")
	}
	if cfg.Pipeline.ReceiveTimeout < 0 || cfg.Pipeline.SendTimeout < 0 {
		return fmt.Errorf("pipeline timeouts must be > 0")
	}

	if cfg.Display.Enable {
		if cfg.Display.Address < 0x03 || cfg.Display.Address > 0x77 {
			return fmt.Errorf("display.address 0x%X is not a valid 7-bit i2c address", cfg.Display.Address)
		}
		if cfg.Display.Width < 1 || cfg.Display.Width > 128 {
			return fmt.Errorf("display.width must be between 1 and 128")
		}
		if cfg.Display.Height != 32 && cfg.Display.Height != 64 {
			return fmt.Errorf("display.height must be 32 or 64")
		}
	}

	if cfg.Sim.Enable {
		if cfg.Sim.MinCm < 0 || cfg.Sim.MaxCm < cfg.Sim.MinCm {
			return fmt.Errorf("sim.min_cm must be >= 0 and <= sim.max_cm")
		}
	}
	return nil
}
