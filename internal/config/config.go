// Package config loads daemon settings from the environment and the hotspot
// layout from disk.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/sweeney/hotspot-projector/internal/hotspot"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "HOTSPOT_"

// Env holds the environment-provided defaults for command-line flags.
type Env struct {
	ActivationTime           time.Duration `env:"ACTIVATION_TIME" envDefault:"5s"`
	DeactivationTime         time.Duration `env:"DEACTIVATION_TIME" envDefault:"2s"`
	ForcefulDeactivationTime time.Duration `env:"FORCEFUL_DEACTIVATION_TIME" envDefault:"500ms"`
	Preempt                  bool          `env:"PREEMPT" envDefault:"true"`

	Layout    string        `env:"LAYOUT" envDefault:"hotspots.json"`
	Broker    string        `env:"BROKER" envDefault:"tcp://localhost:1883"`
	HTTPAddr  string        `env:"HTTP" envDefault:":8080"`
	HistoryDB string        `env:"HISTORY_DB"`
	Heartbeat time.Duration `env:"HEARTBEAT" envDefault:"15m"`

	GPIOChip     string        `env:"GPIO_CHIP" envDefault:"gpiochip0"`
	GPIOPins     string        `env:"GPIO_PINS"`
	GPIODebounce time.Duration `env:"GPIO_DEBOUNCE" envDefault:"50ms"`

	// Camera is the capture device index; negative disables the camera source.
	Camera     int           `env:"CAMERA" envDefault:"-1"`
	CameraHold time.Duration `env:"CAMERA_HOLD" envDefault:"150ms"`

	OTelEndpoint string `env:"OTEL_ENDPOINT"`
}

// Load parses the process environment.
func Load() (Env, error) {
	return parse(env.Options{Prefix: EnvPrefix})
}

// LoadFrom parses the given variables instead of the process environment.
// Keys include the prefix.
func LoadFrom(vars map[string]string) (Env, error) {
	return parse(env.Options{Prefix: EnvPrefix, Environment: vars})
}

func parse(opts env.Options) (Env, error) {
	var e Env
	if err := env.ParseWithOptions(&e, opts); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

// Hotspot returns the state machine timing and policy.
func (e Env) Hotspot() hotspot.Config {
	return hotspot.Config{
		ActivationTime:           e.ActivationTime,
		DeactivationTime:         e.DeactivationTime,
		ForcefulDeactivationTime: e.ForcefulDeactivationTime,
		Preempt:                  e.Preempt,
	}
}
