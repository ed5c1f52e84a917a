package impact

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/akmonengine/impact/settings"
	"github.com/invopop/jsonschema"
)

// Config holds the tunables of a World
type Config struct {
	AABBExtension     float64 `json:"aabbExtension" jsonschema:"title=AABB extension,description=Margin added around every proxy box in meters,minimum=0"`
	AABBMultiplier    float64 `json:"aabbMultiplier" jsonschema:"title=AABB multiplier,description=Scale of the displacement used to extend a moved proxy box,minimum=0"`
	TOITolerance      float64 `json:"toiTolerance" jsonschema:"title=TOI tolerance,description=Target separation of continuous collision in meters,minimum=0"`
	ContinuousPhysics bool    `json:"continuousPhysics" jsonschema:"title=Continuous physics,description=Clamp bullets at their time of impact"`
	MaxTOIContacts    int     `json:"maxTOIContacts" jsonschema:"title=Max TOI contacts,description=Number of impacts resolved per step,minimum=1"`
	Workers           int     `json:"workers" jsonschema:"title=Workers,description=Goroutines used to advance bodies,minimum=1"`
	Debug             bool    `json:"debug" jsonschema:"title=Debug,description=Enable per-step debug logging"`
}

func DefaultConfig() Config {
	return Config{
		AABBExtension:     settings.AABBExtension,
		AABBMultiplier:    settings.AABBMultiplier,
		TOITolerance:      settings.TOISlop,
		ContinuousPhysics: true,
		MaxTOIContacts:    settings.MaxTOIContacts,
		Workers:           DEFAULT_WORKERS,
	}
}

// Validate reports the first invalid field, wrapping ErrInvalidConfig
func (c Config) Validate() error {
	positive := []struct {
		name  string
		value float64
	}{
		{"aabbExtension", c.AABBExtension},
		{"aabbMultiplier", c.AABBMultiplier},
		{"toiTolerance", c.TOITolerance},
	}
	for _, field := range positive {
		if math.IsNaN(field.value) || math.IsInf(field.value, 0) || field.value <= 0 {
			return fmt.Errorf("%s must be a positive number, got %v: %w", field.name, field.value, ErrInvalidConfig)
		}
	}

	if c.MaxTOIContacts <= 0 {
		return fmt.Errorf("maxTOIContacts must be positive, got %d: %w", c.MaxTOIContacts, ErrInvalidConfig)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d: %w", c.Workers, ErrInvalidConfig)
	}

	return nil
}

// LoadConfig decodes JSON over DefaultConfig and validates the result.
// Unknown fields are rejected.
func LoadConfig(r io.Reader) (Config, error) {
	config := DefaultConfig()

	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&config); err != nil {
		return Config{}, fmt.Errorf("decode config: %v: %w", err, ErrInvalidConfig)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

// ConfigSchema describes Config as a JSON schema
func ConfigSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(new(Config))
	schema.Title = "impact world configuration"
	schema.Description = "Tunables of a collision world"
	return schema
}
