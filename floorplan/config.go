package floorplan

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the unified service configuration loaded from YAML.
type Config struct {
	MQTT      MQTTConfig      `yaml:"mqtt" json:"mqtt"`
	HTTP      HTTPConfig      `yaml:"http" json:"http"`
	Store     StoreConfig     `yaml:"store" json:"store"`
	Detection DetectionConfig `yaml:"detection" json:"detection"`
	Neural    NeuralConfig    `yaml:"neural" json:"neural"`
	Floors    []FloorConfig   `yaml:"floors" json:"floors"`
}

// MQTTConfig configures the optional detection-event publisher.
type MQTTConfig struct {
	Broker   string `yaml:"broker" json:"broker"`
	ClientID string `yaml:"clientId" json:"clientId"`
	Username string `yaml:"username,omitempty" json:"username,omitempty"`
	Password string `yaml:"password,omitempty" json:"password,omitempty"`
	Prefix   string `yaml:"prefix,omitempty" json:"prefix,omitempty"`
}

// HTTPConfig configures the HTTP API server.
type HTTPConfig struct {
	Port int `yaml:"port" json:"port"`
}

// StoreConfig configures learning-sample persistence.
type StoreConfig struct {
	Dir string `yaml:"dir" json:"dir"`
}

// NeuralConfig configures the optional remote neural detector. An empty
// URL means no neural detector is registered.
type NeuralConfig struct {
	URL            string  `yaml:"url,omitempty" json:"url,omitempty"`
	TimeoutSeconds float64 `yaml:"timeoutSeconds,omitempty" json:"timeoutSeconds,omitempty"`
}

// DetectionConfig holds the tunable thresholds of the traditional
// pipeline. Zero values are replaced by defaults in ApplyDefaults.
type DetectionConfig struct {
	// Binarization threshold (0-255) for portrait plans; landscape plans
	// scan lighter and use this minus LandscapeThresholdDelta.
	BinarizeThreshold       int `yaml:"binarizeThreshold" json:"binarizeThreshold"`
	LandscapeThresholdDelta int `yaml:"landscapeThresholdDelta" json:"landscapeThresholdDelta"`

	MinRoomSizePercent float64 `yaml:"minRoomSizePercent" json:"minRoomSizePercent"`
	MaxRoomSizePercent float64 `yaml:"maxRoomSizePercent" json:"maxRoomSizePercent"`
	CompactnessFloor   float64 `yaml:"compactnessFloor" json:"compactnessFloor"`
	OverlapLimit       float64 `yaml:"overlapLimit" json:"overlapLimit"`

	// Learning store behavior.
	SampleCap       int     `yaml:"sampleCap" json:"sampleCap"`
	AcceptThreshold float64 `yaml:"acceptThreshold" json:"acceptThreshold"`
}

// FloorConfig carries per-floor detection knowledge: how many rooms the
// floor is expected to have, known room names, and classification rules.
type FloorConfig struct {
	ID            string     `yaml:"id" json:"id"`
	Prefix        string     `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	ExpectedRooms int        `yaml:"expectedRooms" json:"expectedRooms"`
	RoomNames     []string   `yaml:"roomNames,omitempty" json:"roomNames,omitempty"`
	Rules         []RoomRule `yaml:"rules,omitempty" json:"rules,omitempty"`
	NorthNames    []string   `yaml:"northNames,omitempty" json:"northNames,omitempty"`
	SouthNames    []string   `yaml:"southNames,omitempty" json:"southNames,omitempty"`
}

// RoomRule is one ordered classification rule for a floor. A zero bound
// means "unbounded" on that side. Position predicates are fractions of
// the target space ("north" = center above NorthOf, "south" = below
// SouthOf).
type RoomRule struct {
	Type         RoomType `yaml:"type" json:"type"`
	MinAreaFrac  float64  `yaml:"minAreaFrac,omitempty" json:"minAreaFrac,omitempty"`
	MaxAreaFrac  float64  `yaml:"maxAreaFrac,omitempty" json:"maxAreaFrac,omitempty"`
	MinAspect    float64  `yaml:"minAspect,omitempty" json:"minAspect,omitempty"`
	MaxAspect    float64  `yaml:"maxAspect,omitempty" json:"maxAspect,omitempty"`
	NorthOf      float64  `yaml:"northOf,omitempty" json:"northOf,omitempty"`
	SouthOf      float64  `yaml:"southOf,omitempty" json:"southOf,omitempty"`
}

// LoadConfig loads the unified configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	// Validate floor configs
	seen := make(map[string]bool)
	for i, fc := range config.Floors {
		if fc.ID == "" {
			return nil, fmt.Errorf("floor[%d].id is required", i)
		}
		if seen[fc.ID] {
			return nil, fmt.Errorf("floor[%d]: duplicate floor id %q", i, fc.ID)
		}
		seen[fc.ID] = true
	}

	config.Detection.ApplyDefaults()
	return &config, nil
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// ApplyDefaults fills zero-valued thresholds with the tuned defaults.
func (dc *DetectionConfig) ApplyDefaults() {
	if dc.BinarizeThreshold == 0 {
		dc.BinarizeThreshold = 128
	}
	if dc.LandscapeThresholdDelta == 0 {
		dc.LandscapeThresholdDelta = 8
	}
	if dc.MinRoomSizePercent == 0 {
		dc.MinRoomSizePercent = 0.02
	}
	if dc.MaxRoomSizePercent == 0 {
		dc.MaxRoomSizePercent = 0.70
	}
	if dc.CompactnessFloor == 0 {
		dc.CompactnessFloor = 0.01
	}
	if dc.OverlapLimit == 0 {
		dc.OverlapLimit = 0.35
	}
	if dc.SampleCap == 0 {
		dc.SampleCap = 8
	}
	if dc.AcceptThreshold == 0 {
		dc.AcceptThreshold = 0.75
	}
}

// FloorByID returns the configuration block for a floor, or nil when the
// floor is unknown to the config.
func (c *Config) FloorByID(id string) *FloorConfig {
	for i := range c.Floors {
		if c.Floors[i].ID == id {
			return &c.Floors[i]
		}
	}
	return nil
}
