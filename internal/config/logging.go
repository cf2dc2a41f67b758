package config

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level" json:"level,omitempty"`           // debug, info, warn, error
	Format     string          `yaml:"format" json:"format,omitempty"`         // json, text
	File       string          `yaml:"file" json:"file,omitempty"`             // empty means stderr
	DebugMode  bool            `yaml:"debug_mode" json:"debug_mode,omitempty"` // forces level=debug
	Categories map[string]bool `yaml:"categories" json:"categories,omitempty"` // Per-category toggles
}

// IsCategoryEnabled returns whether logging is enabled for a category.
// Categories not listed are enabled.
func (c *LoggingConfig) IsCategoryEnabled(category string) bool {
	if c.Categories == nil {
		return true
	}
	enabled, exists := c.Categories[category]
	if !exists {
		return true
	}
	return enabled
}

// EffectiveLevel returns the configured level, or debug when DebugMode is set.
func (c *LoggingConfig) EffectiveLevel() string {
	if c.DebugMode {
		return "debug"
	}
	if c.Level == "" {
		return "info"
	}
	return c.Level
}
