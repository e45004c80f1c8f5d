package ui

// Config contains window and rendering settings.
type Config struct {
	Title   string // window title
	Scale   int    // integer upscaling factor
	Palette int    // index into the shade palette table
}

// Defaults fills missing fields with reasonable defaults.
func (c *Config) Defaults() {
	if c.Title == "" {
		c.Title = "yage"
	}
	if c.Scale <= 0 {
		c.Scale = 3
	}
	if c.Palette < 0 || c.Palette >= len(palettes) {
		c.Palette = 0
	}
}
