// Kernel configuration.
//
// Information Hiding:
// - Default values hidden
// - System prompt assembly hidden in the kernel

package agent

// DefaultMaxIterations bounds the reasoning loop when no override is given.
const DefaultMaxIterations = 10

// Config holds kernel configuration.
type Config struct {
	// Name identifies the kernel in logs.
	Name string

	// SystemPrompt is prepended to the generated tool catalog. Empty
	// selects the built-in prompt.
	SystemPrompt string

	// MaxIterations bounds the reason/act loop. Zero selects the default.
	MaxIterations int
}

// DefaultConfig returns a basic kernel configuration.
func DefaultConfig() Config {
	return Config{
		Name: "chronica",
	}
}

// Iterations returns the configured ceiling, defaulting when zero.
func (c *Config) Iterations() int {
	if c.MaxIterations <= 0 {
		return DefaultMaxIterations
	}
	return c.MaxIterations
}
