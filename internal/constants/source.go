package constants

// Source identifies which surface submitted a boot attempt
type Source string

const (
	// SourceCLI indicates the attempt came from the boot console
	SourceCLI Source = "cli"

	// SourceMCP indicates the attempt came from an MCP tool call
	SourceMCP Source = "mcp"

	// SourceSweep indicates the attempt was generated by a glitch-window sweep
	SourceSweep Source = "sweep"
)

// Valid returns true if the source is a recognized value.
func (s Source) Valid() bool {
	switch s {
	case SourceCLI, SourceMCP, SourceSweep:
		return true
	}
	return false
}

// String returns the string representation of the source.
func (s Source) String() string {
	return string(s)
}
