package layout

// Config holds the fixed spacing constants of the layered layout.
type Config struct {
	// LevelMargin is the horizontal gap between two adjacent layers.
	LevelMargin float64
	// RowHeight is the vertical space taken by an ordinary node.
	RowHeight float64
	// PassthroughRowHeight is the vertical space taken by a passthrough node.
	PassthroughRowHeight float64
	// RowGap is added below a nested block.
	RowGap float64
	// ScopeMargin pads the computed scope size on every side.
	ScopeMargin float64
}

// DefaultConfig returns the spacing used when a builder is not configured otherwise.
func DefaultConfig() Config {
	return Config{
		LevelMargin:          40,
		RowHeight:            200,
		PassthroughRowHeight: 40,
		RowGap:               20,
		ScopeMargin:          30,
	}
}
