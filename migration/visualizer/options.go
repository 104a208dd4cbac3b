package visualizer

// Options configures the diagram.
type Options struct {
	// ShowMigrations labels transitions with their migration type. No-op
	// transitions stay unlabelled.
	ShowMigrations bool

	// Direction controls diagram flow: "TB" (top-bottom) or "LR" (left-right).
	Direction string

	// HighlightPath highlights a path of states, as returned by Plan.FollowPath.
	HighlightPath []string

	// HideRandomStates renders scaffolding states created by merges and
	// clones without their generated names.
	HideRandomStates bool
}

// DefaultOptions returns the defaults.
func DefaultOptions() Options {
	return Options{
		ShowMigrations: true,
		Direction:      "TB",
	}
}

// WithShowMigrations enables or disables transition labels.
func (o Options) WithShowMigrations(show bool) Options {
	o.ShowMigrations = show

	return o
}

// WithDirection sets the diagram direction.
func (o Options) WithDirection(direction string) Options {
	o.Direction = direction

	return o
}

// WithHighlightPath sets states to highlight.
func (o Options) WithHighlightPath(path []string) Options {
	o.HighlightPath = path

	return o
}

// WithHideRandomStates enables or disables hiding generated state names.
func (o Options) WithHideRandomStates(hide bool) Options {
	o.HideRandomStates = hide

	return o
}
