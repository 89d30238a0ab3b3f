package audithook

import "log/slog"

// Option configures an Extension.
type Option func(*Extension)

// WithLogger sets the logger used to report recorder failures.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extension) { e.logger = logger }
}

// WithEnabledActions restricts auditing to the listed actions. Calling it
// again replaces the previous list.
func WithEnabledActions(actions ...string) Option {
	return func(e *Extension) { e.filter.only = set(actions) }
}

// WithDisabledActions skips the listed actions. It composes with
// WithEnabledActions: an action must be enabled and not disabled.
func WithDisabledActions(actions ...string) Option {
	return func(e *Extension) {
		if e.filter.skip == nil {
			e.filter.skip = make(map[string]struct{}, len(actions))
		}
		for _, a := range actions {
			e.filter.skip[a] = struct{}{}
		}
	}
}

// WithMinSeverity drops events below severity. Unknown severities are
// treated as info.
func WithMinSeverity(severity string) Option {
	return func(e *Extension) { e.filter.floor = rank(severity) }
}

// filter decides which events reach the recorder. The zero value passes
// everything.
type filter struct {
	only  map[string]struct{}
	skip  map[string]struct{}
	floor int
}

func (f filter) allows(action, severity string) bool {
	if f.only != nil {
		if _, ok := f.only[action]; !ok {
			return false
		}
	}
	if _, ok := f.skip[action]; ok {
		return false
	}
	return rank(severity) >= f.floor
}

func rank(severity string) int {
	switch severity {
	case SeverityWarning:
		return 1
	case SeverityError:
		return 2
	case SeverityCritical:
		return 3
	default:
		return 0
	}
}

func set(items []string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, s := range items {
		m[s] = struct{}{}
	}
	return m
}
