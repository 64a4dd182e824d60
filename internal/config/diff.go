package config

import (
	"maps"
	"slices"
)

// ConfigDiff describes what changed between two configs. Hot-reloadable
// settings get a flag each; anything else that changed is listed in
// RestartRequired by its YAML path.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	AlignmentChanged bool
	ReshapeChanged   bool
	ReferenceChanged bool
	OutputChanged    bool

	// RestartRequired lists settings that only take effect after a restart.
	RestartRequired []string
}

// HotChanged reports whether any hot-reloadable setting changed.
func (d ConfigDiff) HotChanged() bool {
	return d.LogLevelChanged || d.AlignmentChanged || d.ReshapeChanged ||
		d.ReferenceChanged || d.OutputChanged
}

// Diff compares old and new configs and returns what changed.
// Tuning parameters are compared by their effective values, so spelling out
// a default explicitly is not a change.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	d.AlignmentChanged = old.AlignParams() != new.AlignParams()
	d.ReshapeChanged = old.ReshapeParams() != new.ReshapeParams()
	d.ReferenceChanged = !referenceEqual(old.Reference, new.Reference)
	d.OutputChanged = old.Output != new.Output

	if old.Server.ListenAddr != new.Server.ListenAddr {
		d.RestartRequired = append(d.RestartRequired, "server.listen_addr")
	}
	if !tlsEqual(old.Server.TLS, new.Server.TLS) {
		d.RestartRequired = append(d.RestartRequired, "server.tls")
	}
	if old.Server.MaxBodyBytes != new.Server.MaxBodyBytes {
		d.RestartRequired = append(d.RestartRequired, "server.max_body_bytes")
	}
	if old.Store != new.Store {
		d.RestartRequired = append(d.RestartRequired, "store")
	}
	if old.Telemetry != new.Telemetry {
		d.RestartRequired = append(d.RestartRequired, "telemetry")
	}
	return d
}

func referenceEqual(a, b ReferenceConfig) bool {
	return maps.Equal(a.Aliases, b.Aliases) &&
		slices.Equal(a.KnownSpeakers, b.KnownSpeakers) &&
		a.PhoneticThreshold == b.PhoneticThreshold &&
		a.FuzzyThreshold == b.FuzzyThreshold &&
		a.MinSupport == b.MinSupport
}

func tlsEqual(a, b *TLSConfig) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
