package core

import "strings"

// ModuleID names a module as "<namespace>.<name>", for example "gateway.http".
type ModuleID string

// Namespace returns the part of the ID before the first dot.
func (id ModuleID) Namespace() string {
	ns, _, _ := strings.Cut(string(id), ".")
	return ns
}

// Name returns the part of the ID after the first dot, or the whole ID when
// it has no namespace.
func (id ModuleID) Name() string {
	if _, name, ok := strings.Cut(string(id), "."); ok {
		return name
	}
	return string(id)
}

// ModuleInfo describes a registered module.
type ModuleInfo struct {
	ID ModuleID
	// New returns a fresh, unconfigured instance.
	New func() Module
}

// Module is implemented by everything the App can load.
type Module interface {
	ModuleInfo() ModuleInfo
}
