package core

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"unicode"
)

// registry holds the modules linked into the binary. Packages add
// themselves from init, so it is filled before main runs.
type registry struct {
	mu   sync.RWMutex
	byID map[ModuleID]ModuleInfo
}

var modules = &registry{byID: make(map[ModuleID]ModuleInfo)}

// RegisterModule adds instance's module to the registry. A malformed ID, a
// nil constructor or a duplicate ID is a programming error and panics.
func RegisterModule(instance Module) {
	info := instance.ModuleInfo()
	if !info.ID.valid() {
		panic(fmt.Sprintf("core: module id %q is not <namespace>.<name>", info.ID))
	}
	if info.New == nil {
		panic(fmt.Sprintf("core: module %s has no constructor", info.ID))
	}

	modules.mu.Lock()
	defer modules.mu.Unlock()
	if _, dup := modules.byID[info.ID]; dup {
		panic(fmt.Sprintf("core: module %s registered twice", info.ID))
	}
	modules.byID[info.ID] = info
}

// GetModule looks a module up by its config key.
func GetModule(id string) (ModuleInfo, bool) {
	modules.mu.RLock()
	defer modules.mu.RUnlock()
	info, ok := modules.byID[ModuleID(id)]
	return info, ok
}

// GetModules lists every registered module by ID.
func GetModules() []ModuleInfo {
	return modules.list(func(ModuleID) bool { return true })
}

// GetModulesByNamespace lists the modules of one namespace, e.g. "trigger".
func GetModulesByNamespace(namespace string) []ModuleInfo {
	namespace = strings.TrimSuffix(namespace, ".")
	return modules.list(func(id ModuleID) bool { return id.Namespace() == namespace })
}

func (r *registry) list(keep func(ModuleID) bool) []ModuleInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ModuleInfo, 0, len(r.byID))
	for id, info := range r.byID {
		if keep(id) {
			out = append(out, info)
		}
	}
	slices.SortFunc(out, func(a, b ModuleInfo) int { return strings.Compare(string(a.ID), string(b.ID)) })
	return out
}

// resetRegistry empties the registry for tests.
func resetRegistry() {
	modules.mu.Lock()
	defer modules.mu.Unlock()
	modules.byID = make(map[ModuleID]ModuleInfo)
}

// valid reports whether id has a non-empty namespace and name and no
// whitespace, so it can be used as a config key.
func (id ModuleID) valid() bool {
	ns, name, ok := strings.Cut(string(id), ".")
	return ok && ns != "" && name != "" && !strings.ContainsFunc(string(id), unicode.IsSpace)
}
