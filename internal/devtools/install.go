package devtools

import "sync"

// The process-wide hook slot. External tooling installs here before any
// engine is constructed; engines pick it up as their default hook.
var (
	globalMu   sync.Mutex
	globalHook Hook
)

// Install places hook into the global slot. Installation is idempotent:
// if a hook is already installed, Install is a no-op and reports false.
func Install(hook Hook) bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalHook != nil {
		return false
	}
	globalHook = hook
	return true
}

// Installed returns the globally installed hook, or nil.
func Installed() Hook {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalHook
}

// reset clears the slot. Tests only.
func reset() {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalHook = nil
}
