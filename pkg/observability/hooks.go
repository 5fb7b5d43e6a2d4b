// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about migration stages, file tracking, and tool invocations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach:
//   - Avoids import cycles (hooks are registered by main, not by libraries)
//   - Keeps the core library dependency-free from observability frameworks
//   - Allows different backends (OpenTelemetry, Prometheus, DataDog, etc.)
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetMigrationHooks(&myMigrationHooks{})
//	    observability.SetTrackerHooks(&myTrackerHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Migration().OnStageStart(ctx, "extract")
//	// ... extract dependencies ...
//	observability.Migration().OnStageComplete(ctx, "extract", duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Migration Hooks
// =============================================================================

// MigrationHooks receives events from the migration pipeline.
type MigrationHooks interface {
	// Stage events
	OnStageStart(ctx context.Context, stage string)
	OnStageComplete(ctx context.Context, stage string, duration time.Duration, err error)

	// OnDependenciesExtracted records the result of the extract stage.
	OnDependenciesExtracted(ctx context.Context, format string, count int)

	// OnRollback records that a failed run restored its tracked files.
	OnRollback(ctx context.Context, restored int, failures int)
}

// =============================================================================
// Tracker Hooks
// =============================================================================

// TrackerHooks receives events from file tracking operations.
type TrackerHooks interface {
	// OnFileTracked records a tracked filesystem operation.
	// The op is one of "create", "modify", or "rename".
	OnFileTracked(ctx context.Context, op string, path string)

	// OnRestoreStep records one replayed rollback step.
	OnRestoreStep(ctx context.Context, op string, path string, err error)
}

// =============================================================================
// Tool Hooks
// =============================================================================

// ToolHooks receives events from uv command invocations.
type ToolHooks interface {
	// OnCommandStart records an outgoing tool invocation.
	OnCommandStart(ctx context.Context, args []string)

	// OnCommandComplete records a finished tool invocation.
	OnCommandComplete(ctx context.Context, args []string, duration time.Duration, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopMigrationHooks is a no-op implementation of MigrationHooks.
type NoopMigrationHooks struct{}

func (NoopMigrationHooks) OnStageStart(context.Context, string)                          {}
func (NoopMigrationHooks) OnStageComplete(context.Context, string, time.Duration, error) {}
func (NoopMigrationHooks) OnDependenciesExtracted(context.Context, string, int)          {}
func (NoopMigrationHooks) OnRollback(context.Context, int, int)                          {}

// NoopTrackerHooks is a no-op implementation of TrackerHooks.
type NoopTrackerHooks struct{}

func (NoopTrackerHooks) OnFileTracked(context.Context, string, string)        {}
func (NoopTrackerHooks) OnRestoreStep(context.Context, string, string, error) {}

// NoopToolHooks is a no-op implementation of ToolHooks.
type NoopToolHooks struct{}

func (NoopToolHooks) OnCommandStart(context.Context, []string)                          {}
func (NoopToolHooks) OnCommandComplete(context.Context, []string, time.Duration, error) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	migrationHooks MigrationHooks = NoopMigrationHooks{}
	trackerHooks   TrackerHooks   = NoopTrackerHooks{}
	toolHooks      ToolHooks      = NoopToolHooks{}
	hooksMu        sync.RWMutex
)

// SetMigrationHooks registers custom migration hooks.
// This should be called once at application startup before any migration runs.
func SetMigrationHooks(h MigrationHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		migrationHooks = h
	}
}

// SetTrackerHooks registers custom tracker hooks.
// This should be called once at application startup before any migration runs.
func SetTrackerHooks(h TrackerHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		trackerHooks = h
	}
}

// SetToolHooks registers custom tool hooks.
// This should be called once at application startup before any migration runs.
func SetToolHooks(h ToolHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		toolHooks = h
	}
}

// Migration returns the registered migration hooks.
func Migration() MigrationHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return migrationHooks
}

// Tracker returns the registered tracker hooks.
func Tracker() TrackerHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return trackerHooks
}

// Tool returns the registered tool hooks.
func Tool() ToolHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return toolHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	migrationHooks = NoopMigrationHooks{}
	trackerHooks = NoopTrackerHooks{}
	toolHooks = NoopToolHooks{}
}
