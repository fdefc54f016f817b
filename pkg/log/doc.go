// Package log wraps zerolog with the component-logger convention used
// across the scheduler: every pipeline stage gets a child logger
// carrying its component name so log lines can be filtered per stage
// without threading a logger through every call.
package log
