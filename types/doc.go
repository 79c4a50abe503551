// Package types defines the descriptor structs and enumerations shared
// by the RHI frontend and all backend implementations.
//
// The package has no dependencies on the hal layer or any backend, so
// backends and user code can both import it without cycles.
package types
