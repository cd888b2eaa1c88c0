// Package driving declares what the CLI and MCP server may ask of the
// core. Implementations live in internal/core/services.
package driving
