// Package driven declares what the core needs from the outside world.
// Services depend only on these interfaces; internal/adapters/driven
// provides the implementations and internal/app picks among them.
//
// Every port except PromptStore must be supplied. Without a PromptStore
// the services use DefaultPrompts.
//
// This package may import domain and nothing else from internal/.
package driven
