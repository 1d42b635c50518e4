// Package agent is the chat entry point. It resolves each user turn against
// the conversation so far and either answers directly, builds a guarded
// transfer preview, compares exchange quotes, or defers to the configured
// conversational backend.
package agent
