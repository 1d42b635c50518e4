// Package llm defines the conversational backend the assistant defers to for
// free-form replies. Provider adapters live in sub-packages.
package llm
