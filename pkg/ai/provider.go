// Package ai sends code and review context to a large-language-model
// provider and extracts structured analysis from the free-text response.
// Providers are treated as unreliable and slow: every call is bounded by a
// timeout and a malformed or empty response degrades to "no suggestions"
// rather than an error.
package ai

import "context"

// Provider is a completion backend. Implementations must honor context
// cancellation and return plain errors for transport failures; the caller
// decides whether a failure is fatal.
type Provider interface {
	// Complete sends a prompt and returns the response text.
	Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)
	// Name identifies the provider ("openai", "gemini").
	Name() string
}

// The fixed reviewer persona sent as the system message by both providers.
const systemPrompt = "You are an expert code reviewer specializing in code quality, security, and best practices. " +
	"Provide detailed, actionable feedback."

// Completion tunables.
const (
	analysisTemperature = 0.3
	analysisMaxTokens   = 2000
	summaryTemperature  = 0.7
	summaryMaxTokens    = 1500
)
