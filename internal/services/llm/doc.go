// Package llm provides a chat completion client for the blog pipeline.
//
// The client wraps the official openai-go SDK, so any OpenAI-compatible
// provider works by setting base_url. Each call carries its own system prompt,
// temperature, and token budget.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.Complete: send a system/user prompt pair, receive the text reply.
// Client.HealthCheck: verify API key and model availability.
//
// # Retry Behaviour
//
// The SDK retries 408/409/429/5xx responses with exponential backoff; the
// attempt count is configurable with WithRetryMaxAttempts. Context
// cancellation aborts retries immediately.
package llm
