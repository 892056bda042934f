// Package api is the JSON HTTP surface of the chatbot backend. It maps the
// RAG engine's three operations (answer, personalize, translate) and the
// credential store onto request/response bodies, and owns everything the
// engine deliberately does not: authentication, request limits, rate
// limiting, CORS, and persisting chat history after an answer.
//
// Middleware stack, outermost first:
//
//	Recovery → RequestID → Logging → CORS → RateLimit → Token → Routes
//
// Health probes (/health, /ready) sit outside the stack so orchestrators
// are never rate-limited into marking the service dead.
package api
