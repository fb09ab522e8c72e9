// Package chainapi provides the REST client for the options reference API.
//
// Endpoints:
//   - GET /v1/chains/{underlying}/expirations
//   - GET /v1/chains/{underlying}/{expiration}  (cursor-paginated)
//   - GET /v1/spot/{underlying}
//
// Requests are rate limited and retried with jittered exponential backoff
// on 429 and 5xx responses.
package chainapi
