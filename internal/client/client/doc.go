// Package client talks to a running otpagent.
//
// The Client interface is what the CLI uses in agent mode; GRPCClient is
// its gRPC implementation. GRPCClient keeps the session token returned by
// Unlock, attaches it to every later call through an interceptor, and maps
// gRPC status codes to sentinel errors (ErrUnavailable, ErrUnauthorized,
// common.ErrTokenExpired, common.ErrVaultLocked, common.ErrorNotFound).
package client
