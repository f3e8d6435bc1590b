// Package common contains constants, sentinel errors and small helpers
// shared by the finsync client and server.
package common

// AccessTokenHeaderName is the gRPC metadata key carrying the access token
// on authenticated calls.
const AccessTokenHeaderName = "access_token"

// DefaultMaxBatchOps is the per-commit operation ceiling enforced by the
// remote document store.
const DefaultMaxBatchOps = 500
