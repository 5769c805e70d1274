// Package ledger provides a client for the Cleaker ledger, a remote service
// that records facts as (verb, key, value) triples under a named context.
//
// Every operation is a single POST of {"query", "variables"} against the
// configured endpoint, answered by a {"data", "errors"} envelope. The write
// surface is a closed set of verbs (be, have, at, relate, react, communicate
// and do) that share one request shape and one result shape; Record is the
// primitive behind all of them. Reads go through Get with a GetFilter.
//
// Failures are always reported as *Error, whose Kind tells transport
// failures, malformed payloads, server-reported errors and empty envelopes
// apart. A write that the server declines returns (false, nil), never an
// error, and no error is ever folded into false.
package ledger
