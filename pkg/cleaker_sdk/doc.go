// Package cleaker_sdk bootstraps a ledger.Client from the process
// environment. CLEAKER_RUNTIME_MODE selects between the HTTP client bound to
// CLEAKER_ENDPOINT ("http", the default), an in-memory ledger optionally
// seeded from CLEAKER_MOCK_SEED ("mock"), or HTTP only when an endpoint is
// configured ("auto"). Both variants expose the same ledger.Client API.
package cleaker_sdk
