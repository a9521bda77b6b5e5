// Package mms implements the credential-resolution chain for the MMS legacy
// cloud API used by Bali/MiOS/Ezlo hubs.
//
// Opening the persistent relay session requires four dependent HTTP calls
// with very different lifetimes:
//
//  1. PortalAuthenticator: username/password login against the OEM auth
//     portal, producing a long-lived signed PortalIdentity (~24h) that embeds
//     its expiry and the account id.
//  2. SessionTokenResolver: the identity is exchanged on its account server
//     for a short-lived SessionToken. Re-derived on every resolution.
//  3. DeviceResolver: the session token authorizes the account device
//     listing; the first hub is selected (multi-hub accounts are not
//     supported).
//  4. The device's server is asked for its Server_Relay assignment.
//
// Resolver composes the four stages behind a single Resolve call and a
// mutex, so concurrent callers collapse into one chain execution. The portal
// identity is the only cached artifact: it is reused until a safety margin
// before its embedded expiry, which makes resolution idempotent while the
// identity is fresh (stage 1 issues zero HTTP calls on a cache hit).
//
// Every stage runs over the Transport capability, so each is independently
// testable against a stub HTTP layer. Failures carry a ChainError that
// identifies the failing link and wraps the triggering error.
package mms
