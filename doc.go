// Package youlyauth implements the account registration, password recovery,
// and refresh-session core of the youly platform: one-time passcodes gated by
// cooldowns, spam locks, and escalating attempt lockouts, staged (pending)
// registrations, single-use reset tokens, and per-user sets of live refresh
// sessions. All transient state lives in Redis as TTL-expiring records; the
// engine holds no mutable in-process state and is safe for concurrent use
// after construction through [Builder.Build].
//
// # Architecture boundaries
//
// youlyauth is the public surface. It exposes [Engine], [Builder], [Config],
// the closed error set, and small value types. Key layouts, counters, and
// flow storage live under internal/ and are never exported. The relational
// user store, the token signer, the password hasher, and the outbound
// notifier are collaborators consumed through interfaces; default
// implementations ship in userstore/, jwt/, password/, and email/.
//
// # Consistency model
//
// Correctness within a flow relies on the atomicity of single-key Redis
// primitives (INCR, SET EX, SADD), never on cross-key transactions. A
// restriction check and the write that follows it are separate round trips,
// so two concurrent issuance requests may both clear the cooldown gate; the
// window costs at most one extra OTP and never bypasses verification. TTL
// expiry is the only cleanup path for abandoned state.
package youlyauth
