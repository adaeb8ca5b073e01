// Package votetallyengine implements the vote tally and broadcast engine
// inside the polling context.
//
// The module owns the per-option counters of every poll, the one-active-vote
// per voter session ledger, the reconciliation of vote changes across both
// stores, and the per-poll delta stream consumed by live result viewers.
// Poll metadata and session transport stay behind ports owned by callers.
package votetallyengine
