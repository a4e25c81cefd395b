// Package tasks is the built-in task library: small handlers covering the
// common animation verbs (move, fade, colorshift), a story-level progress
// logger, and await-signal, which demonstrates the wait-queue suspension
// contract. All handlers follow the multi-stage dispatch protocol and
// register through RegisterBuiltins.
package tasks
