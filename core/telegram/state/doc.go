// Package state tracks per-user conversation state for free-text input steps,
// routing plain messages to the handler registered for the user's current state.
package state
