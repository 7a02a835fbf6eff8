// Package core defines the shared data model of a collaboration run: turns,
// the append-only transcript, run/agent configuration and the terminal run
// result, plus the error taxonomy that the runner maps to terminal states.
//
// Types in this package carry no behavior beyond construction, validation and
// read access. All mutation of conversation state happens in the runner
// package, which is the sole writer of a Transcript for the duration of a
// run.
package core
