// Package supervisor owns the process lifecycle: it holds the single
// instance lock, launches the submission and comment watchers as independent
// goroutines, reports classifier readiness at startup and drives graceful
// shutdown with a bounded grace period.
package supervisor
