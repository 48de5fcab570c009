// Package retry provides exponential backoff retry and readiness polling.
//
// A [Policy] holds max attempts, initial delay, cap and multiplier together
// with the clock used to wait between attempts, so callers can inject a fake
// clock or near-zero delays in tests. [Policy.Do] retries an operation until it
// succeeds or returns a [Fatal] error, up to the attempt limit.
// [Policy.Poll] waits for a condition with the same backoff shape bounded by
// an overall deadline.
package retry
