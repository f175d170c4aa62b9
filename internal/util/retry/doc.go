// Package retry provides exponential backoff retry logic for transient failures.
//
// [WithExponentialBackoff] retries an operation with configurable max attempts,
// initial delay and maximum delay. The provider clients wrap every cloud API
// call with it; errors marked with [Fatal] or rejected by [WithRetryIf] stop
// the retry immediately.
package retry
