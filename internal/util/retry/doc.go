// Package retry provides exponential backoff for transient download failures.
//
// The [Do] function performs no retries unless [WithMaxRetries] is given;
// the provisioning pipeline only retries when the operator opts in.
// Errors marked with [Fatal] are returned immediately.
package retry
