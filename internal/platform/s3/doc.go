// Package s3 provides a read-only client for S3-compatible object storage.
//
// It is used to fetch application bundles addressed as s3://bucket/key.
// Static credentials are optional; without them the default AWS credential
// chain (environment, shared config, instance role) applies.
package s3
