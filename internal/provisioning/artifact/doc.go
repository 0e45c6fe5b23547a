// Package artifact implements the ARTIFACT_FETCH stage.
//
// The install root is deleted and recreated on every run, then populated
// from the architecture-specific application bundle and the auxiliary geo
// data files. Bundles may be served over HTTP(S), from S3-compatible object
// storage (s3://bucket/key) or as OCI images (oci://registry/repo:tag).
// Archives are extracted with path validation, so no entry can be written
// outside the install root.
package artifact
