// Package s3 archives remote script transcripts to S3-compatible storage.
//
// Transcripts are stored as plain text objects at
// <prefix>/<zone>/<worker>/<started>.log. Uploads are retried except when the
// store rejects the request outright (missing bucket, bad credentials).
package s3
