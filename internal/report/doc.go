// Package report records the outcome of one deployment run and persists it
// to a local file or an S3-compatible bucket.
package report
