// Package k8s wraps the Kubernetes API calls of a cluster deployment.
//
// Every call goes through one client-side rate limiter shared by all
// workers. [Classify] sorts API errors into retry classes and [Retryable]
// converts an error into the form the retry policy understands.
package k8s
