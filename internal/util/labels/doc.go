// Package labels provides consistent labeling for the Kubernetes objects of a
// validator cluster.
//
// Labels follow the app.kubernetes.io recommended keys plus a solk8s.io/role
// key, built with a fluent builder. The per-node name label doubles as the
// selector of that node's Deployment and Service.
package labels
