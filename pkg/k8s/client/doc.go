// Package client builds the shared Kubernetes client used by the
// Kubernetes secret resolver. Configuration is discovered from KUBECONFIG,
// ~/.kube/config, or the in-cluster service account, in that order.
package client
