// Copyright (c) 2025, the EdgeGate authors.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package secrets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/edgegate/edgegate/pkg/defaults"
)

// Kubernetes resolves secret references against the cluster API and
// materializes the key material to disk, returning the canonical file-path
// attributes the renderer expects. Lookups are rate limited so a pass over a
// large configuration does not hammer the API server.
type Kubernetes struct {
	client  kubernetes.Interface
	certDir string
	limiter *rate.Limiter
	timeout time.Duration
}

// KubernetesOption configures a Kubernetes resolver.
type KubernetesOption func(*Kubernetes)

// WithRateLimit overrides the default API lookup rate limit.
func WithRateLimit(limit rate.Limit, burst int) KubernetesOption {
	return func(k *Kubernetes) {
		k.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithCallTimeout overrides the per-lookup timeout.
func WithCallTimeout(d time.Duration) KubernetesOption {
	return func(k *Kubernetes) {
		k.timeout = d
	}
}

// NewKubernetes creates a resolver that fetches Secrets through client and
// writes their material under certDir/<namespace>/<name>/.
func NewKubernetes(client kubernetes.Interface, certDir string, opts ...KubernetesOption) *Kubernetes {
	k := &Kubernetes{
		client:  client,
		certDir: certDir,
		limiter: rate.NewLimiter(rate.Limit(defaults.SecretAPIRateLimit), defaults.SecretAPIBurst),
		timeout: defaults.SecretResolveTimeout,
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Resolve implements Resolver. A Secret without a tls.crt entry counts as
// not found: it cannot satisfy a TLS context reference.
func (k *Kubernetes) Resolve(ctx context.Context, req Request) (map[string]any, error) {
	if err := k.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for secret lookup slot: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	sec, err := k.client.CoreV1().Secrets(req.Namespace).Get(callCtx, req.Name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil, fmt.Errorf("secret %s/%s: %w", req.Namespace, req.Name, ErrNotFound)
		}
		return nil, fmt.Errorf("fetching secret %s/%s: %w", req.Namespace, req.Name, err)
	}

	chain, ok := sec.Data[CertChainFileName]
	if !ok {
		slog.Warn("secret has no certificate chain entry",
			"secret", req.Name,
			"namespace", req.Namespace,
			"consumer", req.Consumer)
		return nil, fmt.Errorf("secret %s/%s has no %s: %w", req.Namespace, req.Name, CertChainFileName, ErrNotFound)
	}

	dir := filepath.Join(k.certDir, req.Namespace, req.Name)
	if err := os.MkdirAll(dir, defaults.CertDirMode); err != nil {
		return nil, fmt.Errorf("creating cert dir %s: %w", dir, err)
	}

	chainPath := filepath.Join(dir, CertChainFileName)
	if err := os.WriteFile(chainPath, chain, defaults.CertFileMode); err != nil {
		return nil, fmt.Errorf("writing %s: %w", chainPath, err)
	}

	attrs := map[string]any{
		AttrCertificateChainFile: chainPath,
	}

	if key, ok := sec.Data[PrivateKeyFileName]; ok {
		keyPath := filepath.Join(dir, PrivateKeyFileName)
		if err := os.WriteFile(keyPath, key, defaults.CertFileMode); err != nil {
			return nil, fmt.Errorf("writing %s: %w", keyPath, err)
		}
		attrs[AttrPrivateKeyFile] = keyPath
	}

	slog.Debug("kubernetes secret resolved",
		"secret", req.Name,
		"namespace", req.Namespace,
		"consumer", req.Consumer,
		"dir", dir)
	return attrs, nil
}
