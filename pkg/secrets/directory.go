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
	"log/slog"
	"os"
	"path/filepath"
)

// Well-known file names inside a mounted secret directory. These mirror the
// kubernetes.io/tls secret data keys.
const (
	CertChainFileName  = "tls.crt"
	PrivateKeyFileName = "tls.key"
)

// Directory resolves secrets from a file tree of pre-mounted key material,
// laid out as <root>/<namespace>/<name>/{tls.crt,tls.key}. It performs no
// network I/O, which makes it the right resolver for hosts that mount
// secrets via their orchestrator.
type Directory struct {
	root string
}

// NewDirectory creates a Directory resolver rooted at root.
func NewDirectory(root string) *Directory {
	return &Directory{root: root}
}

// Resolve implements Resolver. The certificate chain file is required; the
// private key is included only when present.
func (d *Directory) Resolve(_ context.Context, req Request) (map[string]any, error) {
	dir := filepath.Join(d.root, req.Namespace, req.Name)

	chain := filepath.Join(dir, CertChainFileName)
	if _, err := os.Stat(chain); err != nil {
		slog.Debug("directory secret miss", "secret", req.Name, "namespace", req.Namespace, "path", chain)
		return nil, ErrNotFound
	}

	attrs := map[string]any{
		AttrCertificateChainFile: chain,
	}

	key := filepath.Join(dir, PrivateKeyFileName)
	if _, err := os.Stat(key); err == nil {
		attrs[AttrPrivateKeyFile] = key
	}

	slog.Debug("directory secret resolved",
		"secret", req.Name,
		"namespace", req.Namespace,
		"consumer", req.Consumer,
		"dir", dir)
	return attrs, nil
}
