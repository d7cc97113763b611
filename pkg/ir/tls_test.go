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

package ir

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgegate/edgegate/pkg/config"
	"github.com/edgegate/edgegate/pkg/secrets"
)

// countingResolver records every call so tests can assert the resolver was
// or was not consulted.
type countingResolver struct {
	calls []secrets.Request
	attrs map[string]any
	err   error
}

func (r *countingResolver) Resolve(_ context.Context, req secrets.Request) (map[string]any, error) {
	r.calls = append(r.calls, req)
	if r.err != nil {
		return nil, r.err
	}
	out := make(map[string]any, len(r.attrs))
	for k, v := range r.attrs {
		out[k] = v
	}
	return out, nil
}

// existsChecker is a FileChecker that knows a fixed set of paths.
func existsChecker(paths ...string) FileChecker {
	known := make(map[string]bool, len(paths))
	for _, p := range paths {
		known[p] = true
	}
	return func(path string) bool { return known[path] }
}

func rawContext(name string, enabled bool, attrs map[string]any) *config.Resource {
	return &config.Resource{
		RKey:     "test.yaml.0",
		Kind:     KindTLSContext,
		Name:     name,
		Location: "test.yaml:1",
		Enabled:  enabled,
		Attrs:    attrs,
	}
}

// emptyIR builds an IR over an empty aggregate so entity-level tests can
// drive Setup directly.
func emptyIR(t *testing.T, opts ...Option) *IR {
	t.Helper()
	irc, err := New(context.Background(), config.NewAggregate(), opts...)
	require.NoError(t, err)
	return irc
}

func TestSetupDisabledShortCircuit(t *testing.T) {
	// a disabled entity is invalid without being a validation failure
	irc := emptyIR(t, WithFileChecker(existsChecker()))
	tc := NewTLSContext(irc.Errors(), rawContext("off", false, map[string]any{
		"cert_chain_file": "/missing.crt",
	}))

	assert.False(t, tc.Setup(context.Background(), irc, nil))
	assert.False(t, tc.Valid())
	assert.Zero(t, irc.Errors().ErrorCount(), "disabled entities post no errors")
	assert.Empty(t, irc.Errors().Notices())
}

func TestSetupConflictPriority(t *testing.T) {
	// secret + both existing cert files is a hard conflict: attributes
	// cleared, resolver never invoked
	resolver := &countingResolver{attrs: map[string]any{}}
	irc := emptyIR(t,
		WithFileChecker(existsChecker("/certs/tls.crt", "/certs/tls.key")),
		WithSecretResolver(resolver),
	)
	tc := NewTLSContext(irc.Errors(), rawContext("server", true, map[string]any{
		"secret":           "server-tls",
		"cert_chain_file":  "/certs/tls.crt",
		"private_key_file": "/certs/tls.key",
	}))

	assert.False(t, tc.Setup(context.Background(), irc, nil))
	assert.False(t, tc.Valid())
	assert.Empty(t, resolver.calls, "conflicting entity must never reach the resolver")

	assert.Empty(t, tc.Secret)
	assert.Empty(t, tc.CertificateChainFile)
	assert.Empty(t, tc.PrivateKeyFile)

	require.Equal(t, 2, irc.Errors().ErrorCount(), "conflict posts two scoped errors")
	for _, e := range irc.Errors().Messages() {
		assert.Equal(t, "tls-context/server", e.ResourceID)
	}
}

func TestSetupSecretResolves(t *testing.T) {
	// secret resolves to a chain file: valid, attribute merged
	resolver := &countingResolver{attrs: map[string]any{
		secrets.AttrCertificateChainFile: "/x",
	}}
	irc := emptyIR(t, WithFileChecker(existsChecker()), WithSecretResolver(resolver))
	tc := NewTLSContext(irc.Errors(), rawContext("server", true, map[string]any{
		"secret": "foo",
	}))

	assert.True(t, tc.Setup(context.Background(), irc, nil))
	assert.True(t, tc.Valid())
	assert.Equal(t, "/x", tc.CertificateChainFile)
	assert.Equal(t, "/x", tc.AsDict()[secrets.AttrCertificateChainFile])

	require.Len(t, resolver.calls, 1)
	assert.Equal(t, "foo", resolver.calls[0].Name)
	assert.Equal(t, "tls-context/server", resolver.calls[0].Consumer)
}

func TestSetupSecretWithLoneExistingChainConflicts(t *testing.T) {
	// secret + existing chain file (no key): still a conflict, neither
	// attribute survives, two scoped errors
	resolver := &countingResolver{}
	irc := emptyIR(t,
		WithFileChecker(existsChecker("/x")),
		WithSecretResolver(resolver),
	)
	tc := NewTLSContext(irc.Errors(), rawContext("server", true, map[string]any{
		"secret":          "foo",
		"cert_chain_file": "/x",
	}))

	assert.False(t, tc.Setup(context.Background(), irc, nil))
	assert.Empty(t, resolver.calls)

	d := tc.AsDict()
	assert.NotContains(t, d, "secret")
	assert.NotContains(t, d, secrets.AttrCertificateChainFile)
	assert.Equal(t, 2, irc.Errors().ErrorCount())
}

func TestSetupMissingChainFile(t *testing.T) {
	// missing chain file: scoped error naming the path, one pass notice,
	// invalid
	irc := emptyIR(t, WithFileChecker(existsChecker()))
	tc := NewTLSContext(irc.Errors(), rawContext("server", true, map[string]any{
		"cert_chain_file": "/missing",
	}))

	assert.False(t, tc.Setup(context.Background(), irc, nil))
	assert.False(t, tc.Valid())

	msgs := irc.Errors().Messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Err.Message, "/missing")
	assert.Contains(t, msgs[0].Err.Message, "server")
	assert.Len(t, irc.Errors().Notices(), 1)
}

func TestSetupNothingConfigured(t *testing.T) {
	// nothing configured: invalid, but no errors posted
	irc := emptyIR(t, WithFileChecker(existsChecker()))
	tc := NewTLSContext(irc.Errors(), rawContext("bare", true, nil))

	assert.False(t, tc.Setup(context.Background(), irc, nil))
	assert.False(t, tc.Valid())
	assert.Zero(t, irc.Errors().ErrorCount())
	assert.Empty(t, irc.Errors().Notices())
}

func TestSetupDefaultsBackfillAbsentKey(t *testing.T) {
	// defaults backfill an absent key
	irc := emptyIR(t,
		WithFileChecker(existsChecker()),
		WithTLSDefaults("server", map[string]any{"min_tls_version": "1.2"}),
	)
	tc := NewTLSContext(irc.Errors(), rawContext("server", true, map[string]any{
		"redirect_cleartext_from": 8080,
	}))

	assert.True(t, tc.Setup(context.Background(), irc, nil))
	v, _ := tc.Get("min_tls_version")
	assert.Equal(t, "1.2", v)
}

func TestSetupDefaultsNeverOverride(t *testing.T) {
	// an explicitly set value survives backfill; absent keys take the
	// default, typed fields included
	irc := emptyIR(t,
		WithFileChecker(existsChecker()),
		WithTLSDefaults("server", map[string]any{
			"min_tls_version": "1.2",
			"alpn_protocols":  "h2,http/1.1",
			"secret":          "default-tls",
		}),
	)
	tc := NewTLSContext(irc.Errors(), rawContext("server", true, map[string]any{
		"alpn_protocols": "http/1.1",
		"secret":         "explicit-tls",
	}))

	tc.Setup(context.Background(), irc, nil)

	v, _ := tc.Get("alpn_protocols")
	assert.Equal(t, "http/1.1", v, "explicit bag value overridden by default")
	assert.Equal(t, "explicit-tls", tc.Secret, "explicit typed value overridden by default")
	v, _ = tc.Get("min_tls_version")
	assert.Equal(t, "1.2", v, "absent key not backfilled")
}

func TestSetupValidityDisjunction(t *testing.T) {
	// valid iff secret, both-certs, or redirect, with the secret/cert
	// conflict enforced first
	const (
		chain = "/certs/tls.crt"
		key   = "/certs/tls.key"
	)

	for i := 0; i < 8; i++ {
		secret := i&1 != 0
		cert := i&2 != 0
		redirect := i&4 != 0

		name := fmt.Sprintf("secret=%v/cert=%v/redirect=%v", secret, cert, redirect)
		t.Run(name, func(t *testing.T) {
			attrs := map[string]any{}
			if secret {
				attrs["secret"] = "tls-secret"
			}
			if cert {
				attrs["cert_chain_file"] = chain
				attrs["private_key_file"] = key
			}
			if redirect {
				attrs["redirect_cleartext_from"] = 8080
			}

			resolver := &countingResolver{attrs: map[string]any{}}
			irc := emptyIR(t,
				WithFileChecker(existsChecker(chain, key)),
				WithSecretResolver(resolver),
			)
			tc := NewTLSContext(irc.Errors(), rawContext("ctx", true, attrs))
			got := tc.Setup(context.Background(), irc, nil)

			want := (secret || cert || redirect) && !(secret && cert)
			assert.Equal(t, want, got, "setup return")
			assert.Equal(t, want, tc.Valid(), "valid flag")
			if secret && cert {
				assert.Empty(t, resolver.calls)
			}
		})
	}
}

func TestSetupOneTimeNotice(t *testing.T) {
	// N entities with missing cert files yield N scoped errors but a
	// single pass-wide notice
	irc := emptyIR(t, WithFileChecker(existsChecker()))

	const n = 4
	for i := 0; i < n; i++ {
		tc := NewTLSContext(irc.Errors(), rawContext(fmt.Sprintf("ctx-%d", i), true, map[string]any{
			"cert_chain_file": fmt.Sprintf("/missing-%d.crt", i),
		}))
		assert.False(t, tc.Setup(context.Background(), irc, nil))
	}

	assert.Equal(t, n, irc.Errors().ErrorCount())
	assert.Len(t, irc.Errors().Notices(), 1, "notice must fire exactly once per pass")
}

func TestSetupBothOrNeitherAsymmetry(t *testing.T) {
	// A good chain file with a missing key file posts the error and the
	// notice but does not block an independently valid secret.
	resolver := &countingResolver{attrs: map[string]any{}}
	irc := emptyIR(t,
		WithFileChecker(existsChecker()), // neither file exists on disk
		WithSecretResolver(resolver),
	)
	tc := NewTLSContext(irc.Errors(), rawContext("mixed", true, map[string]any{
		"secret":          "backup-tls",
		"cert_chain_file": "/gone.crt",
	}))

	assert.True(t, tc.Setup(context.Background(), irc, nil), "secret should still validate the context")
	assert.Equal(t, 1, irc.Errors().ErrorCount(), "missing file error still posted")
	assert.Len(t, irc.Errors().Notices(), 1)
	require.Len(t, resolver.calls, 1)
}

func TestSetupLoneExistingChainNotSufficient(t *testing.T) {
	// both-or-neither: one existing file without the other never validates.
	irc := emptyIR(t, WithFileChecker(existsChecker("/certs/tls.crt")))
	tc := NewTLSContext(irc.Errors(), rawContext("halfway", true, map[string]any{
		"cert_chain_file": "/certs/tls.crt",
	}))

	assert.False(t, tc.Setup(context.Background(), irc, nil))
	assert.Zero(t, irc.Errors().ErrorCount(), "a present-and-existing lone file is not an error")
}

func TestSetupUnresolvedSecret(t *testing.T) {
	resolver := &countingResolver{err: secrets.ErrNotFound}
	irc := emptyIR(t, WithFileChecker(existsChecker()), WithSecretResolver(resolver))
	tc := NewTLSContext(irc.Errors(), rawContext("server", true, map[string]any{
		"secret": "gone",
	}))

	assert.False(t, tc.Setup(context.Background(), irc, nil))
	assert.Equal(t, 2, irc.Errors().ErrorCount(), "resolver miss posts the scoped error and the TLS-off notice")
	msgs := irc.Errors().Messages()
	assert.Contains(t, msgs[0].Err.Message, "gone")
}

func TestSetupSecretWithoutResolverStillCounts(t *testing.T) {
	// no resolver capability configured: the reference is not resolved but
	// still counts toward validity.
	irc := emptyIR(t, WithFileChecker(existsChecker()))
	tc := NewTLSContext(irc.Errors(), rawContext("server", true, map[string]any{
		"secret": "unresolved-ref",
	}))

	assert.True(t, tc.Setup(context.Background(), irc, nil))
	assert.Equal(t, "unresolved-ref", tc.Secret)
	assert.Zero(t, irc.Errors().ErrorCount())
}

func TestSetupCanonicalRename(t *testing.T) {
	irc := emptyIR(t, WithFileChecker(existsChecker("/certs/tls.crt", "/certs/tls.key")))
	tc := NewTLSContext(irc.Errors(), rawContext("server", true, map[string]any{
		"cert_chain_file":  "/certs/tls.crt",
		"private_key_file": "/certs/tls.key",
	}))

	assert.True(t, tc.Setup(context.Background(), irc, nil))

	d := tc.AsDict()
	assert.Equal(t, "/certs/tls.crt", d[secrets.AttrCertificateChainFile])
	assert.NotContains(t, d, "cert_chain_file", "short form must not survive compilation")
	assert.Equal(t, true, d["valid_tls"])
}

func TestSetupMergeResolvedExtras(t *testing.T) {
	// non-canonical resolver attributes land in the bag.
	resolver := &countingResolver{attrs: map[string]any{
		secrets.AttrCertificateChainFile: "/resolved/tls.crt",
		secrets.AttrPrivateKeyFile:       "/resolved/tls.key",
		"cacert_chain_file":              "/resolved/ca.crt",
	}}
	irc := emptyIR(t, WithFileChecker(existsChecker()), WithSecretResolver(resolver))
	tc := NewTLSContext(irc.Errors(), rawContext("server", true, map[string]any{
		"secret": "bundle",
	}))

	require.True(t, tc.Setup(context.Background(), irc, nil))
	assert.Equal(t, "/resolved/tls.crt", tc.CertificateChainFile)
	assert.Equal(t, "/resolved/tls.key", tc.PrivateKeyFile)
	v, _ := tc.Get("cacert_chain_file")
	assert.Equal(t, "/resolved/ca.crt", v)
}

func TestTLSModulePassthrough(t *testing.T) {
	irc := emptyIR(t)

	mod := NewTLSModule(irc.Errors(), &config.Resource{
		Kind:    config.KindModule,
		Name:    TLSModuleName,
		Enabled: true,
		Attrs:   map[string]any{"server": map[string]any{"alpn_protocols": "h2"}},
	})
	assert.True(t, mod.Setup(context.Background(), irc, nil))
	assert.True(t, mod.Valid())

	disabled := NewTLSModule(irc.Errors(), &config.Resource{
		Kind: config.KindModule, Name: TLSModuleName, Enabled: false,
	})
	assert.False(t, disabled.Setup(context.Background(), irc, nil))
	assert.False(t, disabled.Valid())
	assert.Zero(t, irc.Errors().ErrorCount())
}
