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
	"log/slog"

	"github.com/edgegate/edgegate/pkg/config"
	egerrors "github.com/edgegate/edgegate/pkg/errors"
	"github.com/edgegate/edgegate/pkg/secrets"
)

// Entity kinds compiled by this package.
const (
	KindTLSContext = "tls-context"
	KindTLSModule  = "tls-module"
)

// TLSModuleName is the module slot consulted for the singleton TLS module.
const TLSModuleName = "tls"

// Attribute keys on a TLS context. Users may write the short
// "cert_chain_file" form; Setup renames it to the canonical key the
// renderer expects.
const (
	attrCertChainFile         = "cert_chain_file"
	attrCertificateChainFile  = secrets.AttrCertificateChainFile
	attrPrivateKeyFile        = secrets.AttrPrivateKeyFile
	attrSecret                = "secret"
	attrRedirectCleartextFrom = "redirect_cleartext_from"
	attrValidTLS              = "valid_tls"
)

const tlsDisabledNotice = "TLS is not being turned on, traffic will NOT be served over HTTPS"

// builtinTLSDefaults is the defaults table used when no override is given.
// Defaults only fill attributes absent on a context, never overwrite.
func builtinTLSDefaults() map[string]map[string]any {
	return map[string]map[string]any{
		"server": {
			"alpn_protocols": "h2,http/1.1",
		},
	}
}

// TLSContext is one compiled TLS configuration: resolved certificate or
// secret material plus the derived validity flag the renderer keys on.
// The fields the engine inspects are typed; everything else the user wrote
// stays in the embedded attribute bag.
type TLSContext struct {
	Resource

	CertificateChainFile  string
	PrivateKeyFile        string
	Secret                string
	RedirectCleartextFrom any

	valid bool
}

// NewTLSContext builds a TLS context from a raw resource, splitting the
// known attribute keys out of the bag into typed fields.
func NewTLSContext(errs *egerrors.Aggregator, res *config.Resource) *TLSContext {
	attrs := res.AsDict()

	t := &TLSContext{}

	// The short user-facing key renames to the canonical one here, so the
	// rest of the pipeline only ever sees certificate_chain_file.
	if v, ok := attrs[attrCertChainFile].(string); ok {
		t.CertificateChainFile = v
	}
	delete(attrs, attrCertChainFile)
	if v, ok := attrs[attrCertificateChainFile].(string); ok && t.CertificateChainFile == "" {
		t.CertificateChainFile = v
	}
	delete(attrs, attrCertificateChainFile)

	if v, ok := attrs[attrPrivateKeyFile].(string); ok {
		t.PrivateKeyFile = v
	}
	delete(attrs, attrPrivateKeyFile)

	if v, ok := attrs[attrSecret].(string); ok {
		t.Secret = v
	}
	delete(attrs, attrSecret)

	if v, ok := attrs[attrRedirectCleartextFrom]; ok {
		t.RedirectCleartextFrom = v
	}
	delete(attrs, attrRedirectCleartextFrom)

	t.Resource = NewResource(errs, Identity{
		Kind:     KindTLSContext,
		Name:     res.Name,
		RKey:     res.RKey,
		Location: res.Location,
	}, res.Enabled, attrs)

	return t
}

// Valid reports the derived validity computed by Setup.
func (t *TLSContext) Valid() bool {
	return t.valid
}

// Setup validates the context and computes its validity. The outcome rules:
// a disabled context is invalid without being a validation failure; a
// secret reference conflicting with existing certificate files is a hard
// error that clears all three attributes and never reaches the resolver;
// otherwise the context is valid iff a secret is specified, both cert
// files are present and exist, or a cleartext redirect is configured.
func (t *TLSContext) Setup(ctx context.Context, ir *IR, agg *config.Aggregate) bool {
	if !t.Enabled() {
		return false
	}

	t.valid = false

	chainOK := t.checkFile(ir, t.CertificateChainFile, attrCertificateChainFile)
	keyOK := t.checkFile(ir, t.PrivateKeyFile, attrPrivateKeyFile)

	// Validity requires both files; a lone good file never counts. A
	// missing-on-disk file has already posted its errors above but does
	// not by itself block a secret from validating the context.
	certSpecified := t.CertificateChainFile != "" && chainOK &&
		t.PrivateKeyFile != "" && keyOK

	// Any usable certificate file alongside a secret reference is a hard
	// conflict, reported per entity regardless of the pass-wide notice
	// state, and checked before resolution so a conflicting context never
	// reaches the resolver.
	anyCert := (t.CertificateChainFile != "" && chainOK) || (t.PrivateKeyFile != "" && keyOK)
	if t.Secret != "" && anyCert {
		t.Secret = ""
		t.CertificateChainFile = ""
		t.PrivateKeyFile = ""
		t.PostError(egerrors.Newf(egerrors.ErrCodeConflict,
			"TLS context '%s': both secret and certificate files are specified", t.Identity().Name))
		t.PostError(egerrors.New(egerrors.ErrCodeInvalidResource, tlsDisabledNotice))
		return false
	}

	secretSpecified := t.Secret != ""

	if secretSpecified && ir.Resolver() != nil {
		resolved, err := ir.Resolver().Resolve(ctx, secrets.Request{
			Name:      t.Secret,
			Namespace: ir.Namespace(),
			Consumer:  t.Identity().String(),
		})
		if err != nil {
			secretResolutions.WithLabelValues("failed").Inc()
			t.PostError(egerrors.Wrap(egerrors.ErrCodeSecretUnresolved,
				"secret "+t.Secret+" could not be resolved", err))
			t.PostError(egerrors.New(egerrors.ErrCodeInvalidResource, tlsDisabledNotice))
			return false
		}
		secretResolutions.WithLabelValues("resolved").Inc()
		t.mergeResolved(resolved)
	}

	if secretSpecified || certSpecified || t.RedirectCleartextFrom != nil {
		t.valid = true
	}

	t.backfillDefaults(ir)

	slog.Debug("tls context setup complete",
		"name", t.Identity().Name,
		"valid", t.valid,
		"secret", secretSpecified,
		"cert", certSpecified,
		"redirect", t.RedirectCleartextFrom != nil)

	return t.valid
}

// checkFile validates one certificate path through the injected checker.
// A present-but-missing path posts the scoped error and raises the
// pass-wide notice; the notice dedup lives on the aggregator, not here.
func (t *TLSContext) checkFile(ir *IR, path, label string) bool {
	if path == "" {
		return false
	}
	if ir.CheckFile(path) {
		return true
	}

	t.PostError(egerrors.Newf(egerrors.ErrCodeInvalidResource,
		"TLS context '%s': %s path %s does not exist", t.Identity().Name, label, path))
	t.Aggregator().PostNoticeOnce(egerrors.NoticeTLSDisabled, tlsDisabledNotice)
	return false
}

// mergeResolved folds resolver output into the context. Canonical keys land
// in the typed fields, everything else in the bag; resolved values may
// overwrite placeholders.
func (t *TLSContext) mergeResolved(resolved map[string]any) {
	for k, v := range resolved {
		switch k {
		case attrCertificateChainFile:
			if s, ok := v.(string); ok {
				t.CertificateChainFile = s
				continue
			}
		case attrPrivateKeyFile:
			if s, ok := v.(string); ok {
				t.PrivateKeyFile = s
				continue
			}
		}
		t.Set(k, v)
	}
}

// backfillDefaults copies defaults-table values for keys the context does
// not already carry, typed fields included.
func (t *TLSContext) backfillDefaults(ir *IR) {
	for k, v := range ir.TLSDefaults(t.Identity().Name) {
		switch k {
		case attrCertificateChainFile, attrCertChainFile:
			if t.CertificateChainFile == "" {
				if s, ok := v.(string); ok {
					t.CertificateChainFile = s
				}
			}
		case attrPrivateKeyFile:
			if t.PrivateKeyFile == "" {
				if s, ok := v.(string); ok {
					t.PrivateKeyFile = s
				}
			}
		case attrSecret:
			if t.Secret == "" {
				if s, ok := v.(string); ok {
					t.Secret = s
				}
			}
		case attrRedirectCleartextFrom:
			if t.RedirectCleartextFrom == nil {
				t.RedirectCleartextFrom = v
			}
		default:
			if !t.Has(k) {
				t.Set(k, v)
			}
		}
	}
}

// AsDict extends the base snapshot with the typed fields and the derived
// validity flag. Cleared fields are omitted, so a conflicted context shows
// neither secret nor certificate attributes.
func (t *TLSContext) AsDict() map[string]any {
	out := t.Resource.AsDict()
	if t.CertificateChainFile != "" {
		out[attrCertificateChainFile] = t.CertificateChainFile
	}
	if t.PrivateKeyFile != "" {
		out[attrPrivateKeyFile] = t.PrivateKeyFile
	}
	if t.Secret != "" {
		out[attrSecret] = t.Secret
	}
	if t.RedirectCleartextFrom != nil {
		out[attrRedirectCleartextFrom] = t.RedirectCleartextFrom
	}
	out[attrValidTLS] = t.valid
	return out
}

// TLSModule is the singleton passthrough entity for the global TLS module:
// no validation beyond the base contract, valid whenever enabled. It exists
// so renderer-facing module configuration flows through the same lifecycle
// as validated kinds.
type TLSModule struct {
	Resource
}

// NewTLSModule builds the module entity from its raw resource.
func NewTLSModule(errs *egerrors.Aggregator, res *config.Resource) *TLSModule {
	return &TLSModule{
		Resource: NewResource(errs, Identity{
			Kind:     KindTLSModule,
			Name:     res.Name,
			RKey:     res.RKey,
			Location: res.Location,
		}, res.Enabled, res.AsDict()),
	}
}

// Valid reports true whenever the module is enabled.
func (m *TLSModule) Valid() bool {
	return m.Enabled()
}

// Setup is a no-op: the module entity is passthrough configuration.
func (m *TLSModule) Setup(_ context.Context, _ *IR, _ *config.Aggregate) bool {
	return m.Enabled()
}

// TLSModuleFactory loads the singleton TLS module.
type TLSModuleFactory struct{}

// Name implements Factory.
func (f *TLSModuleFactory) Name() string { return "tls-module" }

// LoadAll implements Factory. A configuration without a tls module is a
// no-op.
func (f *TLSModuleFactory) LoadAll(ctx context.Context, ir *IR, agg *config.Aggregate) error {
	mod := agg.GetModule(TLSModuleName)
	if mod == nil {
		return nil
	}

	m := NewTLSModule(ir.Errors(), mod)
	m.Setup(ctx, ir, agg)
	ir.SetTLSModule(m)
	ir.SaveEntity(m)
	slog.Debug("tls module loaded", "name", mod.Name, "location", mod.Location)
	return nil
}

// Finalize implements Factory; the module needs no cross-entity pass.
func (f *TLSModuleFactory) Finalize(_ context.Context, _ *IR, _ *config.Aggregate) error {
	return nil
}

// TLSContextFactory loads every tls-context resource. Contexts are not a
// singleton kind: one entity is built per discovered resource.
type TLSContextFactory struct{}

// Name implements Factory.
func (f *TLSContextFactory) Name() string { return "tls-context" }

// LoadAll implements Factory.
func (f *TLSContextFactory) LoadAll(ctx context.Context, ir *IR, agg *config.Aggregate) error {
	for _, res := range agg.ResourcesOfKind(KindTLSContext) {
		t := NewTLSContext(ir.Errors(), res)
		valid := t.Setup(ctx, ir, agg)
		if !valid && t.Enabled() {
			invalidEntities.WithLabelValues(KindTLSContext).Inc()
		}
		ir.SaveEntity(t)
	}
	return nil
}

// Finalize implements Factory: with every kind loaded, log the pass-level
// TLS outcome.
func (f *TLSContextFactory) Finalize(_ context.Context, ir *IR, _ *config.Aggregate) error {
	all := ir.AllOfKind(KindTLSContext)
	valid := ir.AllValid(KindTLSContext)
	slog.Debug("tls contexts finalized", "total", len(all), "valid", len(valid))
	return nil
}
