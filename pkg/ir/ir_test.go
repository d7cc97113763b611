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
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgegate/edgegate/pkg/config"
)

// recordingFactory appends phase markers to a shared journal so tests can
// assert the load/finalize barrier.
type recordingFactory struct {
	name    string
	mu      *sync.Mutex
	journal *[]string
	loadErr error
}

func (f *recordingFactory) Name() string { return f.name }

func (f *recordingFactory) LoadAll(_ context.Context, _ *IR, _ *config.Aggregate) error {
	f.mu.Lock()
	*f.journal = append(*f.journal, "load:"+f.name)
	f.mu.Unlock()
	return f.loadErr
}

func (f *recordingFactory) Finalize(_ context.Context, _ *IR, _ *config.Aggregate) error {
	f.mu.Lock()
	*f.journal = append(*f.journal, "finalize:"+f.name)
	f.mu.Unlock()
	return nil
}

func recordingFactories(n int, loadErr error) ([]Factory, *[]string) {
	var mu sync.Mutex
	journal := &[]string{}
	fs := make([]Factory, 0, n)
	for i := 0; i < n; i++ {
		fs = append(fs, &recordingFactory{
			name:    fmt.Sprintf("f%d", i),
			mu:      &mu,
			journal: journal,
			loadErr: loadErr,
		})
	}
	return fs, journal
}

func TestNewPhaseBarrier(t *testing.T) {
	fs, journal := recordingFactories(3, nil)

	_, err := New(context.Background(), config.NewAggregate(), WithFactories(fs...))
	require.NoError(t, err)

	require.Len(t, *journal, 6)
	// every load precedes every finalize
	for i, entry := range (*journal)[:3] {
		assert.Equal(t, fmt.Sprintf("load:f%d", i), entry)
	}
	for i, entry := range (*journal)[3:] {
		assert.Equal(t, fmt.Sprintf("finalize:f%d", i), entry)
	}
}

func TestNewPhaseBarrierParallel(t *testing.T) {
	fs, journal := recordingFactories(4, nil)

	_, err := New(context.Background(), config.NewAggregate(),
		WithFactories(fs...), WithParallelLoad())
	require.NoError(t, err)

	require.Len(t, *journal, 8)
	loads := map[string]bool{}
	for _, entry := range (*journal)[:4] {
		loads[entry] = true
	}
	for i := 0; i < 4; i++ {
		assert.True(t, loads[fmt.Sprintf("load:f%d", i)], "load phase must complete before any finalize")
	}
	// finalize always runs in registry order
	for i, entry := range (*journal)[4:] {
		assert.Equal(t, fmt.Sprintf("finalize:f%d", i), entry)
	}
}

func TestNewLoadFailureAborts(t *testing.T) {
	boom := errors.New("infrastructure down")
	fs, journal := recordingFactories(2, boom)

	irc, err := New(context.Background(), config.NewAggregate(), WithFactories(fs...))
	assert.Nil(t, irc)
	require.ErrorIs(t, err, boom)

	for _, entry := range *journal {
		assert.NotContains(t, entry, "finalize", "finalize must not run after a load failure")
	}
}

func TestNewCompilesAggregate(t *testing.T) {
	agg := config.NewAggregate()
	agg.Add(&config.Resource{
		Kind:    config.KindModule,
		Name:    TLSModuleName,
		Enabled: true,
		Attrs:   map[string]any{"server": map[string]any{"alpn_protocols": "h2"}},
	})
	agg.Add(&config.Resource{
		Kind:    KindTLSContext,
		Name:    "server",
		Enabled: true,
		Attrs:   map[string]any{"secret": "server-tls"},
	})
	agg.Add(&config.Resource{
		Kind:    KindTLSContext,
		Name:    "broken",
		Enabled: true,
		Attrs:   map[string]any{"cert_chain_file": "/missing.crt"},
	})
	agg.Add(&config.Resource{
		Kind:    KindTLSContext,
		Name:    "dormant",
		Enabled: false,
		Attrs:   map[string]any{"secret": "unused"},
	})

	irc, err := New(context.Background(), agg, WithFileChecker(existsChecker()))
	require.NoError(t, err)

	require.NotNil(t, irc.TLSModule())
	assert.True(t, irc.TLSModule().Valid())

	assert.Len(t, irc.AllOfKind(KindTLSContext), 3)

	valid := irc.AllValid(KindTLSContext)
	require.Len(t, valid, 1, "only the secret-backed context should survive")
	assert.Equal(t, "server", valid[0].Identity().Name)

	assert.Equal(t, 1, irc.Errors().ErrorCount(), "the missing cert file posts exactly one scoped error")
	assert.Len(t, irc.Errors().Notices(), 1)
	assert.False(t, irc.Errors().HasFatalErrors())
}

func TestNewModuleAbsentIsNoOp(t *testing.T) {
	irc, err := New(context.Background(), config.NewAggregate())
	require.NoError(t, err)

	assert.Nil(t, irc.TLSModule())
	assert.Zero(t, irc.Errors().ErrorCount())
}

func TestSaveAndGetEntity(t *testing.T) {
	irc := emptyIR(t)

	tc := NewTLSContext(irc.Errors(), rawContext("alpha", true, nil))
	irc.SaveEntity(tc)

	got := irc.GetEntity(KindTLSContext, "alpha")
	require.NotNil(t, got)
	assert.Same(t, tc, got)

	assert.Nil(t, irc.GetEntity(KindTLSContext, "missing"))
	assert.Nil(t, irc.GetEntity("no-such-kind", "alpha"))
}

func TestAllValidSortsByName(t *testing.T) {
	irc := emptyIR(t, WithFileChecker(existsChecker()))

	for _, name := range []string{"zeta", "alpha", "mid"} {
		tc := NewTLSContext(irc.Errors(), rawContext(name, true, map[string]any{
			"redirect_cleartext_from": 8080,
		}))
		tc.Setup(context.Background(), irc, nil)
		irc.SaveEntity(tc)
	}

	valid := irc.AllValid(KindTLSContext)
	require.Len(t, valid, 3)
	assert.Equal(t, "alpha", valid[0].Identity().Name)
	assert.Equal(t, "mid", valid[1].Identity().Name)
	assert.Equal(t, "zeta", valid[2].Identity().Name)
}

func TestKinds(t *testing.T) {
	irc := emptyIR(t)

	irc.SaveEntity(NewTLSContext(irc.Errors(), rawContext("a", true, nil)))
	irc.SaveEntity(NewTLSModule(irc.Errors(), &config.Resource{
		Kind: config.KindModule, Name: TLSModuleName, Enabled: true,
	}))

	assert.Equal(t, []string{KindTLSContext, KindTLSModule}, irc.Kinds())
}

func TestIRAsDict(t *testing.T) {
	irc := emptyIR(t, WithFileChecker(existsChecker()))

	tc := NewTLSContext(irc.Errors(), rawContext("server", true, map[string]any{"secret": "s"}))
	tc.Setup(context.Background(), irc, nil)
	irc.SaveEntity(tc)

	d := irc.AsDict()
	byKind, ok := d[KindTLSContext].(map[string]any)
	require.True(t, ok)
	snap, ok := byKind["server"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, snap["valid_tls"])
	assert.Equal(t, "s", snap["secret"])

	// the whole IR snapshot serializes stably
	first, err := AsJSON(irc)
	require.NoError(t, err)
	again, err := AsJSON(irc)
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestWithNamespace(t *testing.T) {
	irc := emptyIR(t, WithNamespace("prod"))
	assert.Equal(t, "prod", irc.Namespace())

	// empty override keeps the ambient namespace
	ambient := emptyIR(t, WithNamespace(""))
	assert.Equal(t, ActiveNamespace(), ambient.Namespace())
}

func TestWithTLSDefaultsOverridesTable(t *testing.T) {
	irc := emptyIR(t, WithTLSDefaults("edge", map[string]any{"min_tls_version": "1.3"}))

	assert.Equal(t, "1.3", irc.TLSDefaults("edge")["min_tls_version"])
	// builtin entries survive alongside the override
	assert.Equal(t, "h2,http/1.1", irc.TLSDefaults("server")["alpn_protocols"])
	assert.Nil(t, irc.TLSDefaults("unknown"))
}
