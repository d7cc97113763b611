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

package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	egerrors "github.com/edgegate/edgegate/pkg/errors"
)

// LoadFiles reads one or more multi-document YAML files and indexes every
// document into a fresh Aggregate. Malformed input fails the whole load;
// the compilation pass never starts on a partially parsed configuration.
func LoadFiles(paths ...string) (*Aggregate, error) {
	agg := NewAggregate()
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, egerrors.Wrap(egerrors.ErrCodeNotFound, fmt.Sprintf("config file %s", path), err)
		}
		err = LoadReader(agg, filepath.Base(path), f)
		_ = f.Close()
		if err != nil {
			return nil, err
		}
	}
	return agg, nil
}

// LoadReader parses multi-document YAML from r into agg. The source name is
// used to build rkey and location provenance for each document.
func LoadReader(agg *Aggregate, source string, r io.Reader) error {
	dec := yaml.NewDecoder(r)
	for idx := 0; ; idx++ {
		var node yaml.Node
		if err := dec.Decode(&node); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return egerrors.Wrap(egerrors.ErrCodeInvalidResource,
				fmt.Sprintf("parsing %s document %d", source, idx), err)
		}

		res, err := resourceFromNode(&node, source, idx)
		if err != nil {
			return err
		}
		if res == nil {
			continue // empty document
		}

		slog.Debug("indexed raw resource",
			"kind", res.Kind,
			"name", res.Name,
			"rkey", res.RKey,
			"location", res.Location)
		agg.Add(res)
	}
}

// resourceFromNode turns one decoded YAML document into a raw Resource,
// extracting the reserved identity keys and keeping the rest as attributes.
func resourceFromNode(node *yaml.Node, source string, idx int) (*Resource, error) {
	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		return nil, egerrors.Wrap(egerrors.ErrCodeInvalidResource,
			fmt.Sprintf("decoding %s document %d", source, idx), err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	kind, _ := raw[KeyKind].(string)
	name, _ := raw[KeyName].(string)
	if kind == "" || name == "" {
		return nil, egerrors.Newf(egerrors.ErrCodeInvalidResource,
			"%s document %d: every resource needs a kind and a name", source, idx)
	}

	namespace, _ := raw[KeyNamespace].(string)
	enabled := true
	if v, ok := raw[KeyEnabled].(bool); ok {
		enabled = v
	}

	attrs := make(map[string]any, len(raw))
	for k, v := range raw {
		switch k {
		case KeyKind, KeyName, KeyNamespace, KeyEnabled:
			continue
		}
		attrs[k] = v
	}

	return &Resource{
		RKey:      fmt.Sprintf("%s.%d", source, idx),
		Kind:      kind,
		Name:      name,
		Namespace: namespace,
		Location:  fmt.Sprintf("%s:%d", source, node.Line),
		Enabled:   enabled,
		Attrs:     attrs,
	}, nil
}
