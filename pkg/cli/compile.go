/*
Copyright © 2025 the EdgeGate authors
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/edgegate/edgegate/pkg/config"
	"github.com/edgegate/edgegate/pkg/ir"
	"github.com/edgegate/edgegate/pkg/k8s/client"
	"github.com/edgegate/edgegate/pkg/logging"
	"github.com/edgegate/edgegate/pkg/secrets"
	"github.com/edgegate/edgegate/pkg/serializer"
)

func compileCmd() *cli.Command {
	return &cli.Command{
		Name:                  "compile",
		EnableShellCompletion: true,
		Usage:                 "Compile configuration files into validated IR",
		ArgsUsage:             "FILE [FILE...]",
		Description: `Compile one or more YAML configuration files into the validated
intermediate representation the renderer consumes.

Each file may hold multiple YAML documents. Every document needs a kind
and a name; resources of kind "module" register as singleton modules by
name, everything else is indexed by kind.

Validation never aborts the pass: invalid entities are excluded from the
output and their diagnostics are reported per resource. The command exits
non-zero only when a fatal pass error makes the whole IR unusable.

# Secret Resolution

By default secret references are left unresolved (they still count toward
TLS validity). Two resolution modes are available:

Mounted secrets directory, laid out as <dir>/<namespace>/<name>/tls.crt:
  egc compile --secrets-dir /var/run/secrets gateway.yaml

Kubernetes API, materializing key material under --cert-dir:
  egc compile --resolve-secrets --cert-dir /tmp/edgegate-certs gateway.yaml

# Examples

Compile to stdout as YAML:
  egc compile gateway.yaml

Compile several files to a JSON snapshot:
  egc compile --format json --output ir.json gateway.yaml tls.yaml`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Sources: cli.EnvVars("LOG_LEVEL"),
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "namespace",
				Aliases: []string{"n"},
				Usage:   "Namespace for secret resolution",
				Sources: cli.EnvVars(ir.NamespaceEnvVar),
			},
			&cli.StringFlag{
				Name:  "secrets-dir",
				Usage: "Resolve secrets from a mounted directory tree",
			},
			&cli.BoolFlag{
				Name:  "resolve-secrets",
				Usage: "Resolve secrets through the Kubernetes API",
			},
			&cli.StringFlag{
				Name:  "cert-dir",
				Usage: "Directory for key material fetched from the Kubernetes API",
				Value: "/tmp/edgegate-certs",
			},
			&cli.BoolFlag{
				Name:  "parallel",
				Usage: "Load resource kinds concurrently",
			},
			outputFlag,
			formatFlag,
			kubeconfigFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			logging.SetDefaultStructuredLoggerWithLevel(name, version, cmd.String("log-level"))

			outFormat, err := parseOutputFormat(cmd)
			if err != nil {
				return err
			}

			files := cmd.Args().Slice()
			if len(files) == 0 {
				return fmt.Errorf("no configuration files given")
			}

			agg, err := config.LoadFiles(files...)
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}

			resolver, err := buildResolver(cmd)
			if err != nil {
				return err
			}

			opts := []ir.Option{
				ir.WithNamespace(cmd.String("namespace")),
			}
			if resolver != nil {
				opts = append(opts, ir.WithSecretResolver(resolver))
			}
			if cmd.Bool("parallel") {
				opts = append(opts, ir.WithParallelLoad())
			}

			compiled, err := ir.New(ctx, agg, opts...)
			if err != nil {
				return fmt.Errorf("compilation pass: %w", err)
			}

			reportDiagnostics(compiled)

			w := serializer.NewFileWriterOrStdout(outFormat, cmd.String("output"))
			defer func() {
				if cerr := w.Close(); cerr != nil {
					slog.Error("failed to close output", "error", cerr)
				}
			}()
			if err := w.Serialize(compiled.AsDict()); err != nil {
				return fmt.Errorf("writing output: %w", err)
			}

			if compiled.Errors().HasFatalErrors() {
				return cli.Exit("configuration rejected: fatal compilation errors", 1)
			}
			return nil
		},
	}
}

// buildResolver picks the secret-resolution capability from the flags.
// Returning nil means secrets stay unresolved.
func buildResolver(cmd *cli.Command) (secrets.Resolver, error) {
	if dir := cmd.String("secrets-dir"); dir != "" {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("secrets directory %s: %w", dir, err)
		}
		return secrets.NewDirectory(dir), nil
	}

	if cmd.Bool("resolve-secrets") {
		var (
			c   client.Interface
			err error
		)
		if kubeconfig := cmd.String("kubeconfig"); kubeconfig != "" {
			c, err = client.Build(kubeconfig)
		} else {
			c, err = client.Get()
		}
		if err != nil {
			return nil, fmt.Errorf("kubernetes client: %w", err)
		}
		return secrets.NewKubernetes(c, cmd.String("cert-dir")), nil
	}

	return nil, nil
}

// reportDiagnostics logs the per-kind outcome and every recorded diagnostic.
func reportDiagnostics(compiled *ir.IR) {
	for _, kind := range compiled.Kinds() {
		total := len(compiled.AllOfKind(kind))
		valid := len(compiled.AllValid(kind))
		slog.Info("compiled",
			"kind", kindDisplayName(kind),
			"total", total,
			"valid", valid)
	}

	for _, notice := range compiled.Errors().Notices() {
		slog.Warn(notice)
	}
	for _, entry := range compiled.Errors().Messages() {
		if entry.ResourceID != "" {
			slog.Error(entry.Err.Message, "resource", entry.ResourceID, "code", entry.Err.Code)
			continue
		}
		slog.Error(entry.Err.Message, "code", entry.Err.Code)
	}
}
