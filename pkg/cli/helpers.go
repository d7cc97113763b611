/*
Copyright © 2025 the EdgeGate authors
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/edgegate/edgegate/pkg/serializer"
)

// Flags shared across commands.
var (
	outputFlag = &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Output file path (default: stdout)",
	}

	formatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"t"},
		Usage:   fmt.Sprintf("Output format: %s", strings.Join(serializer.SupportedFormats(), ", ")),
		Value:   string(serializer.FormatYAML),
	}

	kubeconfigFlag = &cli.StringFlag{
		Name:    "kubeconfig",
		Usage:   "Path to kubeconfig file (default: KUBECONFIG, then ~/.kube/config, then in-cluster)",
		Sources: cli.EnvVars("KUBECONFIG"),
	}
)

// parseOutputFormat validates the format flag and returns the typed format.
func parseOutputFormat(cmd *cli.Command) (serializer.Format, error) {
	format := serializer.Format(cmd.String("format"))
	if format.IsUnknown() {
		return "", fmt.Errorf("unknown output format %q, supported: %s",
			format, strings.Join(serializer.SupportedFormats(), ", "))
	}
	return format, nil
}

var titleCaser = cases.Title(language.English)

// kindDisplayName renders a kind tag for human-facing summaries:
// "tls-context" becomes "Tls Context".
func kindDisplayName(kind string) string {
	return titleCaser.String(strings.ReplaceAll(kind, "-", " "))
}
