/*
Copyright © 2025 the EdgeGate authors
SPDX-License-Identifier: Apache-2.0
*/
package main

import "github.com/edgegate/edgegate/pkg/cli"

func main() {
	cli.Execute()
}
