// main.go
//
// Minimal entry point that delegates CLI handling to the Cobra root
// command in internal/cli.

package main

import (
	"github.com/ShashiDivs/ShashiDivs-DeviceBridge-PerfTest/internal/cli"
)

func main() {
	cli.Execute()
}
