// Command cloudcost prints a one-shot multi-account cost report.
package main

import (
	"os"

	"github.com/cloud-cost-manager/cloudcost-go/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
