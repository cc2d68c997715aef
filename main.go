package main

import (
	"github.com/scholarly-tools/pinmap/cmd"
)

func main() {
	cmd.Execute()
}
