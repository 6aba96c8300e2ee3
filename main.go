// Package main is the entry point for the tsdq application
package main

import (
	"github.com/openbms/tsdq/cmd"
)

func main() {
	cmd.Execute()
}
