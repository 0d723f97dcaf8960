// The main package for the siteharvest executable.
package main

import (
	"github.com/jbours/siteharvest/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
