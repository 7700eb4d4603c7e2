// The main package for the capitol-pdfs executable.
package main

import (
	"github.com/mtfreepress/capitol-pdf-mirror/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
