// Command glslmin minifies GLSL shader source files.
package main

import (
	"fmt"
	"os"

	"github.com/hugodaniel/glslmin/cmd/glslmin/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
