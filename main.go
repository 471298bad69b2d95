// The main package for the dawn-archive executable.
package main

import (
	_ "time/tzdata"

	"github.com/JakeFAU/dawn-archive/cmd"
)

func main() {
	cmd.Execute()
}
