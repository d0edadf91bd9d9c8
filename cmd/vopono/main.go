// Command vopono runs applications inside VPN-routed Linux network
// namespaces.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/vopono-go/vopono/cli"
	"github.com/vopono-go/vopono/provider"
)

func main() {
	cmd := cli.NewCommand()

	err := cmd.Invoke().WithOS().Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, provider.ErrArgument) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
