package main

import (
	"os"

	"github.com/vkngwrapper/mediamem/cmd/vsmctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
