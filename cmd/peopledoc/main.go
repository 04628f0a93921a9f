package main

import (
	"os"

	"github.com/hashicorp-forge/peopledoc/internal/cmd"
)

func main() {
	os.Exit(cmd.Main(os.Args))
}
