package main

import (
	"os"

	"stock-parody/manager-go/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args))
}
