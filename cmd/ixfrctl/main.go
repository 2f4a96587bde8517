package main

import "github.com/ixfrd/ixfrd/cmd/ixfrctl/cmd"

func main() {
	cmd.Execute()
}
