package main

import "github.com/mijnschoolkeuze/opendagen-sync/internal/cli"

func main() {
	cli.Execute()
}
