package main

import "github.com/mcoot/fiteval/internal/cli"

func main() {
	cli.Execute()
}
