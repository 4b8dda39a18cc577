package main

import (
	"github.com/mcoot/pongrelay/internal/cli"
)

func main() {
	cli.Execute()
}
