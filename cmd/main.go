package main

import (
	"github.com/dyike/ValueArena/internal/cli"
)

func main() {
	cli.Run()
}
