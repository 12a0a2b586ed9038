package main

import (
	"github.com/insider-qa/gridctl/pkg/cli"
)

func main() {
	cli.Execute()
}
