package main

import (
	"github.com/caelum0x/hyperliqbot-sub002/internal/cli"
)

func main() {
	cli.Execute()
}
