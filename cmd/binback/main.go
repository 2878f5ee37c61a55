package main

import "github.com/cadornel/binback/internal/cli"

func main() {
	cli.Main()
}
