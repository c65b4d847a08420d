package main

import "cpm/internal/cli"

func main() {
	cli.Execute()
}
