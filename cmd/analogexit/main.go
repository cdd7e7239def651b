package main

import "analog-exit/internal/cli"

func main() {
	cli.Execute()
}
