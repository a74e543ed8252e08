package main

import "paddlecast/internal/cli"

func main() {
	cli.Execute()
}
