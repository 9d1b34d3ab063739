package main

import "advisor/internal/cli"

func main() {
	cli.Execute()
}
