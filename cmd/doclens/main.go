package main

import "doclens/internal/cli"

func main() {
	cli.Execute()
}
