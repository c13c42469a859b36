package main

import "github.com/example/dine-composer/internal/interfaces/cli"

func main() {
	cli.Execute()
}
