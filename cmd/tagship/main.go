package main

import "github.com/tagship/tagship/cmd/tagship/cli"

func main() {
	cli.Execute()
}
