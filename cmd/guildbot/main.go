package main

import "github.com/mcoot/guildbot/internal/cli"

func main() {
	cli.Execute()
}
