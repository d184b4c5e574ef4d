package main

import (
	"github.com/turtacn/advisorhub/cmd/cli"
)

// main is the entry point for the advisorhub-admin command-line tool.
// main 是 advisorhub-admin 命令行工具的入口点。
func main() {
	cli.Execute()
}

//Personal.AI order the ending
