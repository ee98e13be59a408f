package main

import "confluence-mcp/cmd/confluence-mcp/commands"

func main() {
	commands.Execute()
}
