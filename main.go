package main

import "github.com/agentic-research/staticdb/cmd"

func main() {
	cmd.Execute()
}
