package main

import (
	"github.com/agent-runner/cmd/agent"
)

func main() {
	agent.Execute()
}
