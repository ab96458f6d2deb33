package main

import "github.com/fabricsync/fabricsync/pkg/cli/cmd"

func main() {
	cmd.Execute()
}
