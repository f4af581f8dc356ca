package main

import "github.com/bodhisearch/llamacheck/cmd"

func main() {
	cmd.Execute()
}
