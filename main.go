package main

import "github.com/tabjar/tabjar/cmd"

func main() {
	cmd.Execute()
}
