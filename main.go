package main

import "github.com/kozaktomas/eigenface/cmd"

func main() {
	cmd.Execute()
}
