package main

import "github.com/vmops/snapfleet/cmd"

func main() {
	cmd.Execute()
}
