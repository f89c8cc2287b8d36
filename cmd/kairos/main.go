package main

import "github.com/schedlab/kairos/cmd/kairos/cmd"

func main() {
	cmd.Execute()
}
