package main

import "github.com/fitlab/doorman/cmd"

func main() {
	cmd.Execute()
}
