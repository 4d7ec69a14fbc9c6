package main

import "github.com/gaurav-prasanna/novelpipe/cmd"

func main() {
	cmd.Execute()
}
