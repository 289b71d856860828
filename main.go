package main

import "github.com/nate-maxwell/templar/cmd"

func main() {
	cmd.Execute()
}
