package main

import "mxc/cmd"

func main() {
	cmd.Execute()
}
