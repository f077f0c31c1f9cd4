package main

import "cropcube/cmd"

func main() {
	cmd.Execute()
}
