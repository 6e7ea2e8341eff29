package main

import "comet/cmd"

func main() {
	cmd.Execute()
}
