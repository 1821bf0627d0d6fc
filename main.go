package main

import "chatdispatch/cmd"

func main() {
	cmd.Execute()
}
