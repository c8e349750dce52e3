package main

import "codeseek/cmd"

func main() {
	cmd.Execute()
}
