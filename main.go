package main

import "citypulse/cmd"

func main() {
	cmd.Execute()
}
