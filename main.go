package main

import "blogforge/cmd"

func main() {
	cmd.Execute()
}
