package main

import "github.com/l3uddz/delugetools/cmd"

func main() {
	cmd.Execute()
}
