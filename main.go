package main

import "github.com/kinnrichard/zerogen/cmd"

func main() {
	cmd.Execute()
}
