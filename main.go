package main

import "github.com/metalblueberry/bard/cmd"

func main() {
	cmd.Execute()
}
