package main

import "github.com/bnema/buildctl/cmd"

func main() {
	cmd.Execute()
}
