package main

import "github.com/takeshy/bvsync/cmd"

func main() {
	cmd.Execute()
}
