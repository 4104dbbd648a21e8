package main

import "github.com/naka-gawa/craft-stats/cmd"

func main() {
	cmd.Execute()
}
