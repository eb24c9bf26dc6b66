package main

import "github.com/mpapenbr/trackprogress/cmd"

func main() {
	cmd.Execute()
}
