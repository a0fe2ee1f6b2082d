package main

import "github.com/pathmessages/pathmessages/cmd"

func main() {
	cmd.Execute()
}
