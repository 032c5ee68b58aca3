package main

import "webplayer/cmd"

func main() {
	cmd.Execute()
}
