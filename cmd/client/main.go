package main

import "nutrilog/cmd/client/cmd"

func main() {
	cmd.Execute()
}
