package main

import "nounfill-go/cmd"

func main() {
	cmd.Execute()
}
