package main

import "github.com/neonfs/neonfs/cmd/neonfs/cmd"

func main() {
	cmd.Execute()
}
