package main

import "github.com/nfrund/userhome/cmd/userhome-cli/cmd"

func main() {
	cmd.Execute()
}
