package main

import (
	"github.com/netops-toolbox/supportwatch/cmd"
)

func main() {
	cmd.Execute()
}
