package main

import (
	"github.com/Sullygrrr/digger/cmd"
)

func main() {
	cmd.Execute()
}
