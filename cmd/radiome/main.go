package main

import (
	"github.com/radiome-lab/radiome/internal/command"
)

func main() {
	command.Main()
}
