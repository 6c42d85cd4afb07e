package main

import (
	"github.com/demstat/demstat/internal/cmd"
)

func main() {
	cmd.Execute()
}
