package main

import (
	"github.com/feedmirror/feedmirror/pkg/cmd"
)

func main() {
	cmd.Execute()
}
