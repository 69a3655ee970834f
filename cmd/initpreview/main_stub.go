//go:build !gui

package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(os.Stderr, "initpreview requires the gui build tag: go run -tags gui ./cmd/initpreview")
	os.Exit(2)
}
