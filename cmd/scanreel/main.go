package main

import (
	"fmt"
	"io"
	"os"

	"github.com/zurustar/scanreel/pkg/app"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	application := app.New(app.WithStdout(stdout))
	if err := application.Run(args); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
