package main

import (
	"fmt"
	"os"

	"github.com/retendo/account/internal/tools/nascprobe"
)

func main() {
	if err := nascprobe.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
