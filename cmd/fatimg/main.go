package main

import (
	"log"
	"os"

	"github.com/spf13/afero"
)

func main() {
	app := newApp(afero.NewOsFs(), os.Stdout, os.Stderr)
	err := app.Run(os.Args)
	if err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}
