package main

import (
	"os"

	"github.com/couchcryptid/placesync/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
