package main

import (
	"log"

	"github.com/terraguard/viewsync/internal/cli"
)

func main() {
	if err := cli.ViewSyncCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
