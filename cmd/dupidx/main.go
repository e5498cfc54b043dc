package main

import (
	"log"

	"dupindex/cmd/dupidx/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		log.Fatal(err)
	}
}
