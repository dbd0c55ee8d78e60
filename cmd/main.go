package main

import (
	"os"

	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/cmd/freeroute"
)

func main() {
	if err := freeroute.Execute(); err != nil {
		os.Exit(1)
	}
}
