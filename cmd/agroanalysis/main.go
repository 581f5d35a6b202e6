package main

import (
	"os"

	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/cli"
)

func main() {
	os.Exit(int(cli.Run()))
}
