package main

import (
	"os"

	"github.com/JailsonsouzaStarCityCorp/gerenciador-de-biblioteca/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
