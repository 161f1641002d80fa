package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/okian/calmate/internal/calctl"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	if err := calctl.NewApp(calctl.Env{}).Run(os.Args); err != nil {
		os.Stderr.WriteString("calctl: " + err.Error() + "\n")
		os.Exit(1)
	}
}
