// Command server runs the spending insights API.
//
//	server serve     start the HTTP server (migrations run first)
//	server migrate   apply database migrations and exit
//
// Settings come from the environment. A .env file in the working directory
// is loaded first when present; see --env-file.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
