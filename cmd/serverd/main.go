// Command serverd runs the desktop search engine's HTTP API server.
package main

import "github.com/radhakrish-venkat/desktop-search/internal/cli"

func main() {
	cli.Execute()
}
