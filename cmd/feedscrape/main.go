// cmd/feedscrape/main.go
package main

import (
	"github.com/feed-harvest/scrape/internal/cli"
)

func main() {
	// Interrupt handling lives in the commands themselves so a Ctrl-C
	// cancels the running session and still flushes collected records.
	cli.Execute()
}
