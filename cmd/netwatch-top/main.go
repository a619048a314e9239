// Command netwatch-top is a terminal dashboard for a running netwatch
// daemon, polling its read-only HTTP API for the endpoint table and scan
// progress.
package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	port := flag.Int("port", 8080, "Daemon API port")
	flag.Parse()

	b := newBackend(*port)
	p := tea.NewProgram(newModel(b), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "netwatch-top: %v\n", err)
		os.Exit(1)
	}
}
