package scan

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"
)

// commonPorts is the fixed probe list.
var commonPorts = []int{22, 80, 139, 443, 445, 554, 1900, 5000, 8008, 8060, 8080, 8443, 9100}

const portConcurrency = 64

func (e *Engine) runPortScan(ctx context.Context, started time.Time) {
	targets := localIPv4Targets()
	sem := make(chan struct{}, portConcurrency)
	var wg sync.WaitGroup

	for _, target := range targets {
		for _, port := range commonPorts {
			if e.cancelled() {
				wg.Wait()
				return
			}
			sem <- struct{}{}
			wg.Add(1)
			go func(ip string, port int) {
				defer wg.Done()
				defer func() { <-sem }()
				if portOpen(ip, port) {
					e.emit(ctx, started, Finding{Phase: PhasePort, IP: ip, Detail: fmt.Sprintf("%d/tcp open", port)})
				}
			}(target, port)
		}
	}
	wg.Wait()
}

func portOpen(ip string, port int) bool {
	d := net.Dialer{Timeout: 800 * time.Millisecond}
	conn, err := d.Dial("tcp", net.JoinHostPort(ip, fmt.Sprint(port)))
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
