package scan

import (
	"context"
	"sync"
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

const icmpConcurrency = 32

func (e *Engine) runICMP(ctx context.Context, started time.Time) {
	targets := localIPv4Targets()
	sem := make(chan struct{}, icmpConcurrency)
	var wg sync.WaitGroup

	for _, target := range targets {
		if e.cancelled() {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(ip string) {
			defer wg.Done()
			defer func() { <-sem }()
			if up := pingOnce(ip); up {
				e.emit(ctx, started, Finding{Phase: PhaseICMP, IP: ip})
			}
		}(target)
	}
	wg.Wait()
}

func pingOnce(ip string) bool {
	pinger, err := probing.NewPinger(ip)
	if err != nil {
		return false
	}
	pinger.Count = 1
	pinger.Timeout = 2 * time.Second
	pinger.SetPrivileged(false)

	if err := pinger.Run(); err != nil {
		return false
	}
	return pinger.Statistics().PacketsRecv > 0
}
