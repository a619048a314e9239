package dnscache

import (
	"bufio"
	"os"
	"strings"
)

// readResolvConf extracts nameserver addresses from /etc/resolv.conf.
func readResolvConf() ([]string, error) {
	f, err := os.Open("/etc/resolv.conf")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var servers []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 && fields[0] == "nameserver" {
			servers = append(servers, fields[1])
		}
	}
	return servers, scanner.Err()
}
