package scan

// Single-host, on-demand probes exposed for the API's manual
// ping/probe-netbios/port-scan routes, separate from the multi-phase sweep.

// Ping reports whether ip answers a single ICMP echo.
func Ping(ip string) bool {
	return pingOnce(ip)
}

// ProbeNetBIOS queries ip's NBSTAT name, if any.
func ProbeNetBIOS(ip string) (string, bool) {
	return netbiosQuery(ip)
}

// ProbePort reports whether ip accepts a TCP connection on port.
func ProbePort(ip string, port int) bool {
	return portOpen(ip, port)
}
