//go:build linux

package netiface

import (
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/safchain/ethtool"
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

func listPlatform() ([]Info, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return fallbackList()
	}

	et, etErr := ethtool.NewEthtool()
	if etErr == nil {
		defer et.Close()
	}

	var out []Info
	for _, link := range links {
		attrs := link.Attrs()
		name := attrs.Name

		var addrStrs []string
		var netAddrs []net.Addr
		for _, family := range []int{unix.AF_INET, unix.AF_INET6} {
			addrList, err := netlink.AddrList(link, family)
			if err != nil {
				continue
			}
			for _, a := range addrList {
				addrStrs = append(addrStrs, a.IPNet.String())
				netAddrs = append(netAddrs, a.IPNet)
			}
		}

		if !IsMonitorable(name, netAddrs) {
			continue
		}

		out = append(out, Info{
			Name:         name,
			HardwareAddr: attrs.HardwareAddr.String(),
			Addrs:        addrStrs,
			Up:           attrs.OperState == netlink.OperUp,
			LinkInfo:     linkInfoFor(et, name),
		})
	}
	return out, nil
}

func linkInfoFor(et *ethtool.Ethtool, name string) LinkInfo {
	if et == nil || isVirtualNIC(name) {
		return linkInfoFromSysfs(name)
	}
	settings, err := et.GetLinkSettings(name)
	if err != nil {
		return linkInfoFromSysfs(name)
	}
	duplex := "unknown"
	switch settings.Duplex {
	case ethtool.DUPLEX_FULL:
		duplex = "full"
	case ethtool.DUPLEX_HALF:
		duplex = "half"
	}
	driver, _ := et.DriverName(name)
	return LinkInfo{SpeedMbps: settings.Speed, Duplex: duplex, Driver: driver}
}

func linkInfoFromSysfs(name string) LinkInfo {
	li := LinkInfo{Duplex: "unknown"}
	if data, err := os.ReadFile(fmt.Sprintf("/sys/class/net/%s/speed", name)); err == nil {
		s := strings.TrimSpace(string(data))
		if s != "" && s != "-1" {
			fmt.Sscanf(s, "%d", &li.SpeedMbps)
		}
	}
	if data, err := os.ReadFile(fmt.Sprintf("/sys/class/net/%s/duplex", name)); err == nil {
		s := strings.TrimSpace(string(data))
		if s == "full" || s == "half" {
			li.Duplex = s
		}
	}
	return li
}

// isVirtualNIC detects virtio/veth/bridge-style adapters whose ethtool
// settings query is unreliable, so sysfs is consulted directly instead.
func isVirtualNIC(name string) bool {
	driverPath := fmt.Sprintf("/sys/class/net/%s/device/driver", name)
	if target, err := os.Readlink(driverPath); err == nil {
		driver := target
		if i := strings.LastIndexByte(target, '/'); i >= 0 {
			driver = target[i+1:]
		}
		switch driver {
		case "virtio_net", "veth", "tun", "tap", "bridge", "dummy", "vmxnet3", "hv_netvsc":
			return true
		}
	}
	if data, err := os.ReadFile(fmt.Sprintf("/sys/class/net/%s/device/modalias", name)); err == nil {
		if strings.HasPrefix(string(data), "virtio") {
			return true
		}
	}
	if _, err := os.Stat(fmt.Sprintf("/sys/class/net/%s/device", name)); os.IsNotExist(err) {
		return true
	}
	return false
}
