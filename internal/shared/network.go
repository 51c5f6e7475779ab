package shared

import (
	"fmt"
	"net"
)

var interfaceAddrs = net.InterfaceAddrs

// LocalIP returns the first non-loopback IPv4 address of this host.
func LocalIP() (string, error) {
	addrs, err := interfaceAddrs()
	if err != nil {
		return "", fmt.Errorf("failed to list interface addresses: %w", err)
	}

	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			return ip4.String(), nil
		}
	}

	return "127.0.0.1", nil
}

// PlaybackURL builds the base URL handed to mobile devices on the local network.
func PlaybackURL(ip string, port int) string {
	return fmt.Sprintf("http://%s/", net.JoinHostPort(ip, fmt.Sprint(port)))
}
