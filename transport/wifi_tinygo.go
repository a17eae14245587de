//go:build tinygo

package transport

import (
	"tinygo.org/x/drivers/netlink"
	"tinygo.org/x/drivers/netlink/probe"
)

// EnableWifi brings the board's Wi-Fi link up so TCPStream can dial the
// Master. The driver is probed from the build target, so the same call works
// across supported boards.
func EnableWifi(ssid, passphrase string) error {
	link, _ := probe.Probe()

	return link.NetConnect(&netlink.ConnectParams{
		Ssid:       ssid,
		Passphrase: passphrase,
	})
}
