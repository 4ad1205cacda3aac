package capture

import (
	"fmt"
	"net/netip"

	"github.com/vishvananda/netlink"
)

// configureInterface assigns the capture address and brings the link up.
func configureInterface(name string, prefix netip.Prefix) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return fmt.Errorf("failed to find link %s: %w", name, err)
	}

	addr, err := netlink.ParseAddr(prefix.String())
	if err != nil {
		return fmt.Errorf("invalid capture address %s: %w", prefix, err)
	}

	if err := netlink.AddrReplace(link, addr); err != nil {
		return fmt.Errorf("failed to assign %s to %s: %w", prefix, name, err)
	}

	if err := netlink.LinkSetUp(link); err != nil {
		return fmt.Errorf("failed to bring up %s: %w", name, err)
	}

	return nil
}
