package harness

import (
	"fmt"
	"math/rand"
	"net"
)

const (
	portRangeLow  = 1025
	portRangeHigh = 65535
	portAttempts  = 64
)

// FindFreePort picks a random port from the non-privileged range and confirms
// availability with an actual bind-and-listen probe; a numeric draw alone can
// race with other listeners. The listener is closed before returning, so the
// caller must bind the port promptly.
func FindFreePort() (int, error) {
	for i := 0; i < portAttempts; i++ {
		port := portRangeLow + rand.Intn(portRangeHigh-portRangeLow+1)
		l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err != nil {
			continue
		}
		l.Close()
		return port, nil
	}
	return 0, fmt.Errorf("could not find a free port after %d attempts", portAttempts)
}
