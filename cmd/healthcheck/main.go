package main

import (
	"net/http"
	"os"
	"time"

	"github.com/ericogr/skirmish/internal/constants"
)

func main() {
	addr := os.Getenv(constants.EnvServerAddr)
	if addr == "" || addr[0] == ':' {
		addr = "127.0.0.1" + defaultPort(addr)
	}
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + addr + constants.RouteAPIPrefix + constants.RouteVersion)
	if err != nil {
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
	os.Exit(0)
}

func defaultPort(addr string) string {
	if addr == "" {
		return constants.DefaultAddr
	}
	return addr
}
