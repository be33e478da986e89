// Command healthcheck probes the rollcall /health endpoint and reports the
// result through its exit code. It exists for container HEALTHCHECK lines in
// images too minimal to ship wget or curl.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"rollcall/internal/utils"
)

const probeTimeout = 5 * time.Second

func main() {
	// Same PORT default the server's config manager applies.
	port := utils.GetEnvOrDefault("PORT", "3001")
	url := fmt.Sprintf("http://localhost:%s/health", port)

	client := &http.Client{Timeout: probeTimeout}
	resp, err := client.Get(url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rollcall health probe failed: %v\n", err)
		os.Exit(1)
	}
	// os.Exit skips deferred calls, so close before the status check.
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "rollcall health probe got status %d\n", resp.StatusCode)
		os.Exit(1)
	}
}
