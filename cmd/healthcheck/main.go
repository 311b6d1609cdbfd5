// Command healthcheck exits non-zero unless the local server answers its
// liveness probe. With -ready it probes /readyz instead.
package main

import (
	"flag"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/garyellow/quizbot-go/internal/config"
)

func main() {
	ready := flag.Bool("ready", false, "probe readiness instead of liveness")
	flag.Parse()

	port := os.Getenv(config.EnvPort)
	if port == "" {
		port = "10000"
	}
	target := url.URL{Scheme: "http", Host: "localhost:" + port, Path: "/livez"}
	if *ready {
		target.Path = "/readyz"
	}

	client := &http.Client{Timeout: 8 * time.Second}
	resp, err := client.Get(target.String())
	if err != nil {
		os.Exit(1)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}
