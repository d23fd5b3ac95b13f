// exporter serves SolMate telemetry as Prometheus metrics.
//
// Configuration comes from the environment: SOLMATE_SERIALS and
// SOLMATE_PASSWORDS are comma-separated and must match up; SOLMATE_NAMES
// and SOLMATE_URI are optional.
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"solmate-sdk/internal/exporter"
)

const defaultPort = "9190"

func parseTargets() ([]exporter.Target, error) {
	serials := os.Getenv("SOLMATE_SERIALS")
	if serials == "" {
		return nil, fmt.Errorf("SOLMATE_SERIALS must be set")
	}
	passwords := os.Getenv("SOLMATE_PASSWORDS")
	if passwords == "" {
		return nil, fmt.Errorf("SOLMATE_PASSWORDS must be set")
	}

	serialList := strings.Split(serials, ",")
	passwordList := strings.Split(passwords, ",")
	names := strings.Split(os.Getenv("SOLMATE_NAMES"), ",")
	uri := strings.TrimSpace(os.Getenv("SOLMATE_URI"))

	if len(serialList) != len(passwordList) {
		return nil, fmt.Errorf("number of serials (%d) must match number of passwords (%d)",
			len(serialList), len(passwordList))
	}

	targets := make([]exporter.Target, 0, len(serialList))
	for i := range serialList {
		serial := strings.TrimSpace(serialList[i])
		password := strings.TrimSpace(passwordList[i])
		if serial == "" || password == "" {
			continue
		}

		name := "solmate" + strconv.Itoa(i)
		if i < len(names) && strings.TrimSpace(names[i]) != "" {
			name = strings.TrimSpace(names[i])
		}

		targets = append(targets, exporter.Target{
			SerialNum: serial,
			Name:      name,
			Password:  password,
			URI:       uri,
		})
	}

	if len(targets) == 0 {
		return nil, fmt.Errorf("no valid solmates configured")
	}
	return targets, nil
}

func main() {
	port := os.Getenv("EXPORTER_PORT")
	if port == "" {
		port = defaultPort
	}

	targets, err := parseTargets()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	log.Printf("Starting SolMate Prometheus exporter on port %s", port)
	log.Printf("Monitoring %d solmate(s):", len(targets))
	for _, t := range targets {
		log.Printf("  - %s: %s", t.Name, t.SerialNum)
	}

	collector := exporter.NewCollector(targets)
	prometheus.MustRegister(collector)

	http.Handle("/metrics", promhttp.Handler())

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, "<html><body><h1>SolMate Exporter</h1><p>Monitoring %d solmate(s)</p><p><a href=\"/metrics\">Metrics</a></p></body></html>", len(targets))
	})

	log.Fatal(http.ListenAndServe(":"+port, nil))
}
