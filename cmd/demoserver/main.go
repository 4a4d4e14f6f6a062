// Command demoserver runs a local mock of the Vulnissimo API, useful for
// trying the CLI without credentials:
//
//	demoserver -addr :8099
//	VULNISSIMO_BASE_URL=http://localhost:8099 vulnissimo run -target https://example.com
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/vulnissimo/vulnissimo-go/internal/demoserver"
	"github.com/vulnissimo/vulnissimo-go/internal/logging"
)

func main() {
	addr := flag.String("addr", ":8099", "Listen address")
	steps := flag.Int("steps", 3, "Status polls needed before a scan completes")
	flag.Parse()

	srv := demoserver.NewServer(demoserver.Config{
		Addr:            *addr,
		StepsToComplete: *steps,
		Logger:          logging.NewStdoutLogger("demoserver"),
	})

	fmt.Printf("Demo Vulnissimo API on %s (swagger UI at /swagger/)\n", *addr)
	if err := srv.Start(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
