//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperengineering/tinyleap/pkg/client"
)

// tinyleapServer manages a running tinyleap server process.
type tinyleapServer struct {
	cmd     *exec.Cmd
	dataDir string
	address string
	logFile string
	client  *client.Client
}

// startTinyleap launches the binary on dataDir and waits for it to become
// healthy. Configuration is passed through the environment only.
func startTinyleap(t *testing.T, dataDir string) *tinyleapServer {
	t.Helper()
	requireTinyleap(t)

	port := freePort(t)
	address := fmt.Sprintf("127.0.0.1:%d", port)
	logFile := filepath.Join(dataDir, fmt.Sprintf("tinyleap-%d.log", port))

	cmd := exec.Command(tinyleapBin)
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("TINYLEAP_PORT=%d", port),
		"TINYLEAP_DB_DRIVER=sqlite",
		"TINYLEAP_DB_PATH="+filepath.Join(dataDir, "tinyleap.db"),
		"TINYLEAP_CONFIG_PATH="+filepath.Join(dataDir, "nonexistent.yaml"),
		// A long debounce leaves saves pending until shutdown flushes them.
		"TINYLEAP_SAVE_DEBOUNCE=1h",
		"LLM_API_KEY=",
	)

	lf, err := os.Create(logFile)
	if err != nil {
		t.Fatalf("create log file: %v", err)
	}
	cmd.Stdout = lf
	cmd.Stderr = lf

	if err := cmd.Start(); err != nil {
		lf.Close()
		t.Fatalf("start tinyleap: %v", err)
	}

	s := &tinyleapServer{
		cmd:     cmd,
		dataDir: dataDir,
		address: address,
		logFile: logFile,
		client:  client.New("http://" + address),
	}
	t.Cleanup(func() {
		s.stop()
		lf.Close()
	})

	if err := s.waitHealthy(10 * time.Second); err != nil {
		logs, _ := os.ReadFile(logFile)
		t.Fatalf("tinyleap not healthy: %v\n%s", err, logs)
	}
	return s
}

// stop sends SIGINT and waits for a graceful exit.
func (s *tinyleapServer) stop() {
	if s.cmd != nil && s.cmd.Process != nil && s.cmd.ProcessState == nil {
		_ = s.cmd.Process.Signal(os.Interrupt)
		_ = s.cmd.Wait()
	}
}

func (s *tinyleapServer) waitHealthy(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		_, err := s.client.Health(ctx)
		cancel()
		if err == nil {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("not healthy after %s", timeout)
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("find free port: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}
