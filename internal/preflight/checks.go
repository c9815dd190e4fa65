package preflight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"emindy/internal/catalog"
)

const minSecretLength = 16

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSecret verifies that a usable signing secret is configured. The
// secret itself is never echoed.
func CheckSecret(secret string) Result {
	const name = "Signing secret"
	secret = strings.TrimSpace(secret)
	switch {
	case secret == "":
		return Result{Name: name, Detail: "missing (set EMINDY_RESULT_SECRET)"}
	case len(secret) < minSecretLength:
		return Result{Name: name, Detail: fmt.Sprintf("too short (%d characters, need %d)", len(secret), minSecretLength)}
	default:
		return Result{Name: name, Passed: true, Detail: "configured"}
	}
}

// CheckCatalog verifies that the practice catalog is readable and parses.
func CheckCatalog(path string) Result {
	const name = "Practice catalog"
	if err := unix.Access(path, unix.R_OK); err != nil {
		if errors.Is(err, unix.ENOENT) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	cat, err := catalog.Load(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	playable := 0
	for _, practice := range cat.List() {
		if practice.Playable() {
			playable++
		}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d practices, %d playable)", path, cat.Len(), playable)}
}

// CheckSMTP verifies that the SMTP relay accepts TCP connections.
func CheckSMTP(ctx context.Context, host string, port int) Result {
	const name = "SMTP relay"

	host = strings.TrimSpace(host)
	if host == "" {
		return Result{Name: name, Detail: "missing host"}
	}
	if port <= 0 {
		return Result{Name: name, Detail: "missing port"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	address := net.JoinHostPort(host, strconv.Itoa(port))
	var dialer net.Dialer
	conn, err := dialer.DialContext(checkCtx, "tcp", address)
	if err != nil {
		return Result{Name: name, Detail: summarizeDialError(address, err)}
	}
	_ = conn.Close()
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s reachable", address)}
}

// CheckServer verifies that an eMINDy server answers its health endpoint.
func CheckServer(ctx context.Context, baseURL string) Result {
	const name = "Server"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/api/health", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("health check failed (%v)", err)}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("health check failed (%v)", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{Name: name, Detail: fmt.Sprintf("health check failed (%d)", resp.StatusCode)}
	}
	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || payload.Status != "ok" {
		return Result{Name: name, Detail: "unexpected health response"}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

func summarizeDialError(address string, err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("%s timed out", address)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Sprintf("%s timed out", address)
	}
	return fmt.Sprintf("%s unreachable (%v)", address, err)
}
