package plugin

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Launcher starts a plugin described by a manifest and returns a connected
// client. Closing the client stops the plugin.
type Launcher interface {
	Launch(ctx context.Context, m *Manifest) (Client, error)
}

// startupInfo is the first line a plugin writes to stdout:
//
//	{"port": 51234, "serverKey": "..."}
type startupInfo struct {
	Port      int    `json:"port"`
	ServerKey string `json:"serverKey"`
}

// readStartup reads the start-up line from r. It gives up when ctx is done.
func readStartup(ctx context.Context, r *bufio.Reader) (startupInfo, error) {
	type result struct {
		info startupInfo
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := r.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			ch <- result{err: fmt.Errorf("no start-up line: %w", err)}
			return
		}
		var info startupInfo
		if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &info); err != nil {
			ch <- result{err: fmt.Errorf("invalid start-up line %q: %w", strings.TrimSpace(line), err)}
			return
		}
		if info.Port <= 0 || info.Port > 65535 {
			ch <- result{err: fmt.Errorf("invalid port %d in start-up line", info.Port)}
			return
		}
		ch <- result{info: info}
	}()

	select {
	case res := <-ch:
		return res.info, res.err
	case <-ctx.Done():
		return startupInfo{}, ctx.Err()
	}
}

// ProcessLauncher runs plugins as child processes of type "exec".
type ProcessLauncher struct {
	// StartTimeout bounds the wait for the start-up line.
	StartTimeout time.Duration
	Logger       *slog.Logger
}

// Launch starts the executable of m and connects to the port it reports.
func (l *ProcessLauncher) Launch(ctx context.Context, m *Manifest) (Client, error) {
	if m.ExecutableType != "" && m.ExecutableType != ExecutableTypeExec {
		return nil, fmt.Errorf("%w: %s has unsupported executable type %q", ErrPluginUnavailable, m.ID(), m.ExecutableType)
	}
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("plugin", m.ID())

	cmd := exec.Command(m.Executable(), m.Args...)
	cmd.Dir = m.Dir
	cmd.Env = append(os.Environ(), "LOG_LEVEL=info")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPluginUnavailable, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPluginUnavailable, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: failed to start %s: %v", ErrPluginUnavailable, m.Executable(), err)
	}
	logger.Debug("plugin process started", "pid", cmd.Process.Pid)

	go logLines(stderr, logger, "stderr")

	stop := func() error {
		if cmd.Process == nil {
			return nil
		}
		_ = cmd.Process.Kill()
		err := cmd.Wait()
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// killed on purpose
			return nil
		}
		return err
	}

	timeout := l.StartTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	startCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out := bufio.NewReader(stdout)
	info, err := readStartup(startCtx, out)
	if err != nil {
		_ = stop()
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s did not report its port within %s", ErrPluginTimeout, m.ID(), timeout)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrPluginUnavailable, m.ID(), err)
	}
	go logLines(out, logger, "stdout")

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(info.Port))
	client, err := DialGRPC(m.ID(), addr, info.ServerKey)
	if err != nil {
		_ = stop()
		return nil, err
	}
	client.onClose = stop
	logger.Info("plugin started", "address", addr)
	return client, nil
}

func logLines(r io.Reader, logger *slog.Logger, stream string) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		logger.Debug(scanner.Text(), "stream", stream)
	}
}
