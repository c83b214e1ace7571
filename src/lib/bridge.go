package lib

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"syscall"
)

// Bridge abstracts the process that proxies a local port to a rack's
// remote console so the session manager can be tested without spawning
// real processes.
type Bridge interface {
	Spawn(localPort int, targetHost string, targetPort int, logPath string) (pid int, err error)
	IsAlive(pid int) bool
	Terminate(pid int) error
}

// WebsockifyBridge runs websockify to expose a VNC console over NoVNC.
type WebsockifyBridge struct{}

func (b *WebsockifyBridge) Spawn(localPort int, targetHost string, targetPort int, logPath string) (int, error) {
	webDir := os.Getenv("NOVNC_WEB_DIR")
	if webDir == "" {
		webDir = "/usr/share/novnc"
	}
	args := []string{"--web", webDir}
	certPath := os.Getenv("SSL_CERT_PATH")
	keyPath := os.Getenv("SSL_KEY_PATH")
	if certPath != "" && keyPath != "" {
		args = append(args, fmt.Sprintf("--cert=%s", certPath), fmt.Sprintf("--key=%s", keyPath))
	}
	args = append(args, fmt.Sprintf("%d", localPort), fmt.Sprintf("%s:%d", targetHost, targetPort))

	cmd := exec.Command("websockify", args...)
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("Could not open bridge log file %s: %s\n", logPath, err.Error())
	} else {
		cmd.Stdout = logFile
		cmd.Stderr = logFile
	}
	if err := cmd.Start(); err != nil {
		if logFile != nil {
			logFile.Close()
		}
		return 0, err
	}
	pid := cmd.Process.Pid
	go func() {
		// Reap the child so a crashed bridge does not linger as a zombie
		if err := cmd.Wait(); err != nil {
			log.Printf("Bridge process %d exited: %s\n", pid, err.Error())
		}
		if logFile != nil {
			logFile.Close()
		}
	}()
	return pid, nil
}

func (b *WebsockifyBridge) IsAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

func (b *WebsockifyBridge) Terminate(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Kill()
}

var bridge Bridge

func GetBridge() Bridge {
	if bridge != nil {
		return bridge
	}
	bridge = &WebsockifyBridge{}
	return bridge
}

// NewBridge Replace bridge instance with custom implementation
func NewBridge(b Bridge) Bridge {
	bridge = b
	return bridge
}
