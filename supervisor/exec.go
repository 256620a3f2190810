package supervisor

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// ExecLauncher starts workers as child processes of Binary. Each window's
// output is appended to the file returned by LogPath.
type ExecLauncher struct {
	Binary string
	Args   []string

	// BaseEnv is inherited by every child; the start message is appended.
	BaseEnv []string

	LogPath func(window int) string
}

// SelfLauncher re-executes the running binary with args.
func SelfLauncher(args []string, logPath func(window int) string) (*ExecLauncher, error) {
	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate own binary: %w", err)
	}
	return &ExecLauncher{
		Binary:  self,
		Args:    args,
		BaseEnv: os.Environ(),
		LogPath: logPath,
	}, nil
}

// Launch starts a worker process for msg.
func (l *ExecLauncher) Launch(msg StartMessage) (Process, error) {
	out, err := os.OpenFile(l.LogPath(msg.Window), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(l.Binary, l.Args...)
	cmd.Env = append(append([]string{}, l.BaseEnv...), msg.Env()...)
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Start(); err != nil {
		out.Close()
		return nil, err
	}
	return &execProcess{cmd: cmd, out: out}, nil
}

type execProcess struct {
	cmd *exec.Cmd
	out *os.File
}

func (p *execProcess) Kill() error {
	err := p.cmd.Process.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

func (p *execProcess) Wait() error {
	defer p.out.Close()
	return p.cmd.Wait()
}
