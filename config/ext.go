package config

import (
	"os/exec"
)

type ShellCommand []string

func (s ShellCommand) Empty() bool {
	return len(s) == 0
}

func (s ShellCommand) ToCommand() (*exec.Cmd, error) {
	if len(s) == 0 {
		return nil, nil
	}

	return exec.Command(s[0], s[1:]...), nil
}
