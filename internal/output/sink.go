// Package output delivers finished text to its destination. The default
// sink only logs; deployments wire a command sink that pipes text into an
// external program (a typing daemon, a clipboard tool).
package output

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

type Sink interface {
	Deliver(ctx context.Context, text string) error
}

// LogSink records delivered text and does nothing else. Used when no
// delivery command is configured and in tests.
type LogSink struct {
	log *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{log: logger.With("component", "output")}
}

func (s *LogSink) Deliver(_ context.Context, text string) error {
	s.log.Info("text ready", "chars", len(text))
	return nil
}

// CommandSink runs a configured program per delivery, writing the text to
// its stdin. The command string is split on whitespace; the first token is
// the binary.
type CommandSink struct {
	name string
	args []string
	log  *slog.Logger
}

func NewCommandSink(command string, logger *slog.Logger) (*CommandSink, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty output command")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandSink{
		name: fields[0],
		args: fields[1:],
		log:  logger.With("component", "output"),
	}, nil
}

func (s *CommandSink) Deliver(ctx context.Context, text string) error {
	cmd := exec.CommandContext(ctx, s.name, s.args...)
	cmd.Stdin = strings.NewReader(text)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("output command %s: %w (%s)", s.name, err, strings.TrimSpace(string(out)))
	}
	s.log.Debug("delivered", "command", s.name, "chars", len(text))
	return nil
}
