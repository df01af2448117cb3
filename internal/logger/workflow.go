package logger

import (
	"strings"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

//nolint:gochecknoglobals // Buffers are pooled the same way zap does internally.
var bufferPool = buffer.NewPool()

// workflowDataEscaper escapes command data the way the Actions runner expects.
//
//nolint:gochecknoglobals // Immutable replacer.
var workflowDataEscaper = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A")

// workflowEncoder renders entries as GitHub Actions workflow commands.
// Info entries stay plain text; the runner timestamps every line itself.
type workflowEncoder struct {
	zapcore.Encoder
}

func newWorkflowEncoder() zapcore.Encoder {
	//nolint:exhaustruct // Level and time are conveyed by the runner.
	return &workflowEncoder{
		Encoder: zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
			MessageKey:       "message",
			NameKey:          "logger",
			LineEnding:       zapcore.DefaultLineEnding,
			EncodeName:       zapcore.FullNameEncoder,
			EncodeDuration:   zapcore.StringDurationEncoder,
			ConsoleSeparator: " ",
		}),
	}
}

// Clone keeps the wrapper when zap copies the encoder for With fields.
//
//nolint:ireturn // zapcore.Encoder is the required signature.
func (e *workflowEncoder) Clone() zapcore.Encoder {
	return &workflowEncoder{Encoder: e.Encoder.Clone()}
}

// EncodeEntry prefixes non-info entries with their workflow command.
//
//nolint:gocritic // zapcore.Encoder passes the entry by value.
func (e *workflowEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	line, err := e.Encoder.EncodeEntry(ent, fields)
	if err != nil {
		return nil, err
	}

	command := workflowCommand(ent.Level)
	if command == "" {
		return line, nil
	}

	defer line.Free()

	out := bufferPool.Get()
	out.AppendString("::")
	out.AppendString(command)
	out.AppendString("::")
	out.AppendString(EscapeData(strings.TrimSuffix(line.String(), zapcore.DefaultLineEnding)))
	out.AppendString(zapcore.DefaultLineEnding)

	return out, nil
}

// EscapeData escapes a workflow command payload so multi-line messages stay on one command.
func EscapeData(s string) string {
	return workflowDataEscaper.Replace(s)
}

func workflowCommand(level zapcore.Level) string {
	switch {
	case level == zapcore.DebugLevel:
		return "debug"
	case level == zapcore.InfoLevel:
		return ""
	case level == zapcore.WarnLevel:
		return "warning"
	default:
		return "error"
	}
}
