// Package command renders templates by running an external program.
//
// The program is started once per record. It receives the template's path
// as an argument and the record's values as a JSON object on stdin, and
// must write the rendered package to stdout. A non-zero exit is a render
// failure whose explanation is the program's stderr.
package command

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/tsawler/docstamp/generate"
)

// TemplateArg in an argument list is replaced by the template's path.
// Without it the path is appended as the last argument.
const TemplateArg = "{template}"

// waitDelay bounds how long output is drained after the context ends.
const waitDelay = 2 * time.Second

// Ensure Renderer implements the interface.
var _ generate.Renderer = (*Renderer)(nil)

// Renderer runs Path with Args for every record.
type Renderer struct {
	Path string
	Args []string
	Env  []string // extra KEY=value pairs
}

// New returns a renderer for the given program.
func New(path string, args ...string) *Renderer {
	return &Renderer{Path: path, Args: args}
}

// Render implements generate.Renderer.
func (r *Renderer) Render(ctx context.Context, template []byte, values map[string]string) ([]byte, error) {
	if r.Path == "" {
		return nil, errors.New("command renderer: no program configured")
	}

	input, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("encoding values: %w", err)
	}

	tmp, err := os.CreateTemp("", "docstamp-template-*.docx")
	if err != nil {
		return nil, fmt.Errorf("creating template file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(template); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("writing template file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("writing template file: %w", err)
	}

	cmd := exec.CommandContext(ctx, r.Path, r.args(tmp.Name())...)
	cmd.Stdin = bytes.NewReader(input)
	cmd.WaitDelay = waitDelay
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			explanation := strings.TrimSpace(stderr.String())
			if explanation == "" {
				explanation = exitErr.Error()
			}
			return nil, &generate.RenderError{Explanation: explanation, Err: err}
		}
		return nil, fmt.Errorf("running %s: %w", r.Path, err)
	}

	if stdout.Len() == 0 {
		return nil, &generate.RenderError{Explanation: "renderer produced no output"}
	}
	return stdout.Bytes(), nil
}

func (r *Renderer) args(templatePath string) []string {
	args := make([]string, 0, len(r.Args)+1)
	replaced := false
	for _, a := range r.Args {
		if strings.Contains(a, TemplateArg) {
			a = strings.ReplaceAll(a, TemplateArg, templatePath)
			replaced = true
		}
		args = append(args, a)
	}
	if !replaced {
		args = append(args, templatePath)
	}
	return args
}
