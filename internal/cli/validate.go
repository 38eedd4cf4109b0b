package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/worldtext/internal/config"
)

// ValidationError is one configuration problem.
type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Source string            `json:"source,omitempty"`
	Config *config.Config    `json:"config,omitempty"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [config-file]",
		Short: "Validate a configuration file",
		Long: `Validate a configuration file against the schema without running.

Without an argument the file named by --config or $WORLDTEXT_CONFIG is
checked. With --verbose the effective configuration, defaults included,
is printed.

Exit codes:
  0 - Configuration valid
  1 - Configuration invalid
  2 - Command error (file not found, unsupported format)`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			path := rootOpts.Config
			if len(args) == 1 {
				path = args[0]
			}
			return runValidate(rootOpts, path, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(cmd, opts)

	cfg, err := config.Load(path)
	if err != nil {
		var loadErr *config.LoadError
		if !errors.As(err, &loadErr) {
			return outputValidateError(formatter, config.ErrCodeGeneric, err.Error(), nil)
		}
		switch loadErr.Code {
		case config.ErrCodeNotFound, config.ErrCodeFormat:
			return outputValidateError(formatter, loadErr.Code, loadErr.Error(), nil)
		}
		return outputValidationErrors(formatter, []ValidationError{toValidationError(loadErr)})
	}

	if cfg.Source == "" {
		formatter.VerboseLog("No config file given; checking defaults")
	}
	return outputValidateSuccess(formatter, cfg)
}

func toValidationError(e *config.LoadError) ValidationError {
	v := ValidationError{Code: e.Code, Message: e.Message, File: e.Path}
	if e.Pos.IsValid() {
		v.File = e.Pos.Filename()
		v.Line = e.Pos.Line()
		v.Column = e.Pos.Column()
	}
	return v
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, cfg *config.Config) error {
	name := cfg.Source
	if name == "" {
		name = "defaults"
	}
	var effective []byte
	if formatter.Verbose && !formatter.isJSON() {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		effective = data
	}
	return formatter.Success(ValidationResult{Valid: true, Source: cfg.Source, Config: cfg}, func(w io.Writer) {
		fmt.Fprintf(w, "✓ %s valid\n", name)
		if effective != nil {
			fmt.Fprintln(w, string(effective))
		}
	})
}

// outputValidateError outputs a single command-level error.
func outputValidateError(formatter *OutputFormatter, code, message string, details interface{}) error {
	_ = formatter.Error(code, message, details)
	// Missing or unsupported files are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []ValidationError) error {
	if formatter.Format == "json" {
		result := ValidationResult{
			Valid:  false,
			Errors: errs,
		}

		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		switch {
		case err.Line > 0:
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n", err.File, err.Line, err.Column)
		case err.File != "":
			fmt.Fprintf(formatter.Writer, "%s\n", err.File)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}

	// Validation failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
