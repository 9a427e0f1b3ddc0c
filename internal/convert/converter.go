// Package convert turns staged source files into the distributable PDF
// format by driving an external converter binary.
package convert

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/Lllllllleong/documentpublisher/internal/models"
)

const (
	sourceExt = ".rtf"
	targetExt = ".pdf"
)

// DefaultBinary is the converter looked up on PATH when none is configured.
const DefaultBinary = "soffice"

// Converter invokes the external converter once per staged file so each
// outcome can be attributed individually.
type Converter struct {
	binaryPath string
	dir        string
}

// NewConverter resolves the converter binary and returns a Converter for the
// staging directory. A missing binary is a fatal precondition for the whole
// run: no partial conversion is meaningful without it.
func NewConverter(dir, binary string) (*Converter, error) {
	if binary == "" {
		binary = DefaultBinary
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("converter binary %q not found on PATH: %w", binary, err)
	}
	return &Converter{binaryPath: path, dir: dir}, nil
}

// Convert converts every staged source file in the directory, returning one
// outcome per file. Success is decided by the existence of the target file,
// never by the converter's exit status or diagnostics; conversion of one
// file never blocks conversion of another. The returned error covers only
// the inability to enumerate the directory.
func (c *Converter) Convert(ctx context.Context) ([]models.ConversionOutcome, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read staging directory %s: %w", c.dir, err)
	}

	var outcomes []models.ConversionOutcome
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != sourceExt {
			continue
		}
		outcomes = append(outcomes, c.convertOne(ctx, entry.Name()))
	}

	succeeded := 0
	for _, o := range outcomes {
		if o.Success {
			succeeded++
		}
	}
	slog.Info("Generated PDF files.", "converted", succeeded, "attempted", len(outcomes))
	return outcomes, nil
}

func (c *Converter) convertOne(ctx context.Context, fileName string) models.ConversionOutcome {
	logCtx := slog.With("sourceFile", fileName)

	sourcePath := filepath.Join(c.dir, fileName)
	targetName := strings.TrimSuffix(fileName, sourceExt) + targetExt
	targetPath := filepath.Join(c.dir, targetName)

	cmd := exec.CommandContext(ctx, c.binaryPath, "--headless", "--convert-to", "pdf", "--outdir", c.dir, sourcePath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	// The exit status is deliberately ignored: the tool exits zero on some
	// silent failures and non-zero on some successes.
	_ = cmd.Run()
	diagnostic := strings.TrimSpace(stderr.String())

	return classify(logCtx, fileName, targetPath, diagnostic)
}

// classify applies the outcome rules in priority order: a materialized
// target file is a success regardless of diagnostic text; otherwise the
// diagnostic text (or its absence) becomes the failure reason.
func classify(logCtx *slog.Logger, fileName, targetPath, diagnostic string) models.ConversionOutcome {
	outcome := models.ConversionOutcome{FileName: fileName}

	if _, err := os.Stat(targetPath); err == nil {
		outcome.Success = true
		outcome.PDFCreated = true
		if diagnostic != "" {
			outcome.Warning = diagnostic
			logCtx.Warn("Converter emitted diagnostics but produced output.", "diagnostic", diagnostic)
		}
		if pages, err := api.PageCountFile(targetPath); err == nil {
			outcome.PageCount = pages
		} else {
			outcome.Warning = appendWarning(outcome.Warning, fmt.Sprintf("page count probe failed: %v", err))
			logCtx.Warn("Produced PDF could not be probed for a page count.", "error", err)
		}
		return outcome
	}

	outcome.Success = false
	if diagnostic != "" {
		outcome.Error = diagnostic
	} else {
		outcome.Error = "no output produced"
	}
	logCtx.Error("Conversion produced no target file.", "error", outcome.Error)
	return outcome
}

func appendWarning(existing, extra string) string {
	if existing == "" {
		return extra
	}
	return existing + "; " + extra
}
