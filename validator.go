package cdm

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// validator handles validation logic for Builder
type validator struct{}

// newValidator creates a new validator instance
func newValidator() *validator {
	return &validator{}
}

// validateInputRoot checks that root is an existing directory
func (v *validator) validateInputRoot(root string) error {
	if strings.TrimSpace(root) == "" {
		return fmt.Errorf("%w: input root cannot be empty", ErrInvalidConfig)
	}

	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: input root does not exist: %s", ErrInvalidConfig, root)
		}
		return fmt.Errorf("failed to stat input root %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: input root is not a directory: %s", ErrInvalidConfig, root)
	}
	return nil
}

// validateBuilder checks the settings that do not touch the filesystem
func (v *validator) validateBuilder(b *Builder) error {
	var errs []error
	if strings.TrimSpace(b.outputDir) == "" {
		errs = append(errs, errors.New("output directory cannot be empty"))
	}
	if b.workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", b.workers))
	}
	if b.eventLayout.HeaderRow >= b.eventLayout.SkipRows {
		errs = append(errs, fmt.Errorf("event header row %d must precede data row %d", b.eventLayout.HeaderRow, b.eventLayout.SkipRows))
	}
	if b.metadataLayout.HeaderRow >= b.metadataLayout.SkipRows {
		errs = append(errs, fmt.Errorf("metadata header row %d must precede data row %d", b.metadataLayout.HeaderRow, b.metadataLayout.SkipRows))
	}
	if b.registry == nil {
		errs = append(errs, errors.New("decode registry cannot be nil"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
