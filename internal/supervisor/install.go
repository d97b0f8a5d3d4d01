package supervisor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
)

// Installer installs the Python requirements of the UDF programs into
// targetDir.
type Installer func(ctx context.Context, requirements, targetDir string) error

// PipInstall runs "pip3 install -r <requirements> --target <targetDir>".
func PipInstall(ctx context.Context, requirements, targetDir string) error {
	cmd := exec.CommandContext(ctx, "pip3", "install", "-r", requirements, "--target", targetDir)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("pip3 install -r %s: %w: %s", requirements, err, strings.TrimSpace(out.String()))
	}
	return nil
}

// installRequirements prepares the package directory and installs the
// requirements file when present. Failures are logged and never fatal:
// a UDF with a missing package fails inside the daemon instead.
func (s *Supervisor) installRequirements(ctx context.Context) {
	paths := s.settings.Paths
	if paths.UDFPackageDir == "" {
		return
	}
	if err := os.MkdirAll(paths.UDFPackageDir, 0o755); err != nil {
		s.logger.Warn("creating udf package dir failed", "dir", paths.UDFPackageDir, "error", err)
		return
	}
	if paths.UDFRequirements == "" {
		return
	}
	if _, err := os.Stat(paths.UDFRequirements); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("reading udf requirements failed", "path", paths.UDFRequirements, "error", err)
		}
		return
	}

	s.logger.Info("installing udf requirements", "requirements", paths.UDFRequirements, "target", paths.UDFPackageDir)
	if err := s.install(ctx, paths.UDFRequirements, paths.UDFPackageDir); err != nil {
		s.logger.Warn("udf requirements install failed", "error", err)
	}
}
