package kapacitor

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nerrad567/analytics-supervisor/internal/infrastructure/config"
)

// certFileMode is owner read-only.
const certFileMode = 0o400

// Staged certificate file names inside the stage directory.
const (
	ServerCertFile = "kapacitor_server_certificate.pem"
	ServerKeyFile  = "kapacitor_server_key.pem"
	CACertFile     = "ca_certificate.pem"
)

// CertCopy is one certificate file to stage.
type CertCopy struct {
	Src string
	Dst string
}

// DefaultCertCopies maps the secret-mounted files to the stage directory.
func DefaultCertCopies(cfg config.CertsConfig) []CertCopy {
	return []CertCopy{
		{Src: cfg.ServerCert, Dst: filepath.Join(cfg.StageDir, ServerCertFile)},
		{Src: cfg.ServerKey, Dst: filepath.Join(cfg.StageDir, ServerKeyFile)},
		{Src: cfg.CACert, Dst: filepath.Join(cfg.StageDir, CACertFile)},
	}
}

// ProvisionCertificates copies each file and restricts it to owner read.
// Failures are logged at debug and skipped: a missing certificate shows up
// later as the daemon failing to bind. It returns how many files were staged.
func ProvisionCertificates(logger Logger, copies []CertCopy) int {
	staged := 0
	for _, c := range copies {
		if err := copyCert(c.Src, c.Dst); err != nil {
			logger.Debug("failed creating certificate file", "file", c.Dst, "error", err)
			continue
		}
		staged++
	}
	return staged
}

func copyCert(src, dst string) error {
	in, err := os.Open(src) //nolint:gosec // path comes from supervisor settings
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close() //nolint:errcheck // read-only

	// A previous run leaves a 0400 file that cannot be opened for writing.
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale %s: %w", dst, err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600) //nolint:gosec // path comes from supervisor settings
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close() //nolint:errcheck,gosec // already failing
		return fmt.Errorf("copying to %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", dst, err)
	}
	if err := os.Chmod(dst, certFileMode); err != nil {
		return fmt.Errorf("chmod %s: %w", dst, err)
	}
	return nil
}
