// Package artifact owns the well-known filenames the toolchain produces.
//
// The tool itself never writes these files; it only guarantees they are
// absent before a build begins and can fingerprint whatever the toolchain
// left behind afterwards.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Names lists every artifact the toolchain is known to produce, in the
// order they are cleaned. The log file is included: a stale log from a
// previous run must never be appended to.
var Names = []string{
	"out",
	"out.ztf",
	"proving.key",
	"verification.key",
	"abi.json",
	"log",
}

// Domain prefix for artifact digests. Version suffix enables future
// algorithm migration without ambiguity against old records.
const digestDomain = "zokbuild/artifact/v1"

// Clean removes every well-known artifact under dir if present.
// Missing files are not an error. Returns the names actually removed.
func Clean(dir string) ([]string, error) {
	var removed []string
	for _, name := range Names {
		err := os.Remove(filepath.Join(dir, name))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return removed, fmt.Errorf("remove %s: %w", name, err)
		}
		removed = append(removed, name)
	}
	return removed, nil
}

// Digests computes a SHA-256 digest for each well-known artifact present
// under dir. Absent artifacts are skipped. The map is keyed by artifact
// name; values are hex-encoded domain-separated digests, so two runs of a
// deterministic toolchain yield identical maps.
func Digests(dir string) (map[string]string, error) {
	digests := make(map[string]string)
	for _, name := range Names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		digests[name] = digest(data)
	}
	return digests, nil
}

// digest computes SHA256(domain + 0x00 + data). The null separator
// prevents domain/data boundary ambiguity.
func digest(data []byte) string {
	h := sha256.New()
	h.Write([]byte(digestDomain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
