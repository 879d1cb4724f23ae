// Package attachments stores remark screenshots and catalog reference
// images. Entries keep only the generated file name; the bytes live in a
// flat local directory or under an S3 bucket prefix.
package attachments

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// NameLayout is the timestamp part of generated names (yyyyMMddHHmmss).
const NameLayout = "20060102150405"

// Store persists attachment bytes by name.
type Store interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
	Exists(ctx context.Context, name string) (bool, error)
	Delete(ctx context.Context, name string) error
}

// FileName builds {testCaseID}_{yyyyMMddHHmmss}_{base(original)}.
// Directory components of original are dropped so names stay flat.
func FileName(testCaseID string, at time.Time, original string) string {
	base := filepath.Base(strings.ReplaceAll(original, `\`, "/"))
	if base == "." || base == "/" {
		base = "attachment"
	}
	return fmt.Sprintf("%s_%s_%s", testCaseID, at.Format(NameLayout), base)
}

// maxNameAttempts bounds the suffix search in FreeName.
const maxNameAttempts = 1000

// FreeName returns name when store does not hold it yet, otherwise the first
// free variant with a "-N" suffix before the extension. Generated names only
// resolve to the second, so a repeated upload must not overwrite a file an
// existing entry already points to.
func FreeName(ctx context.Context, store Store, name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	candidate := name
	for i := 2; i <= maxNameAttempts; i++ {
		taken, err := store.Exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d%s", stem, i, ext)
	}
	return "", fmt.Errorf("no free attachment name for %q", name)
}

func validName(name string) error {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return fmt.Errorf("invalid attachment name %q", name)
	}
	return nil
}
