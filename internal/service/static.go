package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/deppfellow/foodgram-entrypoint/internal/lib/fsutil"
	"github.com/rs/zerolog"
)

// CollectReport summarizes one static collection.
type CollectReport struct {
	Root    string
	Removed int
	Copied  int
}

// StaticService gathers static assets into the serving directory.
type StaticService struct {
	logger *zerolog.Logger
}

func NewStaticService(logger *zerolog.Logger) *StaticService {
	return &StaticService{logger: logger}
}

// Collect empties root and copies every source directory into it.
//
// When the same relative path exists in several sources, the file from
// the earliest source is kept. After Collect, root holds exactly the
// current asset set.
//
// Cancelling ctx stops the copy; root is then left partially filled and
// the next boot rebuilds it.
func (s *StaticService) Collect(ctx context.Context, root string, sources []string) (CollectReport, error) {
	report := CollectReport{Root: root}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return report, err
	}
	for _, src := range sources {
		absSrc, err := filepath.Abs(src)
		if err != nil {
			return report, err
		}
		if within(absRoot, absSrc) || within(absSrc, absRoot) {
			return report, fmt.Errorf("static source %s overlaps static root %s", src, root)
		}
	}

	removed, err := fsutil.ClearDir(root, 0o755)
	if err != nil {
		return report, fmt.Errorf("clearing %s: %w", root, err)
	}
	report.Removed = removed

	for _, src := range sources {
		n, err := fsutil.CopyTree(ctx, src, root, false)
		report.Copied += n
		if err != nil {
			return report, fmt.Errorf("copying %s: %w", src, err)
		}
		s.logger.Debug().
			Str("source", src).
			Int("files", n).
			Msg("static source copied")
	}

	s.logger.Info().
		Str("root", root).
		Int("removed", report.Removed).
		Int("copied", report.Copied).
		Msgf("%d static files copied to %s", report.Copied, root)

	return report, nil
}

// within reports whether path is dir or lies below it.
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
