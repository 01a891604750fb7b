package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	verrors "github.com/matzehuels/votemap/pkg/errors"
)

// Stage collects the artifacts of one department before publishing them.
// A Stage is not safe for concurrent use; each department owns its own.
type Stage struct {
	root       string
	department string
	dir        string
	files      []string
	done       bool
}

// NewStage creates a staging directory for department under root.
func NewStage(root, department string) (*Stage, error) {
	if err := verrors.ValidateDepartmentCode(department); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, verrors.Wrap(verrors.ErrCodeIO, err, "create output root %s", root)
	}
	dir, err := os.MkdirTemp(root, ".staging-"+department+"-")
	if err != nil {
		return nil, verrors.Wrap(verrors.ErrCodeIO, err, "create staging directory")
	}
	return &Stage{root: root, department: department, dir: dir}, nil
}

// Dir returns the staging directory.
func (s *Stage) Dir() string { return s.dir }

// Target returns the directory the stage is published to.
func (s *Stage) Target() string { return filepath.Join(s.root, s.department) }

// Files returns the names written so far, sorted.
func (s *Stage) Files() []string {
	out := append([]string(nil), s.files...)
	sort.Strings(out)
	return out
}

// Write stores data under name.
func (s *Stage) Write(name string, data []byte) error {
	if s.done {
		return verrors.New(verrors.ErrCodeInternal, "stage %s already closed", s.department)
	}
	if err := verrors.ValidateArtifactName(name); err != nil {
		return err
	}
	if err := WriteFile(filepath.Join(s.dir, name), data); err != nil {
		return err
	}
	for _, f := range s.files {
		if f == name {
			return nil
		}
	}
	s.files = append(s.files, name)
	return nil
}

// WriteJSON encodes v and stores it under name.
func (s *Stage) WriteJSON(name string, v any, indent bool) error {
	data, err := Encode(v, indent)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return s.Write(name, data)
}

// Commit publishes the staged directory, replacing any previous one. The
// previous directory is moved aside first and restored if the swap fails.
//
// Readers never see a partially written department, but the target path
// does not exist between the two renames: a concurrent reader such as
// "votemap serve" can get a not-found error during that window and should
// retry. Files inside the department are never mixed across runs.
func (s *Stage) Commit() error {
	if s.done {
		return verrors.New(verrors.ErrCodeInternal, "stage %s already closed", s.department)
	}
	s.done = true
	target := s.Target()

	var backup string
	if _, err := os.Stat(target); err == nil {
		backup = filepath.Join(s.root, ".previous-"+s.department+"-"+filepath.Base(s.dir))
		if err := os.Rename(target, backup); err != nil {
			os.RemoveAll(s.dir)
			return verrors.Wrap(verrors.ErrCodeIO, err, "move aside %s", target)
		}
	}
	if err := os.Rename(s.dir, target); err != nil {
		if backup != "" {
			_ = os.Rename(backup, target)
		}
		os.RemoveAll(s.dir)
		return verrors.Wrap(verrors.ErrCodeIO, err, "publish %s", target)
	}
	if backup != "" {
		_ = os.RemoveAll(backup)
	}
	return nil
}

// Abort discards the staged files. It is a no-op after Commit, so it can
// be deferred unconditionally.
func (s *Stage) Abort() error {
	if s.done {
		return nil
	}
	s.done = true
	return os.RemoveAll(s.dir)
}
