package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/san-kum/aeropinn/internal/models"
)

const (
	Ext    = ".ckpt"
	prefix = "epoch_"
)

var ErrNotFound = errors.New("checkpoint: not found")

// Name returns the file name of the checkpoint taken after epoch completed
// epochs.
func Name(epoch int) string {
	return prefix + strconv.Itoa(epoch) + Ext
}

// ParseEpoch extracts N from "epoch_<N>.ckpt".
func ParseEpoch(name string) (int, bool) {
	base := filepath.Base(name)
	if !strings.HasPrefix(base, prefix) || !strings.HasSuffix(base, Ext) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(base, prefix), Ext))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

type Entry struct {
	Name    string
	Epoch   int
	Size    int64
	ModTime time.Time
}

type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("checkpoint store: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Open returns a store over an existing directory without creating it.
func Open(dir string) (*Store, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: directory %s", ErrNotFound, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("checkpoint store: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("checkpoint store: %s is not a directory", dir)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) Path(name string) string { return filepath.Join(s.dir, name) }

// Save writes snap under name. The write goes to a temporary file that is
// synced and renamed into place; on any failure the temporary file is
// removed and nothing appears under name.
func (s *Store) Save(ctx context.Context, name string, snap *models.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("checkpoint %s: nil snapshot", name)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("checkpoint %s: %w", name, err)
	}
	epoch, _ := ParseEpoch(name)

	tmp, err := os.CreateTemp(s.dir, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("checkpoint %s: %w", name, err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err := encode(tmp, epoch, snap); err != nil {
		return fmt.Errorf("checkpoint %s: encode: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("checkpoint %s: sync: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("checkpoint %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, s.Path(name)); err != nil {
		return fmt.Errorf("checkpoint %s: %w", name, err)
	}
	committed = true
	return nil
}

// Read decodes a checkpoint into a standalone snapshot.
func (s *Store) Read(name string) (*models.Snapshot, error) {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	snap, _, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("checkpoint %s: %w", name, err)
	}
	return snap, nil
}

// Load restores the named checkpoint into m. m keeps its parameters when
// the stored architecture differs from its own.
func (s *Store) Load(name string, m *models.FlowModel) error {
	snap, err := s.Read(name)
	if err != nil {
		return err
	}
	if err := m.Restore(snap); err != nil {
		return fmt.Errorf("checkpoint %s: %w", name, err)
	}
	return nil
}

// List returns the epoch checkpoints in the store ordered by epoch.
func (s *Store) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		epoch, ok := ParseEpoch(de.Name())
		if !ok {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		out = append(out, Entry{
			Name:    de.Name(),
			Epoch:   epoch,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Epoch < out[j].Epoch })
	return out, nil
}

func (s *Store) Latest() (Entry, error) {
	entries, err := s.List()
	if err != nil {
		return Entry{}, err
	}
	if len(entries) == 0 {
		return Entry{}, fmt.Errorf("%w: no checkpoints in %s", ErrNotFound, s.dir)
	}
	return entries[len(entries)-1], nil
}
