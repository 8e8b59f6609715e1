package file

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func writeInput(t *testing.T, root, rel, contents string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestListerMatchesGlobDepth(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeInput(t, root, "song_data/A/A/A/TRAAAAA.json", "{}")
	writeInput(t, root, "song_data/A/A/B/TRAAAAB.json", "{}")
	writeInput(t, root, "song_data/A/B/A/TRAABAA.json", "{}") // outside A/A
	writeInput(t, root, "song_data/A/A/A/notes.txt", "x")     // wrong extension

	got, err := NewLister(root).List(context.Background(), "song_data/A/A/*/*.json")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		names := make([]string, len(got))
		for i, s := range got {
			names[i] = s.Name()
		}
		t.Fatalf("List matched %v; want exactly the 2 files under A/A", names)
	}
}

func TestListerEmptyMatchIsNotAnError(t *testing.T) {
	t.Parallel()
	got, err := NewLister(t.TempDir()).List(context.Background(), "log_data/*/*/*.json")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("List = %d sources; want 0", len(got))
	}
}

func TestLocalOpenReadsBytes(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeInput(t, root, "a.json", `{"k":"v"}`)

	src := NewLocal(filepath.Join(root, "a.json"))
	rc, err := src.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil || string(b) != `{"k":"v"}` {
		t.Fatalf("read = %q, %v", b, err)
	}
}

func TestLocalOpenMissingFile(t *testing.T) {
	t.Parallel()
	src := NewLocal(filepath.Join(t.TempDir(), "nope.json"))
	_, err := src.Open(context.Background())
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Open error = %v; want wrapped os.ErrNotExist", err)
	}
}

func TestLocalOpenCanceledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewLocal("irrelevant").Open(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Open error = %v; want context.Canceled", err)
	}
}
