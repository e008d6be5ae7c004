package index

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func installPkg(t *testing.T, root, name, version string) {
	t.Helper()
	dir := filepath.Join(root, "node_modules", name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	meta, _ := json.Marshal(map[string]string{"name": name, "version": version})
	if err := os.WriteFile(filepath.Join(dir, "package.json"), meta, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWatcher_NewManifestValidated(t *testing.T) {
	db := testDB(t)
	dir, store := testWorkspace(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string

	go Watch(ctx, db, store, 100*time.Millisecond, quietLogger(), func(kind, path string) {
		mu.Lock()
		events = append(events, kind+":"+path)
		mu.Unlock()
	})

	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(dir, "package.json"),
		[]byte(`{"dependencies": {"left-pad": "^1.0.0"}}`), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		m, _ := db.GetManifest("package.json")
		return m != nil
	}, "new manifest not validated by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "validated:package.json" {
				return true
			}
		}
		return false
	}, "expected validated:package.json callback")
}

func TestWatcher_BurstCoalesced(t *testing.T) {
	db := testDB(t)
	dir, store := testWorkspace(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	validations := 0

	go Watch(ctx, db, store, 300*time.Millisecond, quietLogger(), func(kind, path string) {
		if kind == "validated" {
			mu.Lock()
			validations++
			mu.Unlock()
		}
	})

	time.Sleep(100 * time.Millisecond)

	// A rapid burst of writes within the debounce window.
	for i := 0; i < 5; i++ {
		_ = os.WriteFile(filepath.Join(dir, "package.json"), []byte(`{"name": "burst"}`), 0o644)
		time.Sleep(20 * time.Millisecond)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return validations >= 1
	}, "burst produced no validation")

	// Let any stragglers fire, then check the burst coalesced.
	time.Sleep(600 * time.Millisecond)
	mu.Lock()
	got := validations
	mu.Unlock()
	if got > 2 {
		t.Errorf("validations = %d, want the burst coalesced to 1 (2 tolerated)", got)
	}
}

func TestWatcher_NodeModulesChangeRevalidatesOwner(t *testing.T) {
	db := testDB(t)
	dir, store := testWorkspace(t)

	_ = os.WriteFile(filepath.Join(dir, "package.json"),
		[]byte(`{"dependencies": {"left-pad": "^1.0.0"}}`), 0o644)
	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatal(err)
	}
	if m, _ := db.GetManifest("package.json"); m == nil || m.Valid {
		t.Fatal("precondition: manifest should be indexed invalid")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, 100*time.Millisecond, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	// Installing the package only touches node_modules, never the manifest.
	installPkg(t, dir, "left-pad", "1.3.0")

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		m, _ := db.GetManifest("package.json")
		return m != nil && m.Valid
	}, "install under node_modules did not re-validate the owning manifest")
}

func TestWatcher_RemoveDeletesResult(t *testing.T) {
	db := testDB(t)
	dir, store := testWorkspace(t)

	_ = os.WriteFile(filepath.Join(dir, "package.json"), []byte(`{"name": "gone-soon"}`), 0o644)
	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, 100*time.Millisecond, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(filepath.Join(dir, "package.json"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		m, _ := db.GetManifest("package.json")
		return m == nil
	}, "removed manifest still indexed")
}

func TestWatcher_NewDirScanned(t *testing.T) {
	db := testDB(t)
	dir, store := testWorkspace(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, 100*time.Millisecond, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	sub := filepath.Join(dir, "packages", "web")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(sub, "package.json"), []byte(`{"name": "web"}`), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		m, _ := db.GetManifest(filepath.Join("packages", "web", "package.json"))
		return m != nil
	}, "manifest in new subdirectory not validated")
}

func TestOwnerManifest(t *testing.T) {
	cases := []struct {
		rel   string
		want  string
		found bool
	}{
		{"node_modules/react/package.json", "package.json", true},
		{"packages/api/node_modules/chalk/index.js", filepath.Join("packages", "api", "package.json"), true},
		{"packages/api/src/index.js", "", false},
	}
	for _, tc := range cases {
		got, ok := ownerManifest(tc.rel)
		if ok != tc.found || got != tc.want {
			t.Errorf("ownerManifest(%q) = %q, %v; want %q, %v", tc.rel, got, ok, tc.want, tc.found)
		}
	}
}
