package inferior_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/jackc/deet/internal/inferior"
)

// buildFixture compiles one of the _fixtures/*.go programs with inlining
// and optimizations disabled ("go build -gcflags -N -l"), so breakpoints
// land on the instructions a reader expects.
func buildFixture(t *testing.T, name string) string {
	t.Helper()

	src, err := filepath.Abs(filepath.Join("..", "..", "_fixtures", name+".go"))
	if err != nil {
		t.Fatal(err)
	}

	bin := filepath.Join(t.TempDir(), name)
	cmd := exec.Command("go", "build", "-gcflags", "-N -l", "-o", bin, src)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		t.Fatalf("building fixture %s: %v", name, err)
	}

	return bin
}

// withTestProcess spawns the named fixture with the given breakpoints
// installed and hands the live Inferior to fn.
func withTestProcess(t *testing.T, name string, breakpoints []uint64, fn func(*inferior.Inferior)) {
	t.Helper()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	bin := buildFixture(t, name)

	inf, err := inferior.Spawn(bin, nil, breakpoints)
	if err != nil {
		t.Fatalf("Spawn(%s): %v", name, err)
	}
	defer inf.Kill()

	fn(inf)
}
