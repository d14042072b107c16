package preflight

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SeanYHan888/SimPO/internal/compat"
	"github.com/SeanYHan888/SimPO/internal/envprobe"
)

// scriptedRunner answers the runtime and extension probes with canned
// interpreter output; host tools always fail, as on a bare CI box.
type scriptedRunner struct {
	runtime      string
	runtimeErr   error
	extension    string
	extensionErr error
}

func (s *scriptedRunner) Run(_ context.Context, name string, args ...string) (string, error) {
	if name != "python" {
		return "", errors.New("executable file not found in $PATH")
	}
	script := args[len(args)-1]
	if strings.Contains(script, "flash_attn") {
		return s.extension, s.extensionErr
	}
	return s.runtime, s.runtimeErr
}

func runWith(t *testing.T, r envprobe.Runner) *Result {
	t.Helper()
	result := diagnose(context.Background(), &envprobe.Prober{Runner: r}, 0)
	require.NotNil(t, result.Snapshot)
	require.NotNil(t, result.Report)
	return result
}

func TestDiagnose_Compatible(t *testing.T) {
	result := runWith(t, &scriptedRunner{
		runtime:   `{"version": "2.4.0+cu121", "cuda": "12.1", "available": true, "python_tag": "cp312", "cxx11abi": false}`,
		extension: `{"version": "2.8.3", "cuda": "12.1.105"}`,
	})

	assert.Equal(t, Compatible, result.Verdict)
	assert.NoError(t, result.Err)
	assert.Equal(t, 0, result.Verdict.ExitCode())
}

func TestDiagnose_ToolkitMismatch(t *testing.T) {
	result := runWith(t, &scriptedRunner{
		runtime:   `{"version": "2.4.0+cu121", "cuda": "12.1", "available": true, "python_tag": "cp312", "cxx11abi": false}`,
		extension: `{"version": "2.8.3", "cuda": "12.4"}`,
	})

	assert.Equal(t, Incompatible, result.Verdict)
	assert.ErrorIs(t, result.Err, compat.ErrExtensionABIMismatch)
	assert.Equal(t, 1, result.Verdict.ExitCode())

	var buf bytes.Buffer
	result.Report.Render(&buf)
	assert.Contains(t, buf.String(), "12.1")
	assert.Contains(t, buf.String(), "12.4")
}

func TestDiagnose_ABISymbolFailure(t *testing.T) {
	result := runWith(t, &scriptedRunner{
		runtime:      `{"version": "2.4.0+cu121", "cuda": "12.1", "available": true, "python_tag": "cp312", "cxx11abi": false}`,
		extension:    "ImportError: flash_attn_2_cuda.so: undefined symbol: _ZN3c106detail14torchCheckFailEPKcS2_jRKSs",
		extensionErr: errors.New("exit status 1"),
	})

	assert.Equal(t, Incompatible, result.Verdict)
	assert.ErrorIs(t, result.Err, compat.ErrExtensionABIMismatch)
}

func TestDiagnose_NoRuntime(t *testing.T) {
	result := runWith(t, &scriptedRunner{
		runtime:    "ModuleNotFoundError: No module named 'torch'",
		runtimeErr: errors.New("exit status 1"),
	})

	assert.Equal(t, Undeterminable, result.Verdict)
	assert.ErrorIs(t, result.Err, compat.ErrRuntimeMissing)
	assert.Equal(t, 0, result.Verdict.ExitCode())
}
