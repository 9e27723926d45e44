package chunk_test

import (
	"bytes"
	"flag"
	"testing"

	"github.com/arborvm/clox/internal/filetest"
	"github.com/arborvm/clox/lang/chunk"
	"github.com/arborvm/clox/lang/value"
)

var testUpdateDisasmTests = flag.Bool("test.update-disasm-tests", false, "update lang/chunk testdata/*.want golden files")

// TestDisassembleGolden exercises the disassembler against a golden file the
// same way the teacher diffs its own compiler output, via
// internal/filetest's kylelemons/godebug-backed DiffOutput.
func TestDisassembleGolden(t *testing.T) {
	for _, fi := range filetest.SourceFiles(t, "testdata", ".disasm") {
		fi := fi
		t.Run(fi.Name(), func(t *testing.T) {
			var c chunk.Chunk
			idx, _ := c.AddConstant(value.Number(7))
			c.Write(byte(chunk.Constant), 3)
			c.Write(byte(idx), 3)
			c.Write(byte(chunk.Return), 3)

			var buf bytes.Buffer
			chunk.Disassemble(&buf, &c, "golden")

			filetest.DiffOutput(t, fi, buf.String(), "testdata", testUpdateDisasmTests)
		})
	}
}
