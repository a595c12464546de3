package toolchain

import (
	"os"
	"os/exec"
	"strings"

	bridgeerrors "github.com/Aman-CERP/ffibridge/internal/errors"
)

// candidateCompilers are probed in order when neither a preferred compiler
// nor $CC is set.
var candidateCompilers = []string{"cc", "gcc", "clang"}

// Compiler is a resolved C compiler plus the archiver used for static libraries.
type Compiler struct {
	// Path is the absolute compiler path.
	Path string
	// Archiver is the absolute `ar` path; empty when none was found.
	Archiver string
	// CFlags are appended to every compile.
	CFlags []string
}

// FindCompiler resolves a C compiler. A non-empty preferred compiler is the
// only one tried. Otherwise the lookup order is $CC, then cc, gcc, clang on
// PATH. Either may carry flags ("gcc -m64"); they become CFlags.
func FindCompiler(preferred string) (*Compiler, error) {
	var tried []string

	for _, spec := range compilerSpecs(preferred) {
		fields := strings.Fields(spec)
		if len(fields) == 0 {
			continue
		}
		tried = append(tried, fields[0])
		path, err := exec.LookPath(fields[0])
		if err != nil {
			continue
		}
		return &Compiler{
			Path:     path,
			Archiver: findArchiver(),
			CFlags:   fields[1:],
		}, nil
	}

	if preferred != "" {
		return nil, bridgeerrors.New(bridgeerrors.ErrCodeCompilerNotFound,
			"requested C compiler not found: "+strings.Join(tried, ", "), nil).
			WithSuggestion("Install it, or drop --cc / build.cc to use the default compiler")
	}
	return nil, bridgeerrors.New(bridgeerrors.ErrCodeCompilerNotFound,
		"no C compiler found (tried "+strings.Join(tried, ", ")+")", nil).
		WithSuggestion("Install gcc or clang, or set CC")
}

func compilerSpecs(preferred string) []string {
	if preferred != "" {
		return []string{preferred}
	}
	specs := make([]string, 0, len(candidateCompilers)+1)
	if cc := os.Getenv("CC"); cc != "" {
		specs = append(specs, cc)
	}
	return append(specs, candidateCompilers...)
}

func findArchiver() string {
	name := os.Getenv("AR")
	if name == "" {
		name = "ar"
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return ""
	}
	return path
}
