package runner

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BugRescue/BugRescue/internal/domain"
)

// manifestMarkers maps project manifest files to their language.
// Checked in order so mixed trees resolve deterministically.
var manifestMarkers = []struct {
	file string
	lang domain.Language
}{
	{"go.mod", domain.LangGo},
	{"Cargo.toml", domain.LangRust},
	{"package.json", domain.LangJavaScript},
	{"pom.xml", domain.LangJava},
	{"build.gradle", domain.LangJava},
	{"requirements.txt", domain.LangPython},
	{"setup.py", domain.LangPython},
	{"pyproject.toml", domain.LangPython},
	{"Gemfile", domain.LangRuby},
	{"composer.json", domain.LangPHP},
	{"CMakeLists.txt", domain.LangCpp},
}

// extLanguages maps file extensions to their language for loose files
var extLanguages = map[string]domain.Language{
	".py":   domain.LangPython,
	".js":   domain.LangJavaScript,
	".go":   domain.LangGo,
	".rs":   domain.LangRust,
	".cpp":  domain.LangCpp,
	".java": domain.LangJava,
	".php":  domain.LangPHP,
	".rb":   domain.LangRuby,
	".sh":   domain.LangShell,
	".yaml": domain.LangStatic,
	".yml":  domain.LangStatic,
	".html": domain.LangStatic,
}

// DetectProject inspects root for a manifest file and returns the
// project's primary language. Returns LangUnknown when no marker matches.
func DetectProject(root string) domain.Language {
	for _, m := range manifestMarkers {
		if _, err := os.Stat(filepath.Join(root, m.file)); err == nil {
			return m.lang
		}
	}
	return domain.LangUnknown
}

// DetectFile returns the language of a single file by its name.
// Dockerfiles are matched by basename, everything else by extension.
func DetectFile(path string) domain.Language {
	base := filepath.Base(path)
	if base == "Dockerfile" || strings.HasPrefix(base, "Dockerfile.") {
		return domain.LangStatic
	}
	if lang, ok := extLanguages[strings.ToLower(filepath.Ext(path))]; ok {
		return lang
	}
	return domain.LangUnknown
}

// Supported reports whether any run or lint command exists for lang
func Supported(lang domain.Language) bool {
	return lang != domain.LangUnknown
}
