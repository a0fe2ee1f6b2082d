package detect

import (
	"strconv"
	"strings"
	"sync"

	"github.com/pathmessages/pathmessages/regexp"
	"github.com/sourcegraph/go-diff/diff"
)

const hunkHeaderPattern = `@@.*\+(.*),.*@@`

// hunkHeaders caches the header expression per regex engine.
var hunkHeaders sync.Map

func hunkHeader() *regexp.Regexp {
	engine := regexp.Version()
	if re, ok := hunkHeaders.Load(engine); ok {
		return re.(*regexp.Regexp)
	}
	re, _ := hunkHeaders.LoadOrStore(engine, regexp.MustCompile(hunkHeaderPattern))
	return re.(*regexp.Regexp)
}

// LocateLine returns the line just past the new-file start of the first
// hunk header in diffText. Headers whose start does not parse are skipped.
//
// The whole text is scanned, so for a multi-file diff the line belongs to
// the first hunk of the first file, whichever file the caller is after.
func LocateLine(diffText string) (int, bool) {
	for _, m := range hunkHeader().FindAllStringSubmatch(diffText, -1) {
		start, err := strconv.Atoi(strings.TrimSpace(m[1]))
		if err != nil {
			continue
		}
		return start + 1, true
	}
	return 0, false
}

// LocateFileLine is like LocateLine but only considers the hunks of file.
func LocateFileLine(diffText, file string) (int, bool) {
	if diffText == "" {
		return 0, false
	}
	fileDiffs, err := diff.ParseMultiFileDiff([]byte(diffText))
	if err != nil {
		return 0, false
	}
	for _, fd := range fileDiffs {
		if FileDiffName(fd) != file {
			continue
		}
		if len(fd.Hunks) == 0 {
			return 0, false
		}
		return int(fd.Hunks[0].NewStartLine) + 1, true
	}
	return 0, false
}

// FileDiffName returns the repository-relative path a file diff applies to:
// the new name, or the old name when the file was deleted.
func FileDiffName(fd *diff.FileDiff) string {
	name := fd.NewName
	if name == "" || name == "/dev/null" {
		name = fd.OrigName
	}
	return stripDiffPrefix(name)
}

func stripDiffPrefix(name string) string {
	if name == "/dev/null" {
		return ""
	}
	if i := strings.IndexByte(name, '\t'); i >= 0 {
		name = name[:i]
	}
	for _, prefix := range []string{"a/", "b/"} {
		if strings.HasPrefix(name, prefix) {
			return name[len(prefix):]
		}
	}
	return name
}
