package addons

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// GrpInfoFile is the legacy multi-bundle descriptor file name
const GrpInfoFile = "addons.grpinfo"

// GrpInfo is one record of a legacy grpinfo descriptor
type GrpInfo struct {
	Name          string
	ScriptName    string
	DefName       string
	Size          int64
	EngineVersion string // Empty unless the record depends on a known engine release
}

// ParseGrpInfo parses grpinfo blocks:
//
//	grpinfo
//	{
//	    name       "Duke It Out In D.C."
//	    scriptname "DUKEDC.CON"
//	    size       8410183
//	    dependency DUKE15_CRC
//	}
//
// expectedCount is a capacity hint. Lines that fail to parse are skipped and
// records without a name are discarded.
func ParseGrpInfo(lines []string, expectedCount int) []GrpInfo {
	if expectedCount < 0 {
		expectedCount = 0
	}
	records := make([]GrpInfo, 0, expectedCount)

	var (
		cur      *GrpInfo
		inBlock  bool
		awaiting bool // saw "grpinfo", waiting for "{"
	)

	finish := func() {
		if cur != nil && cur.Name != "" {
			records = append(records, *cur)
		}
		cur = nil
		inBlock = false
		awaiting = false
	}

	for _, raw := range lines {
		line := stripGrpInfoComment(strings.TrimSpace(raw))
		if line == "" {
			continue
		}

		if !inBlock {
			if strings.HasPrefix(strings.ToLower(line), "grpinfo") {
				cur = &GrpInfo{}
				awaiting = true
				line = strings.TrimSpace(line[len("grpinfo"):])
			}
			if !awaiting {
				continue
			}
			if !strings.HasPrefix(line, "{") {
				continue
			}
			inBlock = true
			awaiting = false
			line = strings.TrimSpace(line[1:])
		}

		closed := false
		if idx := strings.Index(line, "}"); idx >= 0 && !insideQuotes(line, idx) {
			line = strings.TrimSpace(line[:idx])
			closed = true
		}

		if line != "" {
			parseGrpInfoLine(cur, line)
		}

		if closed {
			finish()
		}
	}

	// An unterminated trailing block still yields its record
	if inBlock {
		finish()
	}

	return records
}

func parseGrpInfoLine(rec *GrpInfo, line string) {
	tokens, err := splitGrpInfoTokens(line)
	if err != nil {
		return
	}

	// Key/value pairs; an unknown key ends the line
	for i := 0; i+1 < len(tokens); i += 2 {
		key, value := strings.ToLower(tokens[i]), tokens[i+1]
		switch key {
		case "name":
			rec.Name = value
		case "scriptname":
			rec.ScriptName = value
		case "defname":
			rec.DefName = value
		case "size":
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return
			}
			rec.Size = n
		case "dependency":
			if strings.EqualFold(value, "DUKE15_CRC") {
				rec.EngineVersion = DukeVersionAtomic
			} else {
				rec.EngineVersion = ""
			}
		default:
			return
		}
	}
}

// splitGrpInfoTokens splits on whitespace, keeping double-quoted runs whole
func splitGrpInfoTokens(line string) ([]string, error) {
	var (
		tokens []string
		b      strings.Builder
		quoted bool
		inTok  bool
	)

	for _, r := range line {
		switch {
		case r == '"':
			if quoted {
				tokens = append(tokens, b.String())
				b.Reset()
				quoted = false
				inTok = false
				continue
			}
			if inTok {
				tokens = append(tokens, b.String())
				b.Reset()
				inTok = false
			}
			quoted = true
		case quoted:
			b.WriteRune(r)
		case r == ' ' || r == '\t':
			if inTok {
				tokens = append(tokens, b.String())
				b.Reset()
				inTok = false
			}
		default:
			b.WriteRune(r)
			inTok = true
		}
	}

	if quoted {
		return nil, fmt.Errorf("unterminated quote in %q", line)
	}
	if inTok {
		tokens = append(tokens, b.String())
	}
	return tokens, nil
}

func stripGrpInfoComment(line string) string {
	if idx := strings.Index(line, "//"); idx >= 0 && !insideQuotes(line, idx) {
		return strings.TrimSpace(line[:idx])
	}
	return line
}

func insideQuotes(line string, idx int) bool {
	return strings.Count(line[:idx], `"`)%2 == 1
}

// ReadGrpInfo parses the descriptor in dir and matches each record to a .grp
// bundle of the same byte size in that directory. Bundles are tried in name
// order and the first match wins; unmatched records are dropped.
func ReadGrpInfo(dir string) ([]*Addon, error) {
	file, err := os.Open(filepath.Join(dir, GrpInfoFile))
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	bundles, err := listBundles(dir)
	if err != nil {
		return nil, err
	}

	var result []*Addon
	for _, rec := range ParseGrpInfo(lines, len(bundles)) {
		bundle, ok := matchBundle(bundles, rec.Size)
		if !ok {
			continue
		}
		result = append(result, &Addon{
			Identity:   Identity{ID: rec.Name},
			Variant:    VariantCustomConversion,
			Title:      rec.Name,
			Game:       SupportedGame{Game: GameDuke3D, Version: rec.EngineVersion},
			Path:       bundle.path,
			IsUnpacked: true,
			MainCon:    rec.ScriptName,
			MainDef:    rec.DefName,
		})
	}
	return result, nil
}

type bundleFile struct {
	path string
	size int64
}

func listBundles(dir string) ([]bundleFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var bundles []bundleFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".grp") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		bundles = append(bundles, bundleFile{
			path: filepath.Join(dir, entry.Name()),
			size: info.Size(),
		})
	}

	sort.Slice(bundles, func(i, j int) bool { return bundles[i].path < bundles[j].path })
	return bundles, nil
}

func matchBundle(bundles []bundleFile, size int64) (bundleFile, bool) {
	for _, b := range bundles {
		if b.size == size {
			return b, true
		}
	}
	return bundleFile{}, false
}
