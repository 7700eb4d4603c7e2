package index

import (
	"fmt"
	"regexp"
	"strings"
)

// Legislature filenames look like "HB0002.3.1.A.15_20250311_final-print.pdf".
// displayName rewrites them into the compact form shown in the tracker UI,
// e.g. "HB-2.3.1.A.15.general-government.final-print".

var (
	duplicatePattern = regexp.MustCompile(`(?i)\((\d+)\)\.pdf$`)
	standardPattern  = regexp.MustCompile(`(?i)^([A-Z]{2})0*(\d+)((?:\.\d+)+(?:\.[A-Z]\.\d+)*)_[^_]+_(final-\w+)(?:\.pdf)?`)
	sectionPattern   = regexp.MustCompile(`(?i)^([A-Z]{2})0*(\d+)\.(\d+)\.(\d+)\.([A-Z])\.(\d+)_[^_]+_(final-\w+)(?:\.pdf)?`)
)

// House Bill 2 is the general appropriations act; its amendments carry a
// section letter identifying the budget subcommittee.
var hb2Sections = map[string]string{
	"A": "general-government",
	"B": "health",
	"C": "nat-resource-transportation",
	"D": "public-safety",
	"E": "k-12-education",
	"F": "long-range",
	"O": "global-amendment",
}

// displayName derives a readable document name from a legislature filename.
// Files that don't match the known patterns keep their name minus the
// extension.
func displayName(billID, fileName string) string {
	suffix := ""
	if m := duplicatePattern.FindStringSubmatch(fileName); m != nil {
		suffix = fmt.Sprintf("(%s)", m[1])
	}

	if billID == "HB-2" {
		if m := sectionPattern.FindStringSubmatch(fileName); m != nil {
			prefix, billNum, major, minor, letter, amendNum, finalType := m[1], m[2], m[3], m[4], m[5], m[6], m[7]
			section := hb2Sections[strings.ToUpper(letter)]
			if section == "" {
				section = letter
			}
			return fmt.Sprintf("%s-%s.%s.%s.%s.%s.%s.%s%s",
				prefix, billNum, major, minor, letter, amendNum, section, finalType, suffix)
		}
	} else if m := standardPattern.FindStringSubmatch(fileName); m != nil {
		prefix, billNum, versionInfo, finalType := m[1], m[2], m[3], m[4]
		return fmt.Sprintf("%s-%s%s.%s%s", prefix, billNum, versionInfo, finalType, suffix)
	}

	return strings.TrimSuffix(fileName, ".pdf")
}
