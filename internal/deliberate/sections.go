package deliberate

import (
	"regexp"
	"strings"
)

// sectionHeader matches "AGREEMENTS:", "## Agreements", "**Agreements**",
// and similar labeled headers the moderator models produce.
var sectionHeader = regexp.MustCompile(`^\s*(?:#+\s*|\*\*)?([A-Za-z][A-Za-z /'-]+?)(?:\*\*)?\s*:?\s*$`)

var bulletPrefix = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+`)

// parsedSections holds a labeled-section breakdown of model output.
// Section keys are lowercased header text.
type parsedSections struct {
	order   []string
	bullets map[string][]string
	body    map[string]string
}

// parseSections splits model output into labeled sections with their
// bullet items. Lines before the first recognized header are ignored.
// The known set constrains which headers are treated as sections so that
// short emphasized phrases inside prose don't fragment the parse.
func parseSections(text string, known []string) *parsedSections {
	knownSet := make(map[string]bool, len(known))
	for _, k := range known {
		knownSet[strings.ToLower(k)] = true
	}

	out := &parsedSections{
		bullets: make(map[string][]string),
		body:    make(map[string]string),
	}

	current := ""
	var bodyLines []string
	flush := func() {
		if current != "" {
			out.body[current] = strings.TrimSpace(strings.Join(bodyLines, "\n"))
		}
		bodyLines = nil
	}

	for _, line := range strings.Split(text, "\n") {
		if m := sectionHeader.FindStringSubmatch(line); m != nil {
			name := strings.ToLower(strings.TrimSpace(m[1]))
			if knownSet[name] {
				flush()
				current = name
				out.order = append(out.order, name)
				continue
			}
		}
		if current == "" {
			continue
		}
		bodyLines = append(bodyLines, line)
		if item := bulletText(line); item != "" {
			out.bullets[current] = append(out.bullets[current], item)
		}
	}
	flush()

	return out
}

// bulletText returns the content of a bullet line, or "" for non-bullets.
func bulletText(line string) string {
	loc := bulletPrefix.FindStringIndex(line)
	if loc == nil {
		return ""
	}
	return strings.TrimSpace(line[loc[1]:])
}

// sectionBullets returns the bullets under name; when the section has
// prose but no bullets, its non-empty lines are returned instead.
func (p *parsedSections) sectionBullets(name string) []string {
	name = strings.ToLower(name)
	if items := p.bullets[name]; len(items) > 0 {
		return items
	}
	var lines []string
	for _, l := range strings.Split(p.body[name], "\n") {
		l = strings.TrimSpace(l)
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// sectionBody returns the raw prose under name.
func (p *parsedSections) sectionBody(name string) string {
	return p.body[strings.ToLower(name)]
}
