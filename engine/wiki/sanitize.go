package wiki

import (
	"regexp"
	"strings"
	"sync"
)

// MediaWiki parser output is machine-generated and well-formed, so a small
// balanced-tag scanner over regex-located opening tags is enough to cut
// whole elements out. No HTML parser dependency needed for this shape of
// input; malformed fragments degrade to dropping the remainder of the
// element, never to a crash.

// stripRules lists the non-content structure removed before extraction.
// A rule with an empty tag matches any element carrying the class.
var stripRules = []struct {
	tag   string
	class string
}{
	{"", "infobox"},
	{"", "metadata"},
	{"", "navbox"},
	{"", "reflist"},
	{"sup", "reference"},
	{"", "mw-editsection"},
	{"", "toc"},
	{"", "thumb"},
	{"", "mw-kartographer-maplink"},
	{"", "noprint"},
	{"", "sidebar"},
	{"", "sistersitebox"},
	{"", "portalbox"},
	{"", "ambox"},
	{"", "stub"},
	{"", "gallery"},
	{"", "mw-references-wrap"},
	{"", "catlinks"},
}

// strippedSections are h2 headings whose whole section is removed.
var strippedSections = map[string]bool{
	"Further_reading": true,
	"See_also":        true,
	"References":      true,
	"External_links":  true,
}

const (
	minPrimaryLen  = 150
	minFallbackLen = 50
)

// FallbackContent is served when extraction produces nothing usable.
const FallbackContent = `<p>Content extraction failed or the source page is very short. Please check the page directly on Wikipedia.</p>`

// Clean strips known non-content structure from parsed article HTML and
// extracts the main content region, degrading first to the broader body
// region and finally to a placeholder message.
func Clean(html string) string {
	return extractMain(sanitize(html))
}

func sanitize(h string) string {
	for _, r := range stripRules {
		h = removeByClass(h, r.tag, r.class)
	}
	h = removeByTag(h, "figure")
	h = removeByID(h, "coordinates")
	h = removeByID(h, "toc")
	h = removeSections(h)
	h = removeEmptyParagraphs(h)
	return h
}

// --- element removal primitives ---

var voidTags = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

var (
	tagReMu sync.Mutex
	tagRes  = map[string]*regexp.Regexp{}
)

// tagPairRe matches opening or closing tags of one element name.
func tagPairRe(tag string) *regexp.Regexp {
	tagReMu.Lock()
	defer tagReMu.Unlock()
	re, ok := tagRes[tag]
	if !ok {
		re = regexp.MustCompile(`(?i)<` + tag + `\b[^>]*>|</` + tag + `\s*>`)
		tagRes[tag] = re
	}
	return re
}

// elementBounds scans from just past an opening tag to the matching close,
// tracking nesting depth. Returns the start of the closing tag (inner end)
// and the index just past it (outer end). Unbalanced input consumes the rest
// of the document.
func elementBounds(h string, openEnd int, tag string) (innerEnd, outerEnd int) {
	if voidTags[tag] {
		return openEnd, openEnd
	}
	re := tagPairRe(tag)
	depth := 1
	pos := openEnd
	for {
		loc := re.FindStringIndex(h[pos:])
		if loc == nil {
			return len(h), len(h)
		}
		s, e := pos+loc[0], pos+loc[1]
		m := h[s:e]
		switch {
		case strings.HasPrefix(m, "</"):
			depth--
			if depth == 0 {
				return s, e
			}
		case strings.HasSuffix(m, "/>"):
			// self-closing, depth unchanged
		default:
			depth++
		}
		pos = e
	}
}

var classAttrRe = regexp.MustCompile(`(?i)\bclass="([^"]*)"`)

func hasClassToken(openTag, class string) bool {
	m := classAttrRe.FindStringSubmatch(openTag)
	if m == nil {
		return false
	}
	for _, tok := range strings.Fields(m[1]) {
		if strings.EqualFold(tok, class) {
			return true
		}
	}
	return false
}

// removeByClass cuts every element (optionally restricted to one tag name)
// whose class attribute contains the given token.
func removeByClass(h, tag, class string) string {
	tagPat := `[a-z][a-z0-9]*`
	if tag != "" {
		tagPat = tag
	}
	re := regexp.MustCompile(`(?i)<(` + tagPat + `)\b[^>]*\bclass="[^"]*` + regexp.QuoteMeta(class) + `[^"]*"[^>]*>`)
	pos := 0
	for {
		loc := re.FindStringSubmatchIndex(h[pos:])
		if loc == nil {
			return h
		}
		start, openEnd := pos+loc[0], pos+loc[1]
		name := strings.ToLower(h[pos+loc[2] : pos+loc[3]])
		if !hasClassToken(h[start:openEnd], class) {
			pos = openEnd
			continue
		}
		_, outerEnd := elementBounds(h, openEnd, name)
		h = h[:start] + h[outerEnd:]
		// keep pos at start; the next candidate may begin right there
	}
}

// removeByID cuts the element carrying the exact id.
func removeByID(h, id string) string {
	re := regexp.MustCompile(`(?i)<([a-z][a-z0-9]*)\b[^>]*\bid="` + regexp.QuoteMeta(id) + `"[^>]*>`)
	for {
		loc := re.FindStringSubmatchIndex(h)
		if loc == nil {
			return h
		}
		name := strings.ToLower(h[loc[2]:loc[3]])
		_, outerEnd := elementBounds(h, loc[1], name)
		h = h[:loc[0]] + h[outerEnd:]
	}
}

// removeByTag cuts every element with the given tag name.
func removeByTag(h, tag string) string {
	re := regexp.MustCompile(`(?i)<` + tag + `\b[^>]*>`)
	for {
		loc := re.FindStringIndex(h)
		if loc == nil {
			return h
		}
		_, outerEnd := elementBounds(h, loc[1], tag)
		h = h[:loc[0]] + h[outerEnd:]
	}
}

// --- section and paragraph cleanup ---

var (
	h2Re        = regexp.MustCompile(`(?is)<h2\b[^>]*>.*?</h2>`)
	headlineIDRe = regexp.MustCompile(`(?i)\bid="([^"]+)"`)
	emptyParaRe = regexp.MustCompile(`(?is)<p\b[^>]*>(?:\s|&nbsp;|<br\s*/?>)*</p>`)
)

// removeSections drops "See also", "References", "External links" and
// "Further reading" headings together with everything up to the next h2.
func removeSections(h string) string {
	for {
		removed := false
		for _, loc := range h2Re.FindAllStringIndex(h, -1) {
			head := h[loc[0]:loc[1]]
			if !sectionStripped(head) {
				continue
			}
			next := strings.Index(strings.ToLower(h[loc[1]:]), "<h2")
			end := len(h)
			if next != -1 {
				end = loc[1] + next
			}
			h = h[:loc[0]] + h[end:]
			removed = true
			break // indices are stale after the cut
		}
		if !removed {
			return h
		}
	}
}

func sectionStripped(heading string) bool {
	for _, m := range headlineIDRe.FindAllStringSubmatch(heading, -1) {
		if strippedSections[m[1]] {
			return true
		}
	}
	return false
}

// removeEmptyParagraphs discards paragraphs left hollow by element removal.
func removeEmptyParagraphs(h string) string {
	return emptyParaRe.ReplaceAllString(h, "")
}

// --- content region extraction ---

// innerByAttr returns the inner HTML of the first element whose attribute
// matches, using token matching for class and exact matching for id.
func innerByAttr(h, attr, value string) (string, bool) {
	re := regexp.MustCompile(`(?i)<([a-z][a-z0-9]*)\b[^>]*\b` + attr + `="[^"]*` + regexp.QuoteMeta(value) + `[^"]*"[^>]*>`)
	pos := 0
	for {
		loc := re.FindStringSubmatchIndex(h[pos:])
		if loc == nil {
			return "", false
		}
		start, openEnd := pos+loc[0], pos+loc[1]
		name := strings.ToLower(h[pos+loc[2] : pos+loc[3]])
		if attr == "class" && !hasClassToken(h[start:openEnd], value) {
			pos = openEnd
			continue
		}
		innerEnd, _ := elementBounds(h, openEnd, name)
		return h[openEnd:innerEnd], true
	}
}

// extractMain pulls the main parser-output region, falling back to the
// broader body-content region when the primary is absent or implausibly
// short, and finally to FallbackContent.
func extractMain(h string) string {
	if inner, ok := innerByAttr(h, "class", "mw-parser-output"); ok {
		if len(strings.TrimSpace(inner)) >= minPrimaryLen {
			return inner
		}
	}
	if inner, ok := innerByAttr(h, "id", "bodyContent"); ok {
		if len(strings.TrimSpace(inner)) >= minFallbackLen {
			return inner
		}
	}
	return FallbackContent
}
