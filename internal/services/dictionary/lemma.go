package dictionary

import "strings"

var irregular = map[string]string{
	"went":     "go",
	"gone":     "go",
	"ran":      "run",
	"ate":      "eat",
	"eaten":    "eat",
	"flew":     "fly",
	"flown":    "fly",
	"grew":     "grow",
	"grown":    "grow",
	"wrote":    "write",
	"written":  "write",
	"sang":     "sing",
	"sung":     "sing",
	"swam":     "swim",
	"drank":    "drink",
	"drove":    "drive",
	"broke":    "break",
	"broken":   "break",
	"built":    "build",
	"bought":   "buy",
	"caught":   "catch",
	"fell":     "fall",
	"fought":   "fight",
	"held":     "hold",
	"made":     "make",
	"slept":    "sleep",
	"children": "child",
	"men":      "man",
	"women":    "woman",
	"mice":     "mouse",
	"feet":     "foot",
	"teeth":    "tooth",
	"geese":    "goose",
	"wolves":   "wolf",
	"knives":   "knife",
	"leaves":   "leaf",
	"shelves":  "shelf",
}

// lemmaCandidates lists possible base forms of an inflected word, most specific first.
// Callers accept the first candidate that is a known word.
func lemmaCandidates(w string) []string {
	var out []string
	if base, ok := irregular[w]; ok {
		out = append(out, base)
	}

	switch {
	case strings.HasSuffix(w, "ies") && len(w) > 4:
		out = append(out, w[:len(w)-3]+"y")
	case strings.HasSuffix(w, "es") && len(w) > 3:
		out = append(out, w[:len(w)-2], w[:len(w)-1])
	case strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") && len(w) > 3:
		out = append(out, w[:len(w)-1])
	}

	switch {
	case strings.HasSuffix(w, "ied") && len(w) > 4:
		out = append(out, w[:len(w)-3]+"y")
	case strings.HasSuffix(w, "ed") && len(w) > 4:
		stem := w[:len(w)-2]
		out = append(out, stem, stem+"e")
		if undoubled, ok := undouble(stem); ok {
			out = append(out, undoubled)
		}
	}

	if strings.HasSuffix(w, "ing") && len(w) > 5 {
		stem := w[:len(w)-3]
		out = append(out, stem, stem+"e")
		if undoubled, ok := undouble(stem); ok {
			out = append(out, undoubled)
		}
	}

	for _, suffix := range []string{"est", "er"} {
		if strings.HasSuffix(w, suffix) && len(w) > len(suffix)+2 {
			stem := w[:len(w)-len(suffix)]
			out = append(out, stem, stem+"e")
			if undoubled, ok := undouble(stem); ok {
				out = append(out, undoubled)
			}
			if strings.HasSuffix(stem, "i") {
				out = append(out, stem[:len(stem)-1]+"y")
			}
			break
		}
	}

	if strings.HasSuffix(w, "ly") && len(w) > 4 {
		out = append(out, w[:len(w)-2])
	}
	return out
}

// undouble strips a doubled final consonant: "runn" -> "run"
func undouble(stem string) (string, bool) {
	n := len(stem)
	if n < 3 || stem[n-1] != stem[n-2] || strings.ContainsRune("aeiou", rune(stem[n-1])) {
		return "", false
	}
	return stem[:n-1], true
}
