package predictor

import (
	"strings"

	"golang.org/x/text/cases"
)

// Normalize maps loosely typed categorical answers ("male", "public
// transportation", " YES ") onto the exact table labels. Values that match
// no label are left as typed so validation can report them.
func Normalize(f Form) Form {
	out := f
	for _, c := range categoricalFields(f) {
		if label, ok := canonicalLabel(c.value, c.table.Labels()); ok {
			c.set(&out, label)
		}
	}
	return out
}

func canonicalLabel(value string, labels []string) (string, bool) {
	key := foldKey(value)
	if key == "" {
		return "", false
	}
	for _, label := range labels {
		if foldKey(label) == key {
			return label, true
		}
	}
	return "", false
}

func foldKey(s string) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	// Casers are stateful and must not be shared across goroutines.
	return cases.Fold().String(s)
}
